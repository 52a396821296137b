package cl

// Access declares which direction a native call moves data through a host
// memory argument. The release step uses it to decide whether writeback is
// needed; arguments the native side only reads skip the copy-back of a
// staged temporary.
type Access uint8

const (
	// NativeReads: the native call only reads the argument.
	NativeReads Access = iota

	// NativeWrites: the native call writes the argument; results must be
	// visible in the managed slice after release.
	NativeWrites

	// NativeReadsWrites: the native call does both.
	NativeReadsWrites
)

func (a Access) String() string {
	switch a {
	case NativeReads:
		return "native_reads"
	case NativeWrites:
		return "native_writes"
	case NativeReadsWrites:
		return "native_reads_writes"
	default:
		return "unknown"
	}
}

// discardWrites reports whether the release step may skip writeback.
func (a Access) discardWrites() bool { return a == NativeReads }
