package marshal

import (
	"github.com/hostcl/clbridge/mem"
	"github.com/hostcl/clbridge/ptr"
)

// Kind tags how a pointer was resolved. The release action is determined
// entirely by the tag.
type Kind uint8

const (
	// KindNative: the object already carried a native handle, or was nil.
	// Nothing to release beyond the retained owner reference.
	KindNative Kind = iota

	// KindPointerList: an indirection list; a native array of the
	// children's base addresses was built and must be written back and
	// freed.
	KindPointerList

	// KindDirect: a direct buffer outside the managed heap. No release
	// action.
	KindDirect

	// KindPinnedArray: a managed slice pinned in place. Release unpins;
	// native writes were visible immediately.
	KindPinnedArray

	// KindCopiedArray: a managed slice staged through a temporary native
	// buffer. Release copies back (unless writes are discarded) and frees
	// the temporary.
	KindCopiedArray
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindPointerList:
		return "pointer_list"
	case KindDirect:
		return "direct"
	case KindPinnedArray:
		return "pinned_array"
	case KindCopiedArray:
		return "copied_array"
	default:
		return "unknown"
	}
}

// Resolved is the transient per-call record produced by Resolver.Resolve.
// It retains the source object for the duration of the call and carries
// everything Release needs to undo the resolution.
type Resolved struct {
	owner    ptr.Object
	base     uint64
	addr     uint64
	kind     Kind
	children []*Resolved
	arrayLen int
	pinned   *mem.Pinned
	released bool
}

// Kind returns the resolution tag.
func (r *Resolved) Kind() Kind { return r.kind }

// Base returns the resolved base value (address or handle) without the
// byte offset applied.
func (r *Resolved) Base() uint64 { return r.base }

// Value returns the effective pointer value, base plus byte offset.
func (r *Resolved) Value() uint64 { return r.addr }

// Addr returns the effective pointer as a native address.
func (r *Resolved) Addr() uintptr { return uintptr(r.addr) }

// Children returns the child records of a pointer list, one per element,
// nil for null slots. The slice is owned by the record.
func (r *Resolved) Children() []*Resolved { return r.children }

// Released reports whether the record has been released.
func (r *Resolved) Released() bool { return r.released }
