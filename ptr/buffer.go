package ptr

import (
	"unsafe"

	clbridge "github.com/hostcl/clbridge"
)

// Buffer is the backing storage of a Pointer. Exactly two shapes exist:
// a DirectBuffer whose storage lives at a stable native address outside
// the managed heap, and a SliceBuffer wrapping a managed Go slice that
// must be pinned or copied before native code may see it.
type Buffer interface {
	// Direct reports whether the storage has a stable native address and
	// needs neither pinning nor copying.
	Direct() bool

	// Len returns the storage size in bytes.
	Len() int
}

// DirectBuffer is a region of native memory not subject to relocation by
// the garbage collector. Resolution addresses it directly; release is a
// no-op.
type DirectBuffer struct {
	addr  uintptr
	size  int
	alloc clbridge.Allocator
}

// AllocDirect allocates a fresh direct buffer of size bytes from alloc.
// The buffer must be freed with Free when the application is done with it;
// it is not tied to any single native call.
func AllocDirect(alloc clbridge.Allocator, size int) (*DirectBuffer, error) {
	addr, err := alloc.Alloc(size)
	if err != nil {
		return nil, err
	}
	return &DirectBuffer{addr: addr, size: size, alloc: alloc}, nil
}

// WrapDirect wraps an existing native region. The caller owns the region.
func WrapDirect(addr uintptr, size int) *DirectBuffer {
	return &DirectBuffer{addr: addr, size: size}
}

// Direct reports true.
func (b *DirectBuffer) Direct() bool { return true }

// Len returns the region size in bytes.
func (b *DirectBuffer) Len() int { return b.size }

// Addr returns the region's native base address.
func (b *DirectBuffer) Addr() uintptr { return b.addr }

// Free returns the region to its allocator, if it owns one.
func (b *DirectBuffer) Free() {
	if b.alloc != nil && b.addr != 0 {
		b.alloc.Free(b.addr, b.size)
		b.addr = 0
	}
}

// SliceBuffer wraps a managed Go slice. The resolver pins or copies its
// storage for the duration of one native call. The byte view aliases the
// original slice's memory, whatever its element type.
type SliceBuffer struct {
	data []byte
	ref  any // original typed slice, kept reachable
}

// WrapBytes wraps a byte slice.
func WrapBytes(data []byte) *SliceBuffer {
	return &SliceBuffer{data: data, ref: data}
}

// WrapInt32s wraps an int32 slice as its byte view.
func WrapInt32s(data []int32) *SliceBuffer {
	return &SliceBuffer{data: sliceBytes(data, 4), ref: data}
}

// WrapInt64s wraps an int64 slice as its byte view.
func WrapInt64s(data []int64) *SliceBuffer {
	return &SliceBuffer{data: sliceBytes(data, 8), ref: data}
}

// WrapFloat32s wraps a float32 slice as its byte view.
func WrapFloat32s(data []float32) *SliceBuffer {
	return &SliceBuffer{data: sliceBytes(data, 4), ref: data}
}

// WrapFloat64s wraps a float64 slice as its byte view.
func WrapFloat64s(data []float64) *SliceBuffer {
	return &SliceBuffer{data: sliceBytes(data, 8), ref: data}
}

// Direct reports false.
func (b *SliceBuffer) Direct() bool { return false }

// Len returns the storage size in bytes.
func (b *SliceBuffer) Len() int { return len(b.data) }

// Bytes returns the byte view over the managed storage.
func (b *SliceBuffer) Bytes() []byte { return b.data }

func sliceBytes[T any](data []T, elemSize int) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), len(data)*elemSize)
}
