package mem

import (
	"runtime"
	"sync"
	"unsafe"

	clbridge "github.com/hostcl/clbridge"
	"github.com/hostcl/clbridge/errors"
)

// Pinned is the result of pinning a managed slice for one native call.
// Copied reports whether Addr references a temporary native buffer rather
// than the slice's own storage; the release action differs accordingly.
type Pinned struct {
	Addr    uintptr
	Copied  bool
	release func(copyBack bool)
}

// Release ends the pin. For an in-place pin copyBack is irrelevant (native
// writes were visible immediately); for a copied pin the temporary contents
// are written back into the managed slice unless copyBack is false, and the
// temporary is freed either way. Release is a no-op on the second call.
func (p *Pinned) Release(copyBack bool) {
	if p == nil || p.release == nil {
		return
	}
	rel := p.release
	p.release = nil
	rel(copyBack)
}

// Pinner obtains a stable native address for a managed slice. Pinning is a
// potentially blocking, non-reentrant critical section: nested pins of
// overlapping memory from the same goroutine must not be attempted.
type Pinner interface {
	Pin(data []byte) (*Pinned, error)
}

var runtimePinnerPool = sync.Pool{
	New: func() any {
		return new(runtime.Pinner)
	},
}

// RuntimePinner pins slice storage in place with runtime.Pinner, so the
// native call writes straight into the managed array and no copy-back is
// ever needed. Pinner instances are pooled across calls.
type RuntimePinner struct{}

// NewRuntimePinner creates an in-place pinner.
func NewRuntimePinner() *RuntimePinner {
	return &RuntimePinner{}
}

// Pin pins the slice storage and returns its address.
func (*RuntimePinner) Pin(data []byte) (*Pinned, error) {
	sd := unsafe.SliceData(data)
	if sd == nil {
		// Empty slice with no storage: nothing to pin, zero address.
		return &Pinned{}, nil
	}

	pin := runtimePinnerPool.Get().(*runtime.Pinner)
	pin.Pin(sd)

	return &Pinned{
		Addr: uintptr(unsafe.Pointer(sd)),
		release: func(bool) {
			pin.Unpin()
			runtimePinnerPool.Put(pin)
		},
	}, nil
}

// CopyPinner stages the slice through a temporary native buffer allocated
// from Alloc. The native call sees the temporary; on release its contents
// are copied back into the managed slice unless the caller discards writes.
type CopyPinner struct {
	Alloc clbridge.Allocator
}

// NewCopyPinner creates a copying pinner over the given allocator.
func NewCopyPinner(alloc clbridge.Allocator) *CopyPinner {
	return &CopyPinner{Alloc: alloc}
}

// Pin copies the slice into a fresh native buffer and returns its address.
func (c *CopyPinner) Pin(data []byte) (*Pinned, error) {
	if len(data) == 0 {
		return &Pinned{Copied: true}, nil
	}

	addr, err := c.Alloc.Alloc(len(data))
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseResolve, len(data), err)
	}
	copy(Bytes(addr, len(data)), data)

	size := len(data)
	return &Pinned{
		Addr:   addr,
		Copied: true,
		release: func(copyBack bool) {
			if copyBack {
				copy(data, Bytes(addr, size))
			}
			c.Alloc.Free(addr, size)
		},
	}, nil
}
