package mem

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/hostcl/clbridge/errors"
)

// HeapArena is a portable Allocator backed by ordinary Go allocations whose
// storage is pinned for the lifetime of each allocation. It tracks live
// allocations by address, which makes leak checks in tests cheap.
type HeapArena struct {
	mu     sync.Mutex
	blocks map[uintptr]*heapBlock
	closed bool
}

type heapBlock struct {
	data []byte
	pin  runtime.Pinner
}

// NewHeapArena creates an empty arena.
func NewHeapArena() *HeapArena {
	return &HeapArena{
		blocks: make(map[uintptr]*heapBlock),
	}
}

// Alloc returns the address of a new pinned allocation of at least size
// bytes. Zero-size requests are rounded up to one byte so that every
// allocation has a distinct, non-zero address.
func (a *HeapArena) Alloc(size int) (uintptr, error) {
	if size < 0 {
		return 0, errors.InvalidArgument(errors.PhaseResolve, "negative allocation size")
	}
	if size == 0 {
		size = 1
	}

	b := &heapBlock{data: make([]byte, size)}
	b.pin.Pin(&b.data[0])
	addr := uintptr(unsafe.Pointer(&b.data[0]))

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		b.pin.Unpin()
		return 0, errors.AllocationFailed(errors.PhaseResolve, size, nil)
	}
	a.blocks[addr] = b
	return addr, nil
}

// Free releases the allocation at addr. Unknown addresses are ignored.
func (a *HeapArena) Free(addr uintptr, _ int) {
	a.mu.Lock()
	b, ok := a.blocks[addr]
	if ok {
		delete(a.blocks, addr)
	}
	a.mu.Unlock()

	if ok {
		b.pin.Unpin()
	}
}

// Live returns the number of outstanding allocations.
func (a *HeapArena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.blocks)
}

// Close releases every outstanding allocation and rejects further Allocs.
func (a *HeapArena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	for addr, b := range a.blocks {
		b.pin.Unpin()
		delete(a.blocks, addr)
	}
	return nil
}
