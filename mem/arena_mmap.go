//go:build unix

package mem

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/hostcl/clbridge/errors"
)

// MmapArena is an Allocator backed by anonymous memory mappings. The memory
// it hands out lives entirely outside the Go heap, which makes it suitable
// for direct buffers whose addresses native code may retain across calls.
// Allocation granularity is one page per request.
type MmapArena struct {
	mu       sync.Mutex
	mappings map[uintptr][]byte
}

// NewMmapArena creates an empty mmap-backed arena.
func NewMmapArena() *MmapArena {
	return &MmapArena{
		mappings: make(map[uintptr][]byte),
	}
}

// Alloc maps at least size bytes of anonymous memory.
func (a *MmapArena) Alloc(size int) (uintptr, error) {
	if size < 0 {
		return 0, errors.InvalidArgument(errors.PhaseResolve, "negative allocation size")
	}
	if size == 0 {
		size = 1
	}

	data, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseResolve, size, err)
	}

	addr := uintptr(unsafe.Pointer(unsafe.SliceData(data)))
	a.mu.Lock()
	a.mappings[addr] = data
	a.mu.Unlock()
	return addr, nil
}

// Free unmaps the allocation at addr. Unknown addresses are ignored.
func (a *MmapArena) Free(addr uintptr, _ int) {
	a.mu.Lock()
	data, ok := a.mappings[addr]
	if ok {
		delete(a.mappings, addr)
	}
	a.mu.Unlock()

	if ok {
		_ = unix.Munmap(data)
	}
}

// Live returns the number of outstanding mappings.
func (a *MmapArena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.mappings)
}

// Close unmaps every outstanding mapping.
func (a *MmapArena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for addr, data := range a.mappings {
		_ = unix.Munmap(data)
		delete(a.mappings, addr)
	}
	return nil
}
