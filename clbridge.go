package clbridge

// Allocator allocates native host memory for call-scoped structures:
// pointer indirection arrays, out-parameter slots and temporary copies of
// managed arrays. Addresses returned by Alloc are stable for the lifetime
// of the allocation and safe to hand to native code.
type Allocator interface {
	// Alloc returns the address of a new allocation of at least size bytes.
	Alloc(size int) (uintptr, error)

	// Free releases an allocation previously returned by Alloc. The size
	// is advisory; implementations track allocations by address.
	Free(addr uintptr, size int)
}
