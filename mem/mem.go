package mem

import "unsafe"

// SlotSize is the width of one native pointer slot. Handle arrays and
// indirection lists always use fixed 64-bit slots, matching the wire shape
// the driver interface declares.
const SlotSize = 8

// Bytes returns a slice view over n bytes of native memory at addr.
// The caller is responsible for addr being valid for n bytes.
func Bytes(addr uintptr, n int) []byte {
	if addr == 0 || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

// ReadUint32 reads a 32-bit value from native memory.
func ReadUint32(addr uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(addr))
}

// WriteUint32 writes a 32-bit value to native memory.
func WriteUint32(addr uintptr, v uint32) {
	*(*uint32)(unsafe.Pointer(addr)) = v
}

// ReadUint64 reads a 64-bit value from native memory.
func ReadUint64(addr uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(addr))
}

// WriteUint64 writes a 64-bit value to native memory.
func WriteUint64(addr uintptr, v uint64) {
	*(*uint64)(unsafe.Pointer(addr)) = v
}

// ReadSlot reads the i-th pointer slot of a native pointer array.
func ReadSlot(base uintptr, i int) uint64 {
	return ReadUint64(base + uintptr(i*SlotSize))
}

// WriteSlot writes the i-th pointer slot of a native pointer array.
func WriteSlot(base uintptr, i int, v uint64) {
	WriteUint64(base+uintptr(i*SlotSize), v)
}

// Copy copies n bytes of native memory from src to dst.
func Copy(dst, src uintptr, n int) {
	if n <= 0 {
		return
	}
	copy(Bytes(dst, n), Bytes(src, n))
}
