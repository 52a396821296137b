package ptr

import "fmt"

// Object is the managed-visible face of any native resource: a 64-bit
// opaque handle (address or ID) plus a byte offset applied lazily. The
// effective pointer is always handle+offset. Implemented by NativeRef,
// which every wrapper type embeds.
type Object interface {
	NativeHandle() uint64
	SetNativeHandle(uint64)
	ByteOffset() int64
}

// NativeRef carries the native handle and offset for one resource. It is
// mutated only by the binding layer when handles are filled in after a
// native call; releasing the native resource itself is a separate explicit
// operation on the driver.
type NativeRef struct {
	handle uint64
	offset int64
}

// NativeHandle returns the raw handle value.
func (r *NativeRef) NativeHandle() uint64 {
	return r.handle
}

// SetNativeHandle stores a new handle and resets the byte offset to zero.
func (r *NativeRef) SetNativeHandle(h uint64) {
	r.handle = h
	r.offset = 0
}

// ByteOffset returns the offset added to the handle to form the effective
// pointer.
func (r *NativeRef) ByteOffset() int64 {
	return r.offset
}

func (r *NativeRef) setByteOffset(off int64) {
	r.offset = off
}

func (r *NativeRef) String() string {
	if r.offset != 0 {
		return fmt.Sprintf("NativeRef[0x%x+%d]", r.handle, r.offset)
	}
	return fmt.Sprintf("NativeRef[0x%x]", r.handle)
}
