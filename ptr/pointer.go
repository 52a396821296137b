package ptr

// Pointer is the pointer-like argument object for native calls that take
// host memory. It resolves, in strict priority order, to one of: its own
// non-zero native handle, an indirection list of further pointer-like
// objects, a direct buffer, or a pinned/copied managed slice.
type Pointer struct {
	NativeRef
	buffer   Buffer
	elements any // typed slice of Object implementations, e.g. []*cl.Mem
}

// To creates a pointer backed by the given buffer.
func To(buf Buffer) *Pointer {
	return &Pointer{buffer: buf}
}

// ToBytes creates a pointer to a managed byte slice.
func ToBytes(data []byte) *Pointer {
	return &Pointer{buffer: WrapBytes(data)}
}

// ToInt32s creates a pointer to a managed int32 slice.
func ToInt32s(data []int32) *Pointer {
	return &Pointer{buffer: WrapInt32s(data)}
}

// ToInt64s creates a pointer to a managed int64 slice.
func ToInt64s(data []int64) *Pointer {
	return &Pointer{buffer: WrapInt64s(data)}
}

// ToFloat32s creates a pointer to a managed float32 slice.
func ToFloat32s(data []float32) *Pointer {
	return &Pointer{buffer: WrapFloat32s(data)}
}

// ToFloat64s creates a pointer to a managed float64 slice.
func ToFloat64s(data []float64) *Pointer {
	return &Pointer{buffer: WrapFloat64s(data)}
}

// ToObjects creates an indirection-list pointer. The argument must be a
// slice whose element type implements Object (for example []*cl.Mem); nil
// elements are legal and map to null native slots. The slice is inspected
// at resolve time, and resolved native values are written back into it at
// release time, materializing fresh wrappers for nil slots whose native
// slot became non-null.
func ToObjects(slice any) *Pointer {
	return &Pointer{elements: slice}
}

// WithByteOffset returns a copy of the pointer whose effective address is
// shifted by off bytes. The original is unchanged.
func (p *Pointer) WithByteOffset(off int64) *Pointer {
	cp := &Pointer{buffer: p.buffer, elements: p.elements}
	cp.handle = p.handle
	cp.setByteOffset(p.offset + off)
	return cp
}

// Backing returns the buffer behind this pointer, or nil.
func (p *Pointer) Backing() Buffer {
	return p.buffer
}

// Elements returns the typed indirection-list slice, or nil.
func (p *Pointer) Elements() any {
	return p.elements
}
