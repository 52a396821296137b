// Package ptr defines the managed-side representation of native resources
// and host memory: NativeRef (a 64-bit handle plus a lazily applied byte
// offset, embedded by every wrapper type), Buffer (backing storage that is
// either a stable off-heap region or a managed Go slice) and Pointer (the
// pointer-like argument object that may carry a backing buffer or an
// indirection list of further pointer-like objects).
package ptr
