// Package mem provides the native host-memory substrate for the binding:
// raw-address access helpers, allocators for call-scoped native structures,
// and the pinning strategies used to expose managed slices to native code.
//
// Two Pinner implementations cover the two array-backed resolution outcomes:
// RuntimePinner pins the slice storage in place (native writes land directly
// in the managed array), while CopyPinner stages the slice through a
// temporary native buffer and copies back on release unless the call only
// read the memory.
package mem
