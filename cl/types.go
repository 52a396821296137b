package cl

import "github.com/hostcl/clbridge/ptr"

// The wrapper types below carry a native handle and a byte offset and
// nothing else. They satisfy ptr.Object through the embedded NativeRef,
// so any of them can appear as a native call argument, inside an
// indirection list, or in a handle array.

// Platform identifies a native platform.
type Platform struct{ ptr.NativeRef }

// Device identifies a native device.
type Device struct{ ptr.NativeRef }

// Context owns devices, memory objects and queues. Its handle keys the
// callback registration created alongside it.
type Context struct{ ptr.NativeRef }

// CommandQueue orders work against one device.
type CommandQueue struct{ ptr.NativeRef }

// Mem is a native memory object.
type Mem struct{ ptr.NativeRef }

// Program is a native program object.
type Program struct{ ptr.NativeRef }

// Kernel is a native kernel object.
type Kernel struct{ ptr.NativeRef }

// Sampler is a native sampler object.
type Sampler struct{ ptr.NativeRef }

// Event tracks completion of an enqueued command.
type Event struct{ ptr.NativeRef }
