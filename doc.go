// Package clbridge is the boundary layer between managed Go memory and a
// native compute API that expects raw host pointers, fixed-size structures
// and out-parameters.
//
// The heart of the library is the pointer-marshalling subsystem: given a
// managed pointer-like object it resolves a raw host address, decides per
// call whether the backing storage must be pinned, copied or addressed
// directly, keeps the memory valid exactly for the duration of the native
// call, and writes results back into the managed representation afterwards,
// recursing through indirection lists (arrays of pointer objects pointing to
// further pointer objects). A structurally similar bridge carries native
// completion and error callbacks, which arrive on threads owned by the
// native implementation, back into Go.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	clbridge/    Root package with the native memory Allocator interface
//	├── mem/      Raw-address access, arenas and array pinning strategies
//	├── ptr/      Pointer-like objects, native refs and backing buffers
//	├── marshal/  Buffer resolution, release/writeback and list marshalling
//	├── callback/ Foreign-thread callback registry and re-entry bridge
//	├── cl/       Wrapper types, status codes and the call binding surface
//	├── fake/     In-process fake driver for tests and demos
//	└── errors/   Structured error types for debugging
//
// # Quick Start
//
// Bind against a driver and enumerate platforms:
//
//	b := cl.New(driver)
//
//	platforms := make([]*cl.Platform, 2)
//	var count uint32
//	status, err := b.GetPlatformIDs(platforms, &count)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Memory Model
//
// Native calls never observe Go memory directly unless the resolver decided
// it was safe to do so: slice-backed buffers are either pinned in place for
// the duration of the call or staged through a temporary native buffer with
// an optional copy-back. Resolved pointers are strictly call-scoped; a
// resolved address must not outlive the Release of its record.
//
// # Thread Safety
//
// The issuing goroutine performs resolve, native call and release
// synchronously. Native callbacks are the one concurrency point: they may
// fire on driver-owned threads at any time and re-enter Go through the
// callback bridge, which attaches and detaches the foreign thread on every
// exit path.
package clbridge
