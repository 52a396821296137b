// Package fake is an in-process cl.Driver used by tests and the clinfo
// command. It keeps all native state (buffers, programs, events) in plain
// Go maps, reads and writes host memory through the same raw addresses a
// real implementation would, and fires callbacks from a worker goroutine
// it owns, which exercises the foreign-thread re-entry path of the bridge.
package fake
