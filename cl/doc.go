// Package cl is the call surface of the binding: wrapper types carrying
// native handles, the status-code convention, the Driver seam behind which
// the real native library (or a fake) sits, and the Binding operations
// that marshal managed arguments through the resolver, perform the native
// call, and write results back.
//
// The operations here are representative instances of one pattern, not an
// exhaustive catalog: every host-memory argument flows through the same
// resolve/release machinery with a declared access direction, and every
// native failure is reported as a Status, never as a Go error.
package cl
