// Package callback carries native completion and error callbacks back into
// managed code. Native implementations invoke callbacks on threads they own,
// at arbitrary times, possibly concurrently with further binding calls.
//
// A Registration durably retains the managed callback object and its
// user-data, keyed by the owning native resource in a Registry. Invocation
// runs inside an Attacher scope that binds the foreign thread to the
// runtime and guarantees detach on every exit path; a panicking managed
// callback is recovered, logged, and reported to the native invoker as a
// generic callback fault rather than silently swallowed.
package callback
