// Package marshal is the pointer-marshalling core of the binding. It
// resolves managed pointer-like objects to native addresses, tracks the
// bookkeeping needed to undo that resolution, and performs release and
// writeback after the native call returns.
//
// A Resolved record is strictly call-scoped: it is created at call entry
// and must be released before control returns to the caller. The release
// action is a pure function of the record's Kind. Indirection lists form a
// tree of child records owned by their parent and released as a unit.
package marshal
