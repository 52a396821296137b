// Package errors provides structured error types for the binding layer.
//
// Errors carry a Phase (where in the call sequence the fault occurred) and
// a Kind (what went wrong), so callers can match with errors.Is against a
// prototype instead of parsing messages. Native status codes are never
// represented as errors; they are returned as cl.Status values, which is
// the expected way a systems-level caller observes native failure.
package errors
