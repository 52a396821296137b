package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in a native call the error occurred
type Phase string

const (
	PhaseResolve  Phase = "resolve"  // pointer resolution, managed to native
	PhaseRelease  Phase = "release"  // release and writeback, native to managed
	PhaseMarshal  Phase = "marshal"  // list/array marshalling
	PhaseCallback Phase = "callback" // foreign-thread callback re-entry
	PhaseDriver   Phase = "driver"   // native driver operations
)

// Kind categorizes the error
type Kind string

const (
	KindAllocation      Kind = "allocation"
	KindInvalidArgument Kind = "invalid_argument"
	KindNilPointer      Kind = "nil_pointer"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindAlreadyReleased Kind = "already_released"
	KindNotRegistered   Kind = "not_registered"
	KindCallbackFault   Kind = "callback_fault"
	KindUnsupported     Kind = "unsupported"
)

// Error is the structured error type used throughout the binding.
// Native status codes are NOT errors; they travel on the cl.Status return
// channel. An Error is raised only for faults in the binding layer itself.
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Convenience constructors for common error patterns

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size int, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// InvalidArgument creates an invalid argument error
func InvalidArgument(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArgument,
		Detail: detail,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// AlreadyReleased creates an error for a second release of the same record
func AlreadyReleased(kind string) *Error {
	return &Error{
		Phase:  PhaseRelease,
		Kind:   KindAlreadyReleased,
		Detail: fmt.Sprintf("resolved pointer (%s) released twice", kind),
	}
}

// NotRegistered creates an error for a callback lookup miss
func NotRegistered(handle uint64) *Error {
	return &Error{
		Phase:  PhaseCallback,
		Kind:   KindNotRegistered,
		Detail: fmt.Sprintf("no callback registration for handle 0x%x", handle),
		Value:  handle,
	}
}

// CallbackFault creates the generic fault reported to the native invoker
// when a managed callback panicked on a foreign thread. The original panic
// value is retained as Value for logging but the fault itself is generic.
func CallbackFault(recovered any) *Error {
	return &Error{
		Phase:  PhaseCallback,
		Kind:   KindCallbackFault,
		Detail: "managed callback raised during native invocation",
		Value:  recovered,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Materialize creates an error for a failed wrapper materialization
func Materialize(goType string, index int) *Error {
	return &Error{
		Phase:  PhaseRelease,
		Kind:   KindInvalidArgument,
		GoType: goType,
		Path:   []string{fmt.Sprintf("[%d]", index)},
		Detail: "cannot materialize wrapper for element type",
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
