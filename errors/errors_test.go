package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestError_Message(t *testing.T) {
	err := InvalidArgument(PhaseResolve, "buffer is neither direct nor slice-backed")
	msg := err.Error()

	if !strings.HasPrefix(msg, "[resolve] invalid_argument") {
		t.Fatalf("unexpected prefix: %q", msg)
	}
	if !strings.Contains(msg, "neither direct nor slice-backed") {
		t.Fatalf("detail missing: %q", msg)
	}
}

func TestError_Is(t *testing.T) {
	err := AllocationFailed(PhaseResolve, 64, nil)

	if !stderrors.Is(err, &Error{Phase: PhaseResolve, Kind: KindAllocation}) {
		t.Fatal("expected match on phase+kind")
	}
	if stderrors.Is(err, &Error{Phase: PhaseRelease, Kind: KindAllocation}) {
		t.Fatal("should not match different phase")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("mmap failed")
	err := AllocationFailed(PhaseResolve, 128, cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected unwrap to reach cause")
	}
	if !strings.Contains(err.Error(), "caused by: mmap failed") {
		t.Fatalf("cause missing from message: %q", err.Error())
	}
}

func TestCallbackFault_RetainsValue(t *testing.T) {
	err := CallbackFault("boom")
	if err.Value != "boom" {
		t.Fatalf("expected recovered value retained, got %v", err.Value)
	}
	if err.Kind != KindCallbackFault {
		t.Fatalf("unexpected kind %v", err.Kind)
	}
}

func TestAlreadyReleased(t *testing.T) {
	err := AlreadyReleased("pointer_list")
	if !strings.Contains(err.Error(), "released twice") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
