package fpdrv

import (
	"errors"
	"testing"

	"github.com/swipesensor/fpdrv/internal/aesdrv"
)

func TestStructuredError(t *testing.T) {
	err := NewError("Activate", KindProtocol, "bad init ack")

	if err.Op != "Activate" {
		t.Errorf("Expected Op=Activate, got %s", err.Op)
	}
	if err.Kind != KindProtocol {
		t.Errorf("Expected Kind=Protocol, got %s", err.Kind)
	}

	expected := "fpdrv: bad init ack (op=Activate)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestSessionError(t *testing.T) {
	err := NewSessionError("Capture", "sess-1", KindIO, "short read")

	if err.Session != "sess-1" {
		t.Errorf("Expected Session=sess-1, got %s", err.Session)
	}
	if err.Kind != KindIO {
		t.Errorf("Expected Kind=I/O, got %s", err.Kind)
	}
}

func TestWrapErrorClassifiesAesdrvProtocolError(t *testing.T) {
	inner := aesdrv.ErrProtocol
	err := WrapError("Capture", "sess-1", inner)

	if err.Kind != KindProtocol {
		t.Errorf("Expected Kind=Protocol, got %s", err.Kind)
	}
	if !errors.Is(err, inner) {
		t.Error("Expected wrapped error to satisfy errors.Is for the aesdrv sentinel")
	}
}

func TestWrapErrorClassifiesAesdrvCancelled(t *testing.T) {
	err := WrapError("FingerDetect", "sess-1", aesdrv.ErrCancelled)

	if err.Kind != KindCancelled {
		t.Errorf("Expected Kind=Cancelled, got %s", err.Kind)
	}
}

func TestWrapErrorClassifiesAesdrvIO(t *testing.T) {
	err := WrapError("Activate", "sess-1", aesdrv.ErrIO)

	if err.Kind != KindIO {
		t.Errorf("Expected Kind=I/O, got %s", err.Kind)
	}
}

func TestWrapErrorNilIsNil(t *testing.T) {
	if WrapError("Activate", "sess-1", nil) != nil {
		t.Error("Expected WrapError(nil) to return nil")
	}
}

func TestWrapErrorPreservesExistingStructuredError(t *testing.T) {
	orig := NewError("Capture", KindResource, "no transport")
	wrapped := WrapError("Run", "sess-2", orig)

	if wrapped.Kind != KindResource {
		t.Errorf("Expected Kind=Resource preserved, got %s", wrapped.Kind)
	}
	if wrapped.Op != "Run" {
		t.Errorf("Expected Op overridden to Run, got %s", wrapped.Op)
	}
	if wrapped.Session != "sess-2" {
		t.Errorf("Expected Session=sess-2, got %s", wrapped.Session)
	}
}

func TestIsKind(t *testing.T) {
	err := NewError("Activate", KindProtocol, "bad response")

	if !IsKind(err, KindProtocol) {
		t.Error("IsKind should return true for matching kind")
	}
	if IsKind(err, KindIO) {
		t.Error("IsKind should return false for non-matching kind")
	}
	if IsKind(nil, KindProtocol) {
		t.Error("IsKind should return false for nil error")
	}
}

func TestErrorIsComparesByKind(t *testing.T) {
	a := &Error{Kind: KindIO, Msg: "transfer failed"}
	b := &Error{Kind: KindIO, Msg: "a different message"}

	if !errors.Is(a, b) {
		t.Error("Expected two *Error values with the same Kind to satisfy errors.Is")
	}

	c := &Error{Kind: KindProtocol}
	if errors.Is(a, c) {
		t.Error("Expected *Error values with different Kinds not to satisfy errors.Is")
	}
}

func TestSentinelErrorsHaveResourceKind(t *testing.T) {
	for _, e := range []*Error{ErrNoTransport, ErrNotActivated, ErrAlreadyClosed} {
		if e.Kind != KindResource {
			t.Errorf("Expected sentinel %q to have Kind=Resource, got %s", e.Msg, e.Kind)
		}
	}
}
