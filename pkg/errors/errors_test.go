package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:        http.StatusBadRequest,
		CodeUnauthorized:      http.StatusUnauthorized,
		CodeForbidden:         http.StatusForbidden,
		CodeNotFound:          http.StatusNotFound,
		CodeStateConflict:     http.StatusUnprocessableEntity,
		CodeUnsupportedToken:  http.StatusUnprocessableEntity,
		CodeInsufficientFunds: http.StatusUnprocessableEntity,
		CodeExpiredSignature:  http.StatusUnprocessableEntity,
		CodeInvalidSignature:  http.StatusUnprocessableEntity,
		CodeInternal:          http.StatusInternalServerError,
	}
	for code, status := range cases {
		if got := MetadataFor(code).HTTPStatus; got != status {
			t.Errorf("code %s: expected status %d, got %d", code, status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("ledger rejected transfer")
	err := Wrap(CodeInsufficientFunds, cause, "pull escrow")
	if err.Unwrap() != cause {
		t.Fatal("cause not preserved")
	}
	if As(err).Code() != CodeInsufficientFunds {
		t.Fatalf("unexpected code %s", As(err).Code())
	}
}

func TestAsThroughWrapping(t *testing.T) {
	inner := New(CodeStateConflict, "payment already finalized")
	outer := fmt.Errorf("finalize: %w", inner)
	typed := As(outer)
	if typed == nil || typed.Code() != CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", typed)
	}
}

func TestDumpIncludesChain(t *testing.T) {
	err := Wrap(CodeDependency, fmt.Errorf("conn refused"), "redis")
	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("unexpected code %s", d.Code)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected chain of length >= 2, got %d", len(d.Chain))
	}
}
