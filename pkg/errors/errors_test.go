package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataFor(t *testing.T) {
	tests := map[Code]Metadata{
		CodeValidation:         {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true, ClientFault: true},
		CodeUnauthorized:       {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required", ClientFault: true},
		CodeNotFound:           {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found", ClientFault: true},
		CodeInvalidState:       {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition not permitted", DetailsAllowed: true, ClientFault: true},
		CodeInsufficientCredit: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "insufficient store credit", DetailsAllowed: true, ClientFault: true},
		CodeIdempotency:        {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true, ClientFault: true},
		CodeRateLimit:          {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "too many requests", Retryable: true, ClientFault: true},
		CodeUploadFailed:       {HTTPStatus: http.StatusBadGateway, PublicMessage: "upload failed", Retryable: true},
		CodeInternal:           {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
		CodeDependency:         {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
	}
	for code, want := range tests {
		if got := MetadataFor(code); got != want {
			t.Fatalf("%s: got %+v want %+v", code, got, want)
		}
	}
	if got := MetadataFor("SOMETHING_UNKNOWN"); got != MetadataFor(CodeInternal) {
		t.Fatalf("unknown codes should map to internal, got %+v", got)
	}
}

func TestEveryCodeHasMetadata(t *testing.T) {
	for _, code := range []Code{
		CodeValidation, CodeUnauthorized, CodeForbidden, CodeNotFound, CodeConflict, CodeInvalidState,
		CodeInsufficientCredit, CodeUploadFailed, CodeIdempotency, CodeRateLimit, CodeInternal, CodeDependency,
	} {
		if _, ok := codeTable[code]; !ok {
			t.Fatalf("%s has no metadata", code)
		}
	}
}

func TestErrorString(t *testing.T) {
	cases := map[string]*Error{
		"NOT_FOUND: order not found":                   New(CodeNotFound, "order not found"),
		"INTERNAL_ERROR: insert order: disk full":      Wrap(CodeInternal, stdErrors.New("disk full"), "insert order"),
		"VALIDATION_ERROR: quantity must be at most 5": Newf(CodeValidation, "quantity must be at most %d", 5),
		"CONFLICT": New(CodeConflict, ""),
	}
	for want, err := range cases {
		if got := err.Error(); got != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}
	var nilErr *Error
	if nilErr.Error() != "" || nilErr.Code() != CodeInternal || nilErr.WithDetails(1) != nil {
		t.Fatalf("nil receiver should be inert")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeInternal, cause, "insert order")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if Wrap(CodeConflict, nil, "dup").Unwrap() != nil {
		t.Fatalf("wrapping nil should not produce a cause")
	}
}

func TestCodeOfSeesThroughWrapping(t *testing.T) {
	typed := New(CodeInsufficientCredit, "balance too low").WithDetails(map[string]any{"balance": 10})
	wrapped := fmt.Errorf("checkout: %w", typed)

	if got := CodeOf(wrapped); got != CodeInsufficientCredit {
		t.Fatalf("expected insufficient credit, got %s", got)
	}
	if got := CodeOf(stdErrors.New("plain")); got != CodeInternal {
		t.Fatalf("plain errors should map to internal, got %s", got)
	}
	if CodeOf(nil) != "" || IsCode(nil, CodeInternal) {
		t.Fatalf("nil error should have no code")
	}
	if As(wrapped).Details() == nil {
		t.Fatalf("details lost")
	}
}
