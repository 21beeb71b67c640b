package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
)

type lineBody struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type orderBody struct {
	Lines  []lineBody `json:"lines" validate:"required,min=1,dive"`
	Reason string     `json:"reason" validate:"omitempty,notblank,max=10"`
}

func decode(t *testing.T, body string) (orderBody, error) {
	t.Helper()
	var dst orderBody
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return dst, DecodeJSONBody(r, &dst)
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, _ := appErr.Details().(map[string]string)
	return details
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	id := uuid.New()
	got, err := decode(t, `{"lines":[{"productId":"`+id.String()+`","quantity":2}]}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Lines[0].ProductID != id || got.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected decode %+v", got)
	}
}

func TestDecodeJSONBodyReportsNestedFields(t *testing.T) {
	_, err := decode(t, `{"lines":[{"productId":"00000000-0000-0000-0000-000000000000","quantity":0}]}`)
	details := detailsOf(t, err)
	if details["lines[0].productId"] != "is required" {
		t.Fatalf("expected nil uuid to be rejected, got %v", details)
	}
	if details["lines[0].quantity"] != "is required" {
		t.Fatalf("expected zero quantity to be rejected, got %v", details)
	}
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"unknown field": `{"lines":[],"extra":1}`,
		"trailing data": `{"lines":[{"productId":"` + uuid.NewString() + `","quantity":1}]} {}`,
		"wrong type":    `{"lines":"nope"}`,
		"no lines":      `{"lines":[]}`,
		"blank reason":  `{"lines":[{"productId":"` + uuid.NewString() + `","quantity":1}],"reason":"   "}`,
		"too large":     `{"reason":"` + strings.Repeat("x", MaxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		if _, err := decode(t, body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}
