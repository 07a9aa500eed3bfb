package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
)

type claimRequest struct {
	CourseID string `json:"courseId" validate:"required,uuid"`
	Amount   int    `json:"amount" validate:"min=1"`
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"courseId":"x","extra":1}`))
	var dest claimRequest
	err := DecodeJSONBody(req, &dest)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"courseId":"not-a-uuid","amount":0}`))
	var dest claimRequest
	err := DecodeJSONBody(req, &dest)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if _, ok := details["courseId"]; !ok {
		t.Fatalf("missing courseId detail: %v", details)
	}
	if details["amount"] != "must be at least 1" {
		t.Fatalf("unexpected amount detail %q", details["amount"])
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=30", nil)
	v, err := ParseQueryInt(req, "limit", 20, 1, 100)
	if err != nil || v != 30 {
		t.Fatalf("expected 30, got %d (%v)", v, err)
	}
	req = httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 20, 1, 100); err == nil {
		t.Fatalf("expected out of range error")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if v, _ := ParseQueryInt(req, "limit", 20, 1, 100); v != 20 {
		t.Fatalf("expected default, got %d", v)
	}
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "courseId", id.String())
	got, err := ParseUUIDParam(req, "courseId")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id, got, err)
	}

	req = withParam(httptest.NewRequest(http.MethodGet, "/", nil), "courseId", "nope")
	if _, err := ParseUUIDParam(req, "courseId"); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseSlugParam(t *testing.T) {
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "slug", "  Go-Basics ")
	got, err := ParseSlugParam(req, "slug")
	if err != nil || got != "go-basics" {
		t.Fatalf("expected go-basics, got %q (%v)", got, err)
	}
}

type priceRequest struct {
	Currency string `json:"currency" validate:"omitempty,currency"`
	Method   string `json:"method" validate:"required,payment_method"`
	Outcome  string `json:"outcome" validate:"omitempty,payment_outcome"`
}

func TestDomainTags(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"currency":"usd","method":"MercadoPago","outcome":"Rejected"}`))
	var ok priceRequest
	if err := DecodeJSONBody(req, &ok); err != nil {
		t.Fatalf("expected valid body, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"currency":"EUR","method":"crypto","outcome":"pending"}`))
	var bad priceRequest
	typed := pkgerrors.As(DecodeJSONBody(req, &bad))
	if typed == nil {
		t.Fatalf("expected validation error")
	}
	details := typed.Details().(map[string]string)
	for _, field := range []string{"currency", "method", "outcome"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("missing %s detail in %v", field, details)
		}
	}
}

func TestDecodeJSONBodyEmptyAndTrailing(t *testing.T) {
	var dest priceRequest
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	if typed := pkgerrors.As(DecodeJSONBody(req, &dest)); typed == nil || typed.Message() != "request body is required" {
		t.Fatalf("expected empty body error, got %v", typed)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"method":"mercadopago"}{"method":"mercadopago"}`))
	if err := DecodeJSONBody(req, &dest); err == nil {
		t.Fatalf("expected trailing object to be rejected")
	}
}

func TestParseSlugParamRejectsBlank(t *testing.T) {
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "slug", "   ")
	if _, err := ParseSlugParam(req, "slug"); err == nil {
		t.Fatalf("expected blank slug error")
	}
}
