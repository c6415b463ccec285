package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jbaudry/previsk/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EPAYMENT, http.StatusPaymentRequired},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EGONE, http.StatusGone},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EQUOTA, http.StatusTooManyRequests},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{domain.ENOTIMPL, http.StatusNotImplemented},
		{domain.EUNAVAILABLE, http.StatusServiceUnavailable},
		{"bogus", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ErrorCodeToHTTPStatus(tt.code); got != tt.want {
				t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestErrorResponse_WritesJSONBody(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/evaluations", nil)
	rec := httptest.NewRecorder()

	err := domain.NotFound("evaluation.get", "evaluation", "abc")
	ErrorResponse(rec, req, testLogger(), err)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}

	var body JSONError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Error.Code != domain.ENOTFOUND {
		t.Errorf("error code = %q, want %q", body.Error.Code, domain.ENOTFOUND)
	}
	if body.Error.Message == "" {
		t.Error("expected a human-readable message")
	}
}

func TestErrorResponse_QuotaExceeded(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/evaluations", nil)
	rec := httptest.NewRecorder()

	err := domain.QuotaExceeded("evaluation.create", domain.FeatureRisksPerMonth, 25, 25)
	ErrorResponse(rec, req, testLogger(), err)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}

	var body JSONError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Error.Code != domain.EQUOTA {
		t.Errorf("error code = %q, want %q", body.Error.Code, domain.EQUOTA)
	}
}

func TestValidationErrorResponse_FieldErrors(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/companies", nil)
	rec := httptest.NewRecorder()

	ve := domain.NewValidationError("company.create", "name", "Name is required")
	ve = domain.AddFieldError(ve, "headcount", "Headcount must be positive")

	ValidationErrorResponse(rec, req, testLogger(), ve)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var body JSONError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Error.Code != domain.EINVALID {
		t.Errorf("error code = %q, want %q", body.Error.Code, domain.EINVALID)
	}
	if len(body.Error.Fields) != 2 {
		t.Errorf("field count = %d, want 2", len(body.Error.Fields))
	}
	if body.Error.Fields["name"] == "" {
		t.Error("expected a field error for name")
	}
}

func TestValidationErrorResponse_FallsBackForPlainErrors(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/companies", nil)
	rec := httptest.NewRecorder()

	err := domain.Forbidden("company.create", "read-only role")
	ValidationErrorResponse(rec, req, testLogger(), err)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestInternalErrorResponse_HidesDetails(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/usage", nil)
	rec := httptest.NewRecorder()

	InternalErrorResponse(rec, req, testLogger(), errTestSentinel)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	var body JSONError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Error.Message == errTestSentinel.Error() {
		t.Error("internal error details must not leak to the client")
	}
}

var errTestSentinel = &domain.Error{Code: domain.EINTERNAL, Message: "database connection string with secrets"}
