package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "salespulse/internal/errors"
	"salespulse/internal/shared/testutil"
	v1 "salespulse/pkg/contracts/api/v1"
)

func newValidationMiddleware(t *testing.T) *ValidationMiddleware {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))
}

func TestValidateStructDateRange(t *testing.T) {
	m := newValidationMiddleware(t)

	tests := []struct {
		name    string
		request v1.DateRangeRequest
		wantErr bool
	}{
		{name: "empty range", request: v1.DateRangeRequest{}, wantErr: false},
		{name: "valid bounds", request: v1.DateRangeRequest{From: "2019-01-05", To: "2019-01-06"}, wantErr: false},
		{name: "from only", request: v1.DateRangeRequest{From: "2019-01-05"}, wantErr: false},
		{name: "wrong format", request: v1.DateRangeRequest{From: "05/01/2019"}, wantErr: true},
		{name: "not a date", request: v1.DateRangeRequest{To: "soon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.ValidateStruct(tt.request)
			if tt.wantErr {
				require.Error(t, err)

				var apiErr *apierrors.APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateStructGenerateRequest(t *testing.T) {
	m := newValidationMiddleware(t)

	assert.NoError(t, m.ValidateStruct(v1.GenerateReportsRequest{}))
	assert.NoError(t, m.ValidateStruct(v1.GenerateReportsRequest{Format: "csv"}))
	assert.NoError(t, m.ValidateStruct(v1.GenerateReportsRequest{Format: "xlsx"}))
	assert.NoError(t, m.ValidateStruct(v1.GenerateReportsRequest{Format: "all"}))

	err := m.ValidateStruct(v1.GenerateReportsRequest{Format: "pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestFilenameValidator(t *testing.T) {
	m := newValidationMiddleware(t)

	type downloadRequest struct {
		Name string `json:"name" validate:"required,filename"`
	}

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "plain name", value: "sales_summary_2019_01_05.csv", wantErr: false},
		{name: "empty", value: "", wantErr: true},
		{name: "traversal", value: "../secrets.csv", wantErr: true},
		{name: "path separator", value: "reports/summary.csv", wantErr: true},
		{name: "backslash", value: `reports\summary.csv`, wantErr: true},
		{name: "too long", value: strings.Repeat("a", 256) + ".csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.ValidateStruct(downloadRequest{Name: tt.value})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRequestInvalidJSON(t *testing.T) {
	m := newValidationMiddleware(t)
	handler := m.ValidateRequest(okHandler())

	req := httptest.NewRequest("POST", "/api/reports/generate", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON")
}

func TestValidateRequestPayloadTooLarge(t *testing.T) {
	m := newValidationMiddleware(t)
	handler := m.ValidateRequest(okHandler())

	req := httptest.NewRequest("POST", "/api/reports/generate", strings.NewReader("{}"))
	req.ContentLength = 10 * 1024 * 1024
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestValidateRequestPassesReads(t *testing.T) {
	m := newValidationMiddleware(t)
	handler := m.ValidateRequest(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/sales/summary", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestValidateRequestRestoresBody(t *testing.T) {
	m := newValidationMiddleware(t)

	var seen string
	handler := m.ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		seen = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"force":true}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"force":true}`, seen)
}

func TestContentTypeValidator(t *testing.T) {
	handler := ContentTypeValidator("application/json")(okHandler())

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantStatus  int
	}{
		{name: "json accepted", method: "POST", contentType: "application/json", body: "{}", wantStatus: http.StatusOK},
		{name: "charset suffix accepted", method: "POST", contentType: "application/json; charset=utf-8", body: "{}", wantStatus: http.StatusOK},
		{name: "plain text rejected", method: "POST", contentType: "text/plain", body: "hi", wantStatus: http.StatusUnsupportedMediaType},
		{name: "missing type rejected", method: "POST", contentType: "", body: "{}", wantStatus: http.StatusBadRequest},
		{name: "bodyless post allowed", method: "POST", contentType: "", body: "", wantStatus: http.StatusOK},
		{name: "get ignored", method: "GET", contentType: "", body: "", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			} else {
				req = httptest.NewRequest(tt.method, "/", nil)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
