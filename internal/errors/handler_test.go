package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/shared/testutil"
)

func TestNewErrorHandler(t *testing.T) {
	tests := []struct {
		name         string
		includeStack bool
	}{
		{
			name:         "with stack traces",
			includeStack: true,
		},
		{
			name:         "without stack traces",
			includeStack: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)

			handler := NewErrorHandler(logger, tt.includeStack)

			require.NotNil(t, handler)
			assert.Equal(t, tt.includeStack, handler.includeStack)
			assert.NotNil(t, handler.logger)
		})
	}
}

func TestErrorHandler_ErrorToProblem(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "deadline exceeded maps to timeout",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "cancelled context maps to timeout",
			err:        context.Canceled,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "wrapped deadline is still detected",
			err:        fmt.Errorf("loading dataset: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "dataset not found api error",
			err:        DatasetNotFoundError("csv_files/supermarket_sales.csv"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeDatasetNotFound,
		},
		{
			name:       "report not found api error",
			err:        ErrReportNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   TypeReportNotFound,
		},
		{
			name:       "dataset parse api error",
			err:        DatasetParseError(errors.New("bad row")),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeDatasetParse,
		},
		{
			name:       "rate limit api error",
			err:        ErrRateLimitExceeded,
			wantStatus: http.StatusTooManyRequests,
			wantType:   TypeRateLimit,
		},
		{
			name:       "websocket upgrade api error",
			err:        ErrWebSocketUpgrade,
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeWebSocketUpgrade,
		},
		{
			name:       "app not found error",
			err:        NewNotFoundError("sales data file"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeDatasetNotFound,
		},
		{
			name:       "app parsing error",
			err:        NewParsingError("cannot parse date", errors.New("bad layout")),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeDatasetParse,
		},
		{
			name:       "app validation error",
			err:        NewAppValidationError("missing required column: Rating"),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeMissingColumn,
		},
		{
			name:       "app storage error",
			err:        NewStorageError("cannot read data file", errors.New("io error")),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
		{
			name:       "wrapped app error",
			err:        fmt.Errorf("refresh: %w", NewParsingError("bad row", nil)),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeDatasetParse,
		},
		{
			name:       "plain not found message",
			err:        errors.New("report not found"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "plain rate limit message",
			err:        errors.New("rate limit exceeded for client"),
			wantStatus: http.StatusTooManyRequests,
			wantType:   TypeRateLimit,
		},
		{
			name:       "unknown error falls back to internal",
			err:        errors.New("something unexpected"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sales/summary", nil)

			problem := handler.ErrorToProblem(tt.err, req)

			require.NotNil(t, problem)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/sales/summary", problem.Instance)
		})
	}
}

func TestErrorHandler_ErrorToProblem_Extensions(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)
	req := httptest.NewRequest(http.MethodGet, "/api/sales/daily", nil)

	t.Run("api error carries error code", func(t *testing.T) {
		problem := handler.ErrorToProblem(DatasetNotFoundError("csv_files/supermarket_sales.csv"), req)

		assert.Equal(t, "DATASET_NOT_FOUND", problem.Extensions["error_code"])
		assert.Equal(t, "csv_files/supermarket_sales.csv", problem.Extensions["details"])
	})

	t.Run("app error carries error type and context", func(t *testing.T) {
		appErr := NewParsingError("bad date", nil).WithContext("row", 5)

		problem := handler.ErrorToProblem(appErr, req)

		assert.Equal(t, "PARSING", problem.Extensions["error_type"])
		ctx, ok := problem.Extensions["context"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, 5, ctx["row"])
	})

	t.Run("rate limit fallback sets retry hint", func(t *testing.T) {
		problem := handler.ErrorToProblem(errors.New("rate limit hit"), req)

		assert.Equal(t, 60, problem.Extensions["retry_after"])
	})
}

func TestErrorHandler_HandleError(t *testing.T) {
	t.Run("nil error writes nothing", func(t *testing.T) {
		logger, rec := testutil.NewTestLogger(t)
		handler := NewErrorHandler(logger, false)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/sales/summary", nil)

		handler.HandleError(w, req, nil)

		assert.Empty(t, w.Body.String())
		assert.Equal(t, 0, rec.Count())
	})

	t.Run("writes problem details and logs", func(t *testing.T) {
		logger, logRec := testutil.NewTestLogger(t)
		handler := NewErrorHandler(logger, false)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/sales/summary", nil)

		handler.HandleError(w, req, DatasetNotFoundError("csv_files/supermarket_sales.csv"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, TypeDatasetNotFound, body["type"])
		assert.EqualValues(t, http.StatusNotFound, body["status"])
		assert.Contains(t, body, "trace_id")
		assert.NotContains(t, body, "stack")

		assert.True(t, logRec.HasMessage("request failed"))
		assert.True(t, logRec.HasAttr("path", "/api/sales/summary"))
	})

	t.Run("includes stack when enabled", func(t *testing.T) {
		logger, _ := testutil.NewTestLogger(t)
		handler := NewErrorHandler(logger, true)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/sales/summary", nil)

		handler.HandleError(w, req, errors.New("boom"))

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Contains(t, body, "stack")
	})
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logRec := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/reports/generate", nil)

	handler.HandlePanic(w, req, "unexpected nil dataset")

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeInternal, body["type"])
	assert.Equal(t, "unexpected nil dataset", body["panic"])
	assert.Contains(t, body, "stack")

	assert.True(t, logRec.HasMessage("panic recovered"))
}

func TestErrorHandler_NotFound(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)

	handler.NotFound(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeNotFound, body["type"])
	assert.Equal(t, "/api/unknown", body["instance"])
}

func TestErrorHandler_MethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/sales/summary", nil)

	handler.MethodNotAllowed(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["detail"], "DELETE")
}

func TestErrorHandler_JSON(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)

	handler.JSON(w, req, http.StatusAccepted, map[string]string{"status": "refreshing"})

	assert.Equal(t, http.StatusAccepted, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "refreshing", body["status"])
}
