package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apierrors "salespulse/internal/errors"
	"salespulse/internal/middleware"
	"salespulse/internal/services"
	"salespulse/pkg/contracts/domain"
)

// MockReportService is a mock implementation of ReportServiceInterface
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) GenerateReports(ctx context.Context, format string) ([]string, error) {
	args := m.Called(format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockReportService) ListReports(ctx context.Context) ([]domain.ReportFile, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReportFile), args.Error(1)
}

func (m *MockReportService) DownloadReport(ctx context.Context, w http.ResponseWriter, r *http.Request, filename string) error {
	args := m.Called(w, r, filename)
	return args.Error(0)
}

func newReportsHandler(service ReportServiceInterface) *ReportsHandler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	errorHandler := apierrors.NewErrorHandler(logger, false)
	validation := middleware.NewValidationMiddleware(logger, errorHandler)
	return NewReportsHandler(service, validation, logger, errorHandler)
}

func TestReportsHandler_ListReports(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockReportService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "successful list",
			setupMock: func(m *MockReportService) {
				m.On("ListReports").Return([]domain.ReportFile{
					{Name: "sales_summary_2019_01_05.csv", SizeBytes: 120, ModifiedAt: time.Now(), Format: "csv"},
					{Name: "sales_report_2019_01_05.xlsx", SizeBytes: 8040, ModifiedAt: time.Now(), Format: "xlsx"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"count":2`,
		},
		{
			name: "empty reports directory",
			setupMock: func(m *MockReportService) {
				m.On("ListReports").Return([]domain.ReportFile{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"count":0`,
		},
		{
			name: "internal error",
			setupMock: func(m *MockReportService) {
				m.On("ListReports").Return(nil, errors.New("permission denied"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"Internal Server Error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockReportService)
			tt.setupMock(mockService)
			handler := newReportsHandler(mockService)

			req := httptest.NewRequest("GET", "/api/reports", nil)
			rec := httptest.NewRecorder()

			handler.ListReports(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestReportsHandler_GenerateReports(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockReportService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "empty body generates all formats",
			body: "",
			setupMock: func(m *MockReportService) {
				m.On("GenerateReports", "").Return([]string{
					"daily_sales_2019_01_05.csv",
					"sales_report_2019_01_05.xlsx",
					"sales_summary_2019_01_05.csv",
				}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"count":3`,
		},
		{
			name: "csv only",
			body: `{"format":"csv"}`,
			setupMock: func(m *MockReportService) {
				m.On("GenerateReports", "csv").Return([]string{
					"daily_sales_2019_01_05.csv",
					"sales_summary_2019_01_05.csv",
				}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"daily_sales_2019_01_05.csv"`,
		},
		{
			name:           "rejected format",
			body:           `{"format":"pdf"}`,
			setupMock:      func(m *MockReportService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"format"`,
		},
		{
			name:           "malformed body",
			body:           `{"format"`,
			setupMock:      func(m *MockReportService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"INVALID_REQUEST"`,
		},
		{
			name: "service rejects format",
			body: `{"format":"xlsx"}`,
			setupMock: func(m *MockReportService) {
				m.On("GenerateReports", "xlsx").Return(nil, services.ErrInvalidReportFormat)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"VALIDATION_FAILED"`,
		},
		{
			name: "export failure",
			body: "",
			setupMock: func(m *MockReportService) {
				m.On("GenerateReports", "").Return(nil, errors.New("disk full"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"Internal Server Error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockReportService)
			tt.setupMock(mockService)
			handler := newReportsHandler(mockService)

			var req *http.Request
			if tt.body == "" {
				req = httptest.NewRequest("POST", "/api/reports/generate", nil)
			} else {
				req = httptest.NewRequest("POST", "/api/reports/generate", strings.NewReader(tt.body))
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()

			handler.GenerateReports(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestReportsHandler_DownloadReport(t *testing.T) {
	tests := []struct {
		name           string
		filename       string
		setupMock      func(*MockReportService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:     "successful download",
			filename: "sales_summary_2019_01_05.csv",
			setupMock: func(m *MockReportService) {
				m.On("DownloadReport", mock.Anything, mock.Anything, "sales_summary_2019_01_05.csv").
					Run(func(args mock.Arguments) {
						w := args.Get(0).(http.ResponseWriter)
						w.Header().Set("Content-Type", "application/octet-stream")
						w.Write([]byte("Total Sales,Average Rating\n225.00,7.67\n"))
					}).
					Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "225.00",
		},
		{
			name:     "report not found",
			filename: "sales_summary_1999_01_01.csv",
			setupMock: func(m *MockReportService) {
				m.On("DownloadReport", mock.Anything, mock.Anything, "sales_summary_1999_01_01.csv").
					Return(services.ErrReportNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   apierrors.TypeReportNotFound,
		},
		{
			name:     "invalid name rejected",
			filename: "..hidden.csv",
			setupMock: func(m *MockReportService) {
				m.On("DownloadReport", mock.Anything, mock.Anything, "..hidden.csv").
					Return(services.ErrInvalidReportName)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid report name",
		},
		{
			name:     "unsupported extension",
			filename: "notes.txt",
			setupMock: func(m *MockReportService) {
				m.On("DownloadReport", mock.Anything, mock.Anything, "notes.txt").
					Return(services.ErrInvalidFileType)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "only csv and xlsx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockReportService)
			tt.setupMock(mockService)
			handler := newReportsHandler(mockService)

			r := chi.NewRouter()
			r.Get("/download/{filename}", handler.DownloadReport)

			req := httptest.NewRequest("GET", "/download/"+tt.filename, nil)
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
