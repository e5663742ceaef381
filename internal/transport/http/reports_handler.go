package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "salespulse/internal/errors"
	"salespulse/internal/middleware"
	"salespulse/internal/services"
	v1 "salespulse/pkg/contracts/api/v1"
)

// ReportsHandler serves report generation and download under /api/reports.
type ReportsHandler struct {
	service      ReportServiceInterface
	validation   *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportsHandler creates a reports handler with the given service
func NewReportsHandler(service ReportServiceInterface, validation *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportsHandler{
		service:      service,
		validation:   validation,
		logger:       logger.With(slog.String("component", "reports_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the router for report endpoints
func (h *ReportsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListReports)
	r.Post("/generate", h.GenerateReports)
	r.Get("/download/{filename}", h.DownloadReport)

	return r
}

// ListReports handles GET /api/reports
func (h *ReportsHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reports, err := h.service.ListReports(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   reports,
		"count":  len(reports),
	})
}

// GenerateReports handles POST /api/reports/generate. The body is
// optional; an empty body or empty format generates every format.
func (h *ReportsHandler) GenerateReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req v1.GenerateReportsRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "report generation requested",
		slog.String("format", req.Format))

	files, err := h.service.GenerateReports(ctx, req.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.mapReportError(err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"files": files},
		"count":  len(files),
	})
}

// DownloadReport handles GET /api/reports/download/{filename}
func (h *ReportsHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filename := chi.URLParam(r, "filename")
	if err := h.service.DownloadReport(ctx, w, r, filename); err != nil {
		h.errorHandler.HandleError(w, r, h.mapReportError(err))
		return
	}
}

// mapReportError translates service sentinels into API errors so the
// problem responses carry the right status and code.
func (h *ReportsHandler) mapReportError(err error) error {
	switch {
	case errors.Is(err, services.ErrReportNotFound):
		return apierrors.ErrReportNotFound
	case errors.Is(err, services.ErrInvalidReportName):
		return apierrors.ErrValidation("filename", "invalid report name")
	case errors.Is(err, services.ErrInvalidFileType):
		return apierrors.ErrValidation("filename", "only csv and xlsx reports can be downloaded")
	case errors.Is(err, services.ErrInvalidReportFormat):
		return apierrors.ErrValidation("format", "must be one of csv, xlsx, all")
	default:
		return err
	}
}
