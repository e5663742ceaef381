package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "salespulse/internal/errors"
	"salespulse/internal/middleware"
	v1 "salespulse/pkg/contracts/api/v1"
)

// SalesHandler serves dataset queries under /api/sales.
type SalesHandler struct {
	service      SalesServiceInterface
	validation   *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSalesHandler creates a sales handler with the given service
func NewSalesHandler(service SalesServiceInterface, validation *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SalesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SalesHandler{
		service:      service,
		validation:   validation,
		logger:       logger.With(slog.String("component", "sales_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the router for sales endpoints
func (h *SalesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/summary", h.GetSummary)
	r.Get("/daily", h.GetDailySales)
	r.Get("/chart", h.GetChart)
	r.Get("/dataset", h.GetDatasetInfo)
	r.Post("/refresh", h.Refresh)

	return r
}

// GetSummary handles GET /api/sales/summary
func (h *SalesHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.service.Summary(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// GetDailySales handles GET /api/sales/daily with optional from/to query
// parameters bounding the series to an inclusive date range.
func (h *SalesHandler) GetDailySales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := v1.DateRangeRequest{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if req.From != "" && req.To != "" && req.From > req.To {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("from", "must not be after to"))
		return
	}

	series, err := h.service.DailySales(ctx, req.From, req.To)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   series,
		"count":  len(series),
	})
}

// GetChart handles GET /api/sales/chart
func (h *SalesHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	figure, err := h.service.Chart(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   figure,
	})
}

// GetDatasetInfo handles GET /api/sales/dataset
func (h *SalesHandler) GetDatasetInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := h.service.DatasetInfo(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   info,
	})
}

// Refresh handles POST /api/sales/refresh. The body is optional; when
// present it may carry {"force": true} to bypass the modification-time
// check and re-read the file unconditionally.
func (h *SalesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req v1.RefreshRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
	}

	h.logger.InfoContext(ctx, "dataset refresh requested",
		slog.Bool("force", req.Force))

	result, err := h.service.Refresh(ctx, req.Force)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
	})
}
