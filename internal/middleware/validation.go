package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "salespulse/internal/errors"
)

// maxRequestBody bounds what ValidateRequest will buffer.
const maxRequestBody = 1 << 20

// ValidationMiddleware screens request bodies before handlers decode
// them and validates request structs against their tags.
type ValidationMiddleware struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	maxBodySize  int64
}

// NewValidationMiddleware creates the middleware with the custom
// validators the request contracts use. Field names in error details
// follow the json tags.
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationMiddleware {
	v := validator.New()
	v.RegisterValidation("filename", isValidFilename)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &ValidationMiddleware{
		validator:    v,
		logger:       logger.With(slog.String("component", "validation_middleware")),
		errorHandler: errorHandler,
		maxBodySize:  maxRequestBody,
	}
}

// ValidateRequest rejects oversized bodies and invalid JSON before the
// handler decodes anything. GET, HEAD and OPTIONS pass through, and the
// buffered body is restored for the handler.
func (m *ValidationMiddleware) ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > m.maxBodySize {
			m.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
				"Request body exceeds maximum allowed size",
				map[string]interface{}{
					"max_size": m.maxBodySize,
					"size":     r.ContentLength,
				},
			))
			return
		}

		if r.Body != nil && r.ContentLength > 0 {
			body, err := io.ReadAll(io.LimitReader(r.Body, m.maxBodySize))
			if err != nil {
				m.logger.ErrorContext(r.Context(), "failed to read request body",
					slog.String("error", err.Error()))
				m.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			if len(body) > 0 && !json.Valid(body) {
				m.errorHandler.HandleError(w, r, apierrors.New(
					http.StatusBadRequest,
					"INVALID_JSON",
					"Request body contains invalid JSON",
				))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// ValidateStruct runs tag validation on v and converts any failures to
// one APIError listing every bad field.
func (m *ValidationMiddleware) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fields []apierrors.ValidationError
	for _, fe := range err.(validator.ValidationErrors) {
		fields = append(fields, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: describeFieldError(fe),
		})
	}
	return apierrors.NewValidationErrors(fields)
}

// ContentTypeValidator ensures mutating requests carry one of the
// allowed content types. Reads and bodyless requests pass through, so a
// bare POST refresh stays valid.
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodDelete:
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, apierrors.New(
					http.StatusBadRequest,
					"MISSING_CONTENT_TYPE",
					"Content-Type header is required",
				))
				return
			}

			if !typeAllowed(contentType, contentTypes) {
				render.Status(r, http.StatusUnsupportedMediaType)
				render.JSON(w, r, apierrors.NewWithDetails(
					http.StatusUnsupportedMediaType,
					"UNSUPPORTED_MEDIA_TYPE",
					"Unsupported content type",
					map[string]interface{}{
						"content_type": contentType,
						"allowed":      contentTypes,
					},
				))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// typeAllowed matches on the media-type prefix so charset suffixes pass.
func typeAllowed(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

// fieldErrorTemplates maps validation tags to message templates taking
// the field name and, where relevant, the tag parameter.
var fieldErrorTemplates = map[string]string{
	"required": "%[1]s is required",
	"min":      "%[1]s must be at least %[2]s",
	"max":      "%[1]s must be at most %[2]s",
	"oneof":    "%[1]s must be one of: %[2]s",
	"datetime": "%[1]s must be a date in %[2]s format",
	"filename": "%[1]s must be a valid filename",
	"gte":      "%[1]s must be greater than or equal to %[2]s",
	"lte":      "%[1]s must be less than or equal to %[2]s",
}

func describeFieldError(fe validator.FieldError) string {
	param := fe.Param()
	if fe.Tag() == "oneof" {
		param = strings.ReplaceAll(param, " ", ", ")
	}
	if tmpl, ok := fieldErrorTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field(), param)
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

// isValidFilename rejects names that could escape the reports directory.
func isValidFilename(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || len(name) > 255 {
		return false
	}
	return !strings.Contains(name, "..") && !strings.ContainsAny(name, `/\`)
}
