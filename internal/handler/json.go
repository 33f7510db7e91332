package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeUserExists         = "USER_EXISTS"
	CodeDuplicateEntry     = "DUPLICATE_ENTRY"
	CodeVersionConflict    = "VERSION_CONFLICT"
	CodeMetricsLocked      = "METRICS_LOCKED"
	CodeInternalError      = "INTERNAL_ERROR"
)

type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ResponseError struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []FieldDetail `json:"details,omitempty"`
}

// Response is the uniform envelope every endpoint returns.
type Response struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ResponseError `json:"error,omitempty"`
}

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("internal server error", "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
	}
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	h.writeJSON(w, r, status, Response{
		Success: true,
		Data:    data,
	})
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, code string, message string, details []FieldDetail) {
	h.writeJSON(w, r, status, Response{
		Success: false,
		Error: &ResponseError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// badRequest turns validation failures into structured 400 responses with
// field-level detail. Non-validator errors pass through with their message.
func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		h.errorResponse(w, r, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}

	details := make([]FieldDetail, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details = append(details, FieldDetail{
			Field:   fieldErr.Field(),
			Message: fieldErr.Translate(h.translator),
		})
	}
	h.errorResponse(w, r, http.StatusBadRequest, CodeValidationError, "Invalid input data", details)
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request, code string, message string) {
	h.errorResponse(w, r, http.StatusUnauthorized, code, message, nil)
}

func (h *Handler) forbidden(w http.ResponseWriter, r *http.Request) {
	h.errorResponse(w, r, http.StatusForbidden, CodeForbidden, "Insufficient permissions", nil)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, message string) {
	h.errorResponse(w, r, http.StatusNotFound, CodeNotFound, message, nil)
}

func (h *Handler) conflict(w http.ResponseWriter, r *http.Request, code string, message string) {
	h.errorResponse(w, r, http.StatusConflict, code, message, nil)
}

func (h *Handler) locked(w http.ResponseWriter, r *http.Request, message string) {
	h.errorResponse(w, r, http.StatusLocked, CodeMetricsLocked, message, nil)
}

// internalServerError logs the cause and returns a generic 500; internals are
// never leaked to the caller.
func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.errorResponse(w, r, http.StatusInternalServerError, CodeInternalError, "An unexpected error occurred", nil)
}
