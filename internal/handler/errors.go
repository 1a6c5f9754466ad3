// Package handler holds the JSON response helpers shared by the HTTP
// handlers.
//
// Every error leaves the API as
//
//	{"error": {"code": "...", "message": "..."}, "message": "..."}
//
// with the status derived from the domain error code. Internal errors are
// logged and reported to Sentry; callers only see a generic message.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/dukerupert/larder/internal/middleware"
	"github.com/dukerupert/larder/internal/telemetry"
)

// errorBody is the "error" object of an error response.
type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorResponse struct {
	Error   errorBody `json:"error"`
	Message string    `json:"message"`
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse logs err and writes it as a JSON error response.
// Validation errors carry their field map.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)
	status := ErrorCodeToHTTPStatus(code)

	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"op", domain.ErrorOp(err),
		"status", status,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]interface{}{
			"op":   domain.ErrorOp(err),
			"path": r.URL.Path,
		})
	} else {
		logger.Debug("request rejected", attrs...)
	}

	body := errorBody{Code: code, Message: message}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body.Fields = ve.Fields
		body.Message = validationMessage(ve)
		message = body.Message
	}

	JSON(w, status, errorResponse{Error: body, Message: message})
}

// validationMessage is the single field's message, or a summary when
// several fields failed.
func validationMessage(ve *domain.ValidationError) string {
	if len(ve.Fields) == 1 {
		for _, msg := range ve.Fields {
			return msg
		}
	}
	return "Validation failed"
}

// ValidationErrorResponse writes a 400 with the field errors of a
// domain.ValidationError. Other errors fall back to ErrorResponse.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, err)
}

// BadRequestResponse writes a 400 for malformed input.
func BadRequestResponse(w http.ResponseWriter, r *http.Request, message string) {
	ErrorResponse(w, r, domain.Invalid("", message))
}

// NotFoundResponse writes a 404 for unknown routes.
func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.ENOTFOUND, "", "The requested resource was not found"))
}

// MethodNotAllowedResponse writes a 405 for a known path requested with a
// method it does not serve.
func MethodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := fmt.Sprintf("Request method '%s' is not supported", r.Method)
	middleware.GetLogger(r.Context()).Debug("request rejected",
		"method", r.Method,
		"path", r.URL.Path,
		"allow", w.Header().Get("Allow"),
		"status", http.StatusMethodNotAllowed,
	)
	JSON(w, http.StatusMethodNotAllowed, errorResponse{
		Error:   errorBody{Code: "method_not_allowed", Message: message},
		Message: message,
	})
}

// UnauthorizedResponse writes a 401.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.ErrAuthenticationNeed)
}

// ForbiddenResponse writes a 403.
func ForbiddenResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Forbidden("", "You don't have permission to access this resource"))
}

// InternalErrorResponse wraps err as an internal error and writes a 500.
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, domain.Internal(err, "", "An unexpected error occurred"))
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// MessageResponse is the body of operations that only confirm success.
type MessageResponse struct {
	Message string `json:"message"`
}
