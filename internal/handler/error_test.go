package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/larder/internal/domain"
)

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Message string `json:"message"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var response errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return response
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ErrorCodeToHTTPStatus(tt.code); got != tt.expected {
				t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.expected)
			}
		})
	}
}

func TestErrorResponse_JSON(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedCode    string
		expectedMessage string
	}{
		{
			name:            "not found error",
			err:             domain.NotFoundWith("cart.get", "Cart", "cartId", "abc-123"),
			expectedStatus:  http.StatusNotFound,
			expectedCode:    domain.ENOTFOUND,
			expectedMessage: "Cart not found with cartId: abc-123",
		},
		{
			name:            "validation failure",
			err:             domain.Invalid("cart.add_item", "Product Salt already exists in the cart"),
			expectedStatus:  http.StatusBadRequest,
			expectedCode:    domain.EINVALID,
			expectedMessage: "Product Salt already exists in the cart",
		},
		{
			name:            "unauthorized",
			err:             domain.ErrAuthenticationNeed,
			expectedStatus:  http.StatusUnauthorized,
			expectedCode:    domain.EUNAUTHORIZED,
			expectedMessage: "Full authentication is required to access this resource",
		},
		{
			name:           "forbidden error",
			err:            domain.Forbidden("product.delete", "not authorized"),
			expectedStatus: http.StatusForbidden,
			expectedCode:   domain.EFORBIDDEN,
		},
		{
			name:           "conflict",
			err:            domain.ErrUsernameTaken,
			expectedStatus: http.StatusConflict,
			expectedCode:   domain.ECONFLICT,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			rec := httptest.NewRecorder()

			ErrorResponse(rec, req, tt.err)

			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.expectedStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want %q", ct, "application/json")
			}

			response := decodeEnvelope(t, rec)
			if response.Error.Code != tt.expectedCode {
				t.Errorf("error.code = %q, want %q", response.Error.Code, tt.expectedCode)
			}
			if response.Message != response.Error.Message {
				t.Errorf("message = %q, want it to mirror error.message %q", response.Message, response.Error.Message)
			}
			if tt.expectedMessage != "" && response.Error.Message != tt.expectedMessage {
				t.Errorf("error.message = %q, want %q", response.Error.Message, tt.expectedMessage)
			}
		})
	}
}

func TestErrorResponse_InternalHidesDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	// Internal error with sensitive details
	err := domain.Internal(nil, "db.query", "failed to connect to database at 192.168.1.100:5432")
	ErrorResponse(rec, req, err)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	response := decodeEnvelope(t, rec)
	expected := "An internal error occurred. Please try again later."
	if response.Error.Message != expected {
		t.Errorf("message = %q, want %q", response.Error.Message, expected)
	}
}

func TestValidationErrorResponse_JSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	rec := httptest.NewRecorder()

	err := domain.NewValidationError("product.create", "productName", "productName is required")
	err = domain.AddFieldError(err, "price", "price must be positive")

	ValidationErrorResponse(rec, req, err)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	response := decodeEnvelope(t, rec)
	if response.Error.Code != domain.EINVALID {
		t.Errorf("error.code = %q, want %q", response.Error.Code, domain.EINVALID)
	}
	if len(response.Error.Fields) != 2 {
		t.Errorf("fields count = %d, want 2", len(response.Error.Fields))
	}
	if response.Error.Fields["productName"] != "productName is required" {
		t.Errorf("fields[productName] = %q", response.Error.Fields["productName"])
	}
	if response.Error.Message != "Validation failed" {
		t.Errorf("error.message = %q, want summary", response.Error.Message)
	}
}

func TestValidationErrorResponse_SingleFieldUsesItsMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	rec := httptest.NewRecorder()

	ValidationErrorResponse(rec, req, domain.NewValidationError("account.register", "password", "password too short"))

	response := decodeEnvelope(t, rec)
	if response.Message != "password too short" {
		t.Errorf("message = %q", response.Message)
	}
}

func TestValidationErrorResponse_NonValidationError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	rec := httptest.NewRecorder()

	err := domain.NotFoundWith("product.get", "Product", "productId", "123")
	ValidationErrorResponse(rec, req, err)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestConvenienceResponses(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter, r *http.Request)
		status int
	}{
		{"NotFoundResponse", NotFoundResponse, http.StatusNotFound},
		{"MethodNotAllowedResponse", MethodNotAllowedResponse, http.StatusMethodNotAllowed},
		{"UnauthorizedResponse", UnauthorizedResponse, http.StatusUnauthorized},
		{"ForbiddenResponse", ForbiddenResponse, http.StatusForbidden},
		{"InternalErrorResponse", func(w http.ResponseWriter, r *http.Request) { InternalErrorResponse(w, r, nil) }, http.StatusInternalServerError},
		{"BadRequestResponse", func(w http.ResponseWriter, r *http.Request) { BadRequestResponse(w, r, "bad") }, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

type signupPayload struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Email    string `json:"email" validate:"required,email"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields []string
		wantErr    bool
	}{
		{name: "valid", body: `{"username":"marta","email":"m@example.com","quantity":1}`},
		{name: "malformed", body: `{"username":`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
		{name: "field errors", body: `{"username":"ab","email":"nope","quantity":-1}`, wantErr: true, wantFields: []string{"username", "email", "quantity"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			var p signupPayload
			err := DecodeJSON(req, "test.decode", &p)

			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if domain.ErrorCode(err) != domain.EINVALID {
				t.Fatalf("code = %q, want %q", domain.ErrorCode(err), domain.EINVALID)
			}
			fields := domain.GetValidationFields(err)
			for _, f := range tt.wantFields {
				if _, ok := fields[f]; !ok {
					t.Errorf("missing field error for %q in %v", f, fields)
				}
			}
		})
	}
}

func TestPathUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.SetPathValue("cartId", "not-a-uuid")

	if _, err := PathUUID(req, "test", "cartId"); domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("expected invalid error, got %v", err)
	}

	req.SetPathValue("cartId", "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	id, err := PathUUID(req, "test", "cartId")
	if err != nil || id.String() != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Errorf("PathUUID = %v, %v", id, err)
	}
}
