package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/BradenHooton/backoffice/internal/auth"
	"github.com/BradenHooton/backoffice/internal/models"
	pkghttp "github.com/BradenHooton/backoffice/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds verified claims to the request context
func WithAuthContext(req *http.Request, userID string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Type:   models.TokenTypeAccess,
	}
	return req.WithContext(auth.WithUser(req.Context(), claims, "test-token"))
}

// WithURLParam attaches a chi route parameter to the request
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.False(t, resp.Success)
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc       func(ctx context.Context, name, email, password string) (*models.AuthResponse, error)
	LoginFunc          func(ctx context.Context, email, password string) (*models.AuthResponse, error)
	ForgotPasswordFunc func(ctx context.Context, email string) (*models.PasswordResetTicket, error)
	ResetPasswordFunc  func(ctx context.Context, token, newPassword string) error
	WhoAmIFunc         func(ctx context.Context, userID string) (*models.UserResponse, error)
}

func (m *MockAuthService) Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, name, email, password)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password)
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) (*models.PasswordResetTicket, error) {
	if m.ForgotPasswordFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ForgotPasswordFunc(ctx, email)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if m.ResetPasswordFunc == nil {
		return models.ErrInvalidOrExpiredToken
	}
	return m.ResetPasswordFunc(ctx, token, newPassword)
}

func (m *MockAuthService) WhoAmI(ctx context.Context, userID string) (*models.UserResponse, error) {
	if m.WhoAmIFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.WhoAmIFunc(ctx, userID)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
