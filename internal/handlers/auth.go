package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/backoffice/internal/auth"
	"github.com/BradenHooton/backoffice/internal/models"
	pkghttp "github.com/BradenHooton/backoffice/pkg/http"
)

// maxBodyBytes caps auth request bodies
const maxBodyBytes = 1 << 20

// retryAfter is advertised when storage times out
const retryAfter = 5 * time.Second

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	ForgotPassword(ctx context.Context, email string) (*models.PasswordResetTicket, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	WhoAmI(ctx context.Context, userID string) (*models.UserResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service          AuthServiceInterface
	exposeResetToken bool
	logger           *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. With exposeResetToken set the
// forgot-password response carries the reset token and URL.
func NewAuthHandler(service AuthServiceInterface, exposeResetToken bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:          service,
		exposeResetToken: exposeResetToken,
		logger:           logger,
	}
}

// Request DTOs

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest represents the request body for forgot-password
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request body for reset-password
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
}

// Response DTOs

// MessageResponse is a bare success envelope
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ForgotPasswordResponse is returned after a reset token is issued
type ForgotPasswordResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	ResetToken string    `json:"resetToken,omitempty"`
	ResetURL   string    `json:"resetUrl,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// MeResponse wraps the caller's account projection
type MeResponse struct {
	Success bool                 `json:"success"`
	User    *models.UserResponse `json:"user"`
}

// decodeAndValidate reads a JSON body into dst and validates it; on failure
// it writes the 400 response and returns false
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, normalize func()) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request body", "")
		return false
	}

	if normalize != nil {
		normalize()
	}

	if err := ValidateRequest(dst); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request", err.Error())
		return false
	}
	return true
}

// writeServiceError maps a service failure to exactly one response
func (h *AuthHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		pkghttp.WriteValidationError(w, "Invalid request", strings.TrimPrefix(err.Error(), models.ErrValidation.Error()+": "))
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "User already exists with this email")
	case errors.Is(err, models.ErrAccountInactive):
		pkghttp.WriteUnauthorized(w, "Your account is inactive. Please contact administrator.")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Invalid credentials")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "No user found with this email")
	case errors.Is(err, models.ErrInvalidOrExpiredToken):
		pkghttp.WriteInvalidOrExpiredToken(w, "Invalid or expired reset token")
	case errors.Is(err, models.ErrStorageTimeout):
		pkghttp.WriteServiceUnavailable(w, "Service temporarily unavailable", retryAfter)
	default:
		if !errors.Is(err, models.ErrInternalServer) {
			h.logger.Error("unhandled service error", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req, func() {
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)
	}) {
		return
	}

	resp, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req, func() {
		req.Email = strings.TrimSpace(req.Email)
	}) {
		return
	}

	resp, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// ForgotPassword handles POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req, func() {
		req.Email = strings.TrimSpace(req.Email)
	}) {
		return
	}

	ticket, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := ForgotPasswordResponse{
		Success:   true,
		Message:   "Password reset link has been generated",
		ExpiresAt: ticket.ExpiresAt,
	}
	if h.exposeResetToken {
		resp.ResetToken = ticket.Plaintext
		resp.ResetURL = ticket.ResetURL
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// ResetPassword handles POST /api/auth/reset-password/{resetToken}
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "resetToken")
	if strings.TrimSpace(token) == "" {
		pkghttp.WriteInvalidOrExpiredToken(w, "Invalid or expired reset token")
		return
	}

	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req, nil) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), token, req.Password); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: "Password reset successful",
	})
}

// Me handles GET /api/auth/me; requires AuthMiddleware
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authorized")
		return
	}

	user, err := h.service.WhoAmI(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Not authorized")
			return
		}
		h.writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MeResponse{Success: true, User: user})
}
