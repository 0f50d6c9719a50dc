package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/backoffice/internal/auth"
	"github.com/BradenHooton/backoffice/internal/metrics"
	"github.com/BradenHooton/backoffice/internal/models"
	pkgauth "github.com/BradenHooton/backoffice/pkg/auth"
	pkglogger "github.com/BradenHooton/backoffice/pkg/logger"
)

// UserRepository is the credential store the auth flows run against
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error)
}

// ResetNotifier delivers a reset link out of band
type ResetNotifier interface {
	SendPasswordResetEmail(ctx context.Context, email, resetURL string, expiresAt time.Time) error
}

// Operation labels for metrics
const (
	opRegister       = "register"
	opLogin          = "login"
	opForgotPassword = "forgot_password"
	opResetPassword  = "reset_password"
	opWhoAmI         = "whoami"
)

// AuthService handles authentication business logic
type AuthService struct {
	repo         UserRepository
	hasher       *pkgauth.PasswordHasher
	codec        *pkgauth.ResetTokenCodec
	tm           *auth.TokenManager
	notifier     ResetNotifier
	metrics      *metrics.Metrics
	logger       *slog.Logger
	resetURLBase string
	now          func() time.Time

	// dummyHash is compared against when the email is unknown so that both
	// login failure paths pay for one bcrypt comparison
	dummyHash string
}

// NewAuthService creates a new AuthService
func NewAuthService(repo UserRepository, hasher *pkgauth.PasswordHasher, codec *pkgauth.ResetTokenCodec, tm *auth.TokenManager, resetURLBase string, m *metrics.Metrics, logger *slog.Logger) *AuthService {
	dummyHash, err := hasher.Hash("backoffice-dummy-password")
	if err != nil {
		logger.Warn("failed to prepare dummy password hash", slog.Any("error", err))
	}

	return &AuthService{
		repo:         repo,
		hasher:       hasher,
		codec:        codec,
		tm:           tm,
		metrics:      m,
		logger:       logger,
		resetURLBase: strings.TrimRight(resetURLBase, "/"),
		now:          time.Now,
		dummyHash:    dummyHash,
	}
}

// SetResetNotifier enables out-of-band delivery of reset links
func (s *AuthService) SetResetNotifier(n ResetNotifier) {
	s.notifier = n
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// storageError logs a storage fault and collapses it to an opaque internal
// error. Timeouts stay distinguishable so the caller can retry.
func (s *AuthService) storageError(op string, err error) error {
	s.logger.Error("storage operation failed", slog.String("operation", op), slog.Any("error", err))
	s.metrics.RecordAuth(op, metrics.OutcomeError)
	if errors.Is(err, models.ErrStorageTimeout) {
		return models.ErrStorageTimeout
	}
	return models.ErrInternalServer
}

// Register creates an Active account and signs the caller in
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrValidation)
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		s.metrics.RecordAuth(opRegister, metrics.OutcomeError)
		return nil, models.ErrInternalServer
	}

	// The unique index on lower(email) decides concurrent registrations
	user, err := s.repo.Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       models.StatusActive,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("registration rejected: email already registered",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			s.metrics.RecordAuth(opRegister, metrics.OutcomeFailure)
			return nil, models.ErrConflict
		}
		return nil, s.storageError(opRegister, err)
	}

	token, err := s.tm.GenerateAccessToken(user.ID)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		s.metrics.RecordAuth(opRegister, metrics.OutcomeError)
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	s.metrics.RecordAuth(opRegister, metrics.OutcomeSuccess)

	return &models.AuthResponse{
		Success: true,
		Message: "User registered successfully",
		Token:   token,
		User:    user.ToResponse(),
	}, nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", models.ErrValidation)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			s.logger.Info("login failed: invalid credentials")
			s.metrics.RecordAuth(opLogin, metrics.OutcomeFailure)
			return nil, models.ErrUnauthorized
		}
		return nil, s.storageError(opLogin, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Info("login failed: invalid credentials", slog.String("user_id", user.ID))
		s.metrics.RecordAuth(opLogin, metrics.OutcomeFailure)
		return nil, models.ErrUnauthorized
	}

	if !user.IsActive() {
		s.logger.Info("login blocked: account inactive", slog.String("user_id", user.ID))
		s.metrics.RecordAuth(opLogin, metrics.OutcomeFailure)
		return nil, models.ErrAccountInactive
	}

	token, err := s.tm.GenerateAccessToken(user.ID)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		s.metrics.RecordAuth(opLogin, metrics.OutcomeError)
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.metrics.RecordAuth(opLogin, metrics.OutcomeSuccess)

	return &models.AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User:    user.ToResponse(),
	}, nil
}

// ForgotPassword issues a reset token for the account, replacing any pending
// one. Only the digest is stored; the plaintext is returned once.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*models.PasswordResetTicket, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrValidation)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			s.metrics.RecordAuth(opForgotPassword, metrics.OutcomeFailure)
			return nil, models.ErrNotFound
		}
		return nil, s.storageError(opForgotPassword, err)
	}

	token, err := s.codec.Issue()
	if err != nil {
		s.logger.Error("failed to issue reset token", slog.Any("error", err))
		s.metrics.RecordAuth(opForgotPassword, metrics.OutcomeError)
		return nil, models.ErrInternalServer
	}

	if err := s.repo.SetResetToken(ctx, user.ID, token.Digest, token.ExpiresAt); err != nil {
		return nil, s.storageError(opForgotPassword, err)
	}

	ticket := &models.PasswordResetTicket{
		UserID:    user.ID,
		Email:     user.Email,
		Plaintext: token.Plaintext,
		ResetURL:  s.resetURLBase + "/reset-password/" + token.Plaintext,
		ExpiresAt: token.ExpiresAt,
	}

	if s.notifier != nil {
		if err := s.notifier.SendPasswordResetEmail(ctx, ticket.Email, ticket.ResetURL, ticket.ExpiresAt); err != nil {
			s.logger.Error("failed to deliver reset link", slog.String("user_id", user.ID), slog.Any("error", err))
			s.metrics.RecordAuth(opForgotPassword, metrics.OutcomeError)
			return nil, models.ErrInternalServer
		}
	}

	s.logger.Info("password reset token issued",
		slog.String("user_id", user.ID),
		slog.Time("expires_at", ticket.ExpiresAt))
	s.metrics.RecordAuth(opForgotPassword, metrics.OutcomeSuccess)

	return ticket, nil
}

// ResetPassword consumes a reset token and installs the new password. A
// consumed, superseded, expired or unknown token fails the same way.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		s.metrics.RecordAuth(opResetPassword, metrics.OutcomeFailure)
		return models.ErrInvalidOrExpiredToken
	}
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		s.metrics.RecordAuth(opResetPassword, metrics.OutcomeError)
		return models.ErrInternalServer
	}

	user, err := s.repo.ConsumeResetToken(ctx, s.codec.Digest(token), hash, s.now())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset rejected: invalid or expired token")
			s.metrics.RecordAuth(opResetPassword, metrics.OutcomeFailure)
			return models.ErrInvalidOrExpiredToken
		}
		return s.storageError(opResetPassword, err)
	}

	s.logger.Info("password reset completed", slog.String("user_id", user.ID))
	s.metrics.RecordAuth(opResetPassword, metrics.OutcomeSuccess)
	return nil
}

// WhoAmI returns the projection of the identity resolved by the session gate
func (s *AuthService) WhoAmI(ctx context.Context, userID string) (*models.UserResponse, error) {
	if userID == "" {
		s.metrics.RecordAuth(opWhoAmI, metrics.OutcomeFailure)
		return nil, models.ErrUnauthorized
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("session refers to missing account", slog.String("user_id", userID))
			s.metrics.RecordAuth(opWhoAmI, metrics.OutcomeFailure)
			return nil, models.ErrUnauthorized
		}
		return nil, s.storageError(opWhoAmI, err)
	}

	s.metrics.RecordAuth(opWhoAmI, metrics.OutcomeSuccess)
	return user.ToResponse(), nil
}

// EnsureAccount creates an Active account unless the email is already taken.
// It reports whether a new account was created.
func (s *AuthService) EnsureAccount(ctx context.Context, name, email, password string) (bool, error) {
	_, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return false, fmt.Errorf("failed to look up account: %w", err)
	}

	if _, err := s.Register(ctx, name, email, password); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
