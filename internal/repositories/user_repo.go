package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/backoffice/internal/database"
	"github.com/BradenHooton/backoffice/internal/models"
	"github.com/google/uuid"
)

const userColumns = `id, name, email, password_hash, status, reset_token_hash, reset_token_expires_at, created_at, updated_at`

// UserRepository persists credential records in Postgres
type UserRepository struct {
	db           database.DBTX
	queryTimeout time.Duration
	now          func() time.Time
}

// NewUserRepository creates a repository; every call is bounded by queryTimeout
func NewUserRepository(db database.DBTX, queryTimeout time.Duration) *UserRepository {
	return &UserRepository{db: db, queryTimeout: queryTimeout, now: time.Now}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var status string

	err := scanner.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &status,
		&user.ResetTokenHash, &user.ResetTokenExpiresAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.Status = models.AccountStatus(status)
	return &user, nil
}

func (r *UserRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

// NormalizeEmail is the canonical form stored and compared
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	user.ID = uuid.New().String()
	user.Email = NormalizeEmail(user.Email)

	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Status == "" {
		user.Status = models.StatusActive
	}

	query := `
		INSERT INTO users (id, name, email, password_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	return scanUserRow(r.db.QueryRow(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Status),
		user.CreatedAt, user.UpdatedAt,
	))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUserRow(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = $1`

	return scanUserRow(r.db.QueryRow(ctx, query, NormalizeEmail(email)))
}

// SetResetToken stores a reset digest and expiry, replacing any pending one
func (r *UserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE users
		SET reset_token_hash = $1, reset_token_expires_at = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.db.Exec(ctx, query, tokenHash, expiresAt, r.now(), userID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ConsumeResetToken installs a new password hash for the account holding a live
// reset digest and clears the digest in the same statement. Exactly one caller
// can consume a digest; everyone else gets ErrNotFound.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE users
		SET password_hash = $1, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = $2
		WHERE reset_token_hash = $3 AND reset_token_expires_at > $2
		RETURNING ` + userColumns

	return scanUserRow(r.db.QueryRow(ctx, query, passwordHash, now, tokenHash))
}

// ClearExpiredResetTokens drops reset digests whose window has closed
func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE users
		SET reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = $1
		WHERE reset_token_expires_at IS NOT NULL AND reset_token_expires_at <= $1
	`

	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens: %w", database.MapPostgresError(err))
	}

	return result.RowsAffected(), nil
}
