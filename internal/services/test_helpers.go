package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/google/uuid"

	"github.com/BradenHooton/backoffice/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	CreateFunc            func(ctx context.Context, user *models.User) (*models.User, error)
	GetByIDFunc           func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc        func(ctx context.Context, email string) (*models.User, error)
	SetResetTokenFunc     func(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	ConsumeResetTokenFunc func(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	if m.SetResetTokenFunc != nil {
		return m.SetResetTokenFunc(ctx, userID, tokenHash, expiresAt)
	}
	return nil
}

func (m *MockUserRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error) {
	if m.ConsumeResetTokenFunc != nil {
		return m.ConsumeResetTokenFunc(ctx, tokenHash, passwordHash, now)
	}
	return nil, models.ErrNotFound
}

// MemoryUserRepository is an in-memory UserRepository with the same
// uniqueness and compare-and-clear guarantees as the Postgres one
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*models.User)}
}

func clone(u *models.User) *models.User {
	c := *u
	return &c
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range r.users {
		if u.Email == email {
			return nil, models.ErrConflict
		}
	}

	now := time.Now()
	stored := clone(user)
	stored.ID = uuid.New().String()
	stored.Email = email
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if stored.Status == "" {
		stored.Status = models.StatusActive
	}
	r.users[stored.ID] = stored
	return clone(stored), nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(u), nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *MemoryUserRepository) SetResetToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return models.ErrNotFound
	}
	u.ResetTokenHash = &tokenHash
	u.ResetTokenExpiresAt = &expiresAt
	return nil
}

func (r *MemoryUserRepository) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.HasPendingReset() && *u.ResetTokenHash == tokenHash && u.ResetTokenExpiresAt.After(now) {
			u.PasswordHash = passwordHash
			u.ResetTokenHash = nil
			u.ResetTokenExpiresAt = nil
			u.UpdatedAt = now
			return clone(u), nil
		}
	}
	return nil, models.ErrNotFound
}

// SetStatus flips the admin-controlled flag, standing in for external tooling
func (r *MemoryUserRepository) SetStatus(email string, status models.AccountStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			u.Status = status
		}
	}
}

// MockResetNotifier implements ResetNotifier for testing
type MockResetNotifier struct {
	SendFunc func(ctx context.Context, email, resetURL string, expiresAt time.Time) error
}

func (m *MockResetNotifier) SendPasswordResetEmail(ctx context.Context, email, resetURL string, expiresAt time.Time) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, email, resetURL, expiresAt)
	}
	return nil
}

// MockSESClient implements SESClient for testing
type MockSESClient struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params)
	}
	return &ses.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
