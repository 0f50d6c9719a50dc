package database

import (
	"context"
	"errors"

	"github.com/BradenHooton/backoffice/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool the repositories use
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// MapPostgresError translates driver errors into the models sentinels
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrStorageTimeout
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return models.ErrConflict
		case "23514", "23502": // check_violation, not_null_violation
			return models.ErrValidation
		case "57014": // query_canceled (statement_timeout)
			return models.ErrStorageTimeout
		}
	}

	return err
}
