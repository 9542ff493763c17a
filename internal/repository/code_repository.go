package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
)

// CodeRepository stores the single active session code as a singleton row:
// issuing a new code replaces whatever was there before.
type CodeRepository struct {
	db *sqlx.DB
}

// NewCodeRepository constructs the repository.
func NewCodeRepository(db *sqlx.DB) *CodeRepository {
	return &CodeRepository{db: db}
}

// Replace discards any prior code and stores the new one atomically.
func (r *CodeRepository) Replace(ctx context.Context, code *models.SessionCode) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace attendance code: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_codes`); err != nil {
		return fmt.Errorf("clear previous attendance code: %w", err)
	}
	query := `INSERT INTO attendance_codes (code, date, session_name, expires_at)
VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, query, code.Code, code.Date, code.SessionName, code.ExpiresAt); err != nil {
		return fmt.Errorf("insert attendance code: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance code: %w", err)
	}
	committed = true
	return nil
}

// Current returns the stored code, or nil when none is stored. Expiry is the
// caller's concern; this is plain storage.
func (r *CodeRepository) Current(ctx context.Context) (*models.SessionCode, error) {
	query := `SELECT code, date, session_name, expires_at FROM attendance_codes LIMIT 1`
	var code models.SessionCode
	if err := r.db.GetContext(ctx, &code, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load attendance code: %w", err)
	}
	return &code, nil
}

// Clear removes the stored code. Clearing an empty table is a no-op.
func (r *CodeRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM attendance_codes`); err != nil {
		return fmt.Errorf("clear attendance code: %w", err)
	}
	return nil
}
