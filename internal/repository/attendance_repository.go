package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
)

// AttendanceRepository persists the attendance record ledger. The ledger
// service owns the in-memory copy; this repository is its write-through store.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListAll returns the full record set, newest session first.
func (r *AttendanceRepository) ListAll(ctx context.Context) ([]models.AttendanceRecord, error) {
	query := `SELECT id, student_email, code, status, date, session_name, submitted_at
FROM attendance_records
ORDER BY date DESC, submitted_at DESC`
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return rows, nil
}

// Insert stores a new attendance record.
func (r *AttendanceRepository) Insert(ctx context.Context, record *models.AttendanceRecord) error {
	query := `INSERT INTO attendance_records (id, student_email, code, status, date, session_name, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query,
		record.ID, record.StudentEmail, record.Code, record.Status,
		record.Date, record.SessionName, record.SubmittedAt,
	); err != nil {
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

// FindBySessionKey returns the record for one student's session slot, or
// sql.ErrNoRows when the slot is implicitly absent.
func (r *AttendanceRepository) FindBySessionKey(ctx context.Context, studentEmail, date string, sessionName *string) (*models.AttendanceRecord, error) {
	query := `SELECT id, student_email, code, status, date, session_name, submitted_at
FROM attendance_records
WHERE student_email = $1 AND date = $2 AND session_name IS NOT DISTINCT FROM $3`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, studentEmail, date, sessionName); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateStatus changes the stored status of a record in place.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE attendance_records SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update attendance status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update attendance status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByID removes a record, reporting whether a row existed.
func (r *AttendanceRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete attendance record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete attendance record: %w", err)
	}
	return affected > 0, nil
}
