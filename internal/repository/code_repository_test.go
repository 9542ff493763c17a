package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
)

func newCodeRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCodeRepositoryReplace(t *testing.T) {
	db, mock, cleanup := newCodeRepoMock(t)
	defer cleanup()

	repo := NewCodeRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance_codes")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_codes")).
		WithArgs("AB12CD", "2026-08-28", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	code := &models.SessionCode{
		Code:      "AB12CD",
		Date:      "2026-08-28",
		ExpiresAt: time.Now().Add(5 * time.Minute).UnixMilli(),
	}
	require.NoError(t, repo.Replace(context.Background(), code))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCodeRepositoryReplaceRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newCodeRepoMock(t)
	defer cleanup()

	repo := NewCodeRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance_codes")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_codes")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	code := &models.SessionCode{Code: "AB12CD", Date: "2026-08-28"}
	require.Error(t, repo.Replace(context.Background(), code))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCodeRepositoryCurrent(t *testing.T) {
	db, mock, cleanup := newCodeRepoMock(t)
	defer cleanup()

	repo := NewCodeRepository(db)
	expiresAt := time.Now().Add(5 * time.Minute).UnixMilli()
	rows := sqlmock.NewRows([]string{"code", "date", "session_name", "expires_at"}).
		AddRow("AB12CD", "2026-08-28", nil, expiresAt)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT code, date, session_name, expires_at FROM attendance_codes")).
		WillReturnRows(rows)

	code, err := repo.Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, code)
	require.Equal(t, "AB12CD", code.Code)
	require.Equal(t, expiresAt, code.ExpiresAt)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT code, date, session_name, expires_at FROM attendance_codes")).
		WillReturnError(sql.ErrNoRows)

	code, err = repo.Current(context.Background())
	require.NoError(t, err)
	require.Nil(t, code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCodeRepositoryClear(t *testing.T) {
	db, mock, cleanup := newCodeRepoMock(t)
	defer cleanup()

	repo := NewCodeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance_codes")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Clear(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
