package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
	appErrors "github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/errors"
)

type exportStatsStub struct {
	stats models.StudentStats
	err   error
}

func (s *exportStatsStub) StudentStats(ctx context.Context, studentEmail string) (*models.StudentStats, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	return &s.stats, false, nil
}

func exportTestStats() models.StudentStats {
	return models.StudentStats{
		TotalSessions: 2,
		Attended:      1,
		Leaves:        1,
		Percentage:    100,
		Records: []models.AttendanceRecordView{
			{Date: "2026-08-28", SessionName: "Evening", Present: true},
			{Date: "2026-08-27", Leave: true},
		},
	}
}

func TestExportStudentSheetCSV(t *testing.T) {
	svc := NewExportService(&exportStatsStub{stats: exportTestStats()}, nil, ExportConfig{StorageDir: t.TempDir()})

	payload, name, err := svc.StudentSheet(context.Background(), "a@academy.io", ExportFormatCSV)
	require.NoError(t, err)

	content := string(payload)
	assert.Contains(t, content, "Attendance Report")
	assert.Contains(t, content, "Student: a@academy.io")
	assert.Contains(t, content, "Date,Session,Status")
	assert.Contains(t, content, "2026-08-28,Evening,Present")
	assert.Contains(t, content, "2026-08-27,"+models.DefaultSessionName+",Leave")

	assert.True(t, strings.HasPrefix(name, "attendance-a_at_academy.io-"))
	assert.True(t, strings.HasSuffix(name, ".csv"))
}

func TestExportStudentSheetPDF(t *testing.T) {
	svc := NewExportService(&exportStatsStub{stats: exportTestStats()}, nil, ExportConfig{StorageDir: t.TempDir()})

	payload, name, err := svc.StudentSheet(context.Background(), "a@academy.io", ExportFormatPDF)
	require.NoError(t, err)
	assert.True(t, len(payload) > 0)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
	assert.True(t, strings.HasSuffix(name, ".pdf"))
}

func TestExportEnqueueWritesFile(t *testing.T) {
	dir := t.TempDir()
	svc := NewExportService(&exportStatsStub{stats: exportTestStats()}, nil, ExportConfig{StorageDir: dir})
	svc.Start(context.Background())
	defer svc.Stop()

	fileName, err := svc.EnqueueStudentSheet(context.Background(), "a@academy.io", ExportFormatCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(fileName, ".csv"))

	path := filepath.Join(dir, fileName)
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "Attendance Report")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&exportStatsStub{stats: exportTestStats()}, nil, ExportConfig{StorageDir: t.TempDir()})

	_, _, err := svc.StudentSheet(context.Background(), "a@academy.io", "xlsx")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.EnqueueStudentSheet(context.Background(), "a@academy.io", "xlsx")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
