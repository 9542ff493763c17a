package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
	appErrors "github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/errors"
)

type ledgerSnapshotStub struct {
	records []models.AttendanceRecord
	calls   int
	err     error
}

func (s *ledgerSnapshotStub) Records(ctx context.Context) ([]models.AttendanceRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

type rosterStub struct {
	emails []string
	err    error
}

func (s *rosterStub) ListStudentEmails(ctx context.Context) ([]string, error) {
	return s.emails, s.err
}

type statsCacheStub struct {
	entries map[string][]byte
	sets    int
}

func (s *statsCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	payload, ok := s.entries[key]
	if !ok {
		return appErrors.Clone(appErrors.ErrCacheMiss, "cache miss")
	}
	return json.Unmarshal(payload, dest)
}

func (s *statsCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.entries == nil {
		s.entries = make(map[string][]byte)
	}
	s.entries[key] = payload
	s.sets++
	return nil
}

func TestDashboardStudentStatsCaches(t *testing.T) {
	ledger := &ledgerSnapshotStub{records: []models.AttendanceRecord{
		record("a@academy.io", "2026-08-27", nil, models.StatusPresent),
		record("a@academy.io", "2026-08-28", nil, models.StatusPresent),
	}}
	cache := &statsCacheStub{}
	svc := NewDashboardService(ledger, &rosterStub{}, nil, cache, time.Minute, nil)

	stats, hit, err := svc.StudentStats(context.Background(), "a@academy.io")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 100, stats.Percentage)
	assert.Equal(t, 1, cache.sets)

	// Second read is served from cache without touching the ledger again.
	stats, hit, err = svc.StudentStats(context.Background(), "a@academy.io")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 100, stats.Percentage)
	assert.Equal(t, 1, ledger.calls)
}

func TestDashboardStudentStatsWithoutCache(t *testing.T) {
	ledger := &ledgerSnapshotStub{records: []models.AttendanceRecord{
		record("a@academy.io", "2026-08-28", nil, models.StatusPresent),
	}}
	svc := NewDashboardService(ledger, &rosterStub{}, nil, nil, time.Minute, nil)

	stats, hit, err := svc.StudentStats(context.Background(), "a@academy.io")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, stats.TotalSessions)
}

func TestDashboardOverview(t *testing.T) {
	ledger := &ledgerSnapshotStub{records: []models.AttendanceRecord{
		record("a@academy.io", "2026-08-27", nil, models.StatusPresent),
		record("a@academy.io", "2026-08-28", nil, models.StatusPresent),
		record("b@academy.io", "2026-08-27", nil, models.StatusPresent),
	}}
	roster := &rosterStub{emails: []string{"a@academy.io", "b@academy.io"}}
	cache := &statsCacheStub{}
	svc := NewDashboardService(ledger, roster, nil, cache, time.Minute, nil)

	overview, hit, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 75, overview.AverageAttendance)
	assert.Equal(t, 2, overview.StudentsCount)

	overview, hit, err = svc.Overview(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 75, overview.AverageAttendance)
}

func TestDashboardSessionsOnDateValidatesDate(t *testing.T) {
	svc := NewDashboardService(&ledgerSnapshotStub{}, &rosterStub{}, nil, nil, time.Minute, nil)

	_, err := svc.SessionsOnDate(context.Background(), "not-a-date")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestDashboardCalendarDays(t *testing.T) {
	ledger := &ledgerSnapshotStub{records: []models.AttendanceRecord{
		record("a@academy.io", "2026-08-28", nil, models.StatusPresent),
		record("a@academy.io", "2026-08-26", nil, models.StatusLeave),
	}}
	svc := NewDashboardService(ledger, &rosterStub{}, nil, nil, time.Minute, nil)

	days, err := svc.CalendarDays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-26", "2026-08-28"}, days)
}
