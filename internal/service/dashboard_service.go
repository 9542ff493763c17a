package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/repository"
	appErrors "github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/errors"
)

type ledgerSnapshot interface {
	Records(ctx context.Context) ([]models.AttendanceRecord, error)
}

type studentRoster interface {
	ListStudentEmails(ctx context.Context) ([]string, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardService serves the read side of the attendance engine: student
// views, overview cards and calendar indexes, computed by the aggregator
// over the current ledger snapshot and cached in Redis. The ledger
// invalidates the cache on every mutation, so stale reads are bounded by the
// TTL only when invalidation itself failed.
type DashboardService struct {
	ledger ledgerSnapshot
	roster studentRoster
	stats  *StatsService
	cache  statsCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewDashboardService constructs the dashboard service. cache may be nil.
func NewDashboardService(ledger ledgerSnapshot, roster studentRoster, stats *StatsService, cache statsCache, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if stats == nil {
		stats = NewStatsService()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		ledger: ledger,
		roster: roster,
		stats:  stats,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// StudentStats returns a student's summary, reporting whether the cache
// served it.
func (s *DashboardService) StudentStats(ctx context.Context, studentEmail string) (*models.StudentStats, bool, error) {
	key := repository.StatsCacheKeyPrefix + "student:" + studentEmail
	if s.cache != nil {
		var cached models.StudentStats
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, true, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	records, err := s.ledger.Records(ctx)
	if err != nil {
		return nil, false, err
	}
	stats := s.stats.StudentStats(studentEmail, records)
	s.cacheSet(ctx, key, stats)
	return &stats, false, nil
}

// Overview returns the cohort-wide summary across all active students.
func (s *DashboardService) Overview(ctx context.Context) (*models.OverallStats, bool, error) {
	key := repository.StatsCacheKeyPrefix + "overview"
	if s.cache != nil {
		var cached models.OverallStats
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, true, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	emails, err := s.roster.ListStudentEmails(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student roster")
	}
	records, err := s.ledger.Records(ctx)
	if err != nil {
		return nil, false, err
	}
	stats := s.stats.OverallStats(emails, records)
	s.cacheSet(ctx, key, stats)
	return &stats, false, nil
}

// StudentRecords returns the per-session view rows for one student.
func (s *DashboardService) StudentRecords(ctx context.Context, studentEmail string) ([]models.AttendanceRecordView, error) {
	records, err := s.ledger.Records(ctx)
	if err != nil {
		return nil, err
	}
	return s.stats.RecordsForStudent(studentEmail, records), nil
}

// CalendarDays lists every date with at least one record.
func (s *DashboardService) CalendarDays(ctx context.Context) ([]string, error) {
	records, err := s.ledger.Records(ctx)
	if err != nil {
		return nil, err
	}
	return s.stats.DaysWithSessions(records), nil
}

// SessionsOnDate lists the session labels held on one date.
func (s *DashboardService) SessionsOnDate(ctx context.Context, date string) ([]string, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	records, err := s.ledger.Records(ctx)
	if err != nil {
		return nil, err
	}
	return s.stats.SessionsOnDate(date, records), nil
}

func (s *DashboardService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("stats cache write failed", zap.Error(err))
	}
}
