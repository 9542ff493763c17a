package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/repository"
	appErrors "github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/errors"
)

type attendanceStore interface {
	ListAll(ctx context.Context) ([]models.AttendanceRecord, error)
	Insert(ctx context.Context, record *models.AttendanceRecord) error
	UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) error
	DeleteByID(ctx context.Context, id string) (bool, error)
}

type activeCodeProvider interface {
	Current(ctx context.Context) (*models.SessionCode, error)
}

type statsInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type submissionMetrics interface {
	SubmissionAccepted()
	SubmissionRejected(reason string)
}

// LedgerService owns the authoritative in-memory attendance record set and
// every validated mutation on it. Each mutation is written through to the
// store before the in-memory copy changes; a failed store write surfaces as a
// hard error and leaves the ledger untouched.
type LedgerService struct {
	store   attendanceStore
	codes   activeCodeProvider
	cache   statsInvalidator
	metrics submissionMetrics
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.RWMutex
	records []models.AttendanceRecord
	loaded  bool
}

// NewLedgerService constructs the ledger. cache and metrics may be nil.
func NewLedgerService(store attendanceStore, codes activeCodeProvider, cache statsInvalidator, metrics submissionMetrics, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		store:   store,
		codes:   codes,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Load pulls the full record set from the store into memory. Called once at
// startup; mutating and reading methods load lazily as a fallback.
func (s *LedgerService) Load(ctx context.Context) error {
	rows, err := s.store.ListAll(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance ledger")
	}
	s.mu.Lock()
	s.records = rows
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Records returns a snapshot copy of the ledger for aggregation.
func (s *LedgerService) Records(ctx context.Context) ([]models.AttendanceRecord, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]models.AttendanceRecord, len(s.records))
	copy(snapshot, s.records)
	return snapshot, nil
}

// Submit records a student's self-submission against the active code.
func (s *LedgerService) Submit(ctx context.Context, studentEmail, submittedCode string) (*models.AttendanceRecord, error) {
	studentEmail = strings.TrimSpace(studentEmail)
	if studentEmail == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student email is required")
	}

	active, err := s.codes.Current(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		s.reject("code_expired")
		return nil, appErrors.Clone(appErrors.ErrCodeExpired, "no active attendance code")
	}
	if strings.ToUpper(strings.TrimSpace(submittedCode)) != active.Code {
		s.reject("invalid_code")
		return nil, appErrors.ErrInvalidCode
	}
	if active.Expired(s.now()) {
		s.reject("code_expired")
		return nil, appErrors.ErrCodeExpired
	}

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := active.Session()
	if s.indexByKey(studentEmail, key) >= 0 {
		s.reject("already_submitted")
		return nil, appErrors.ErrAlreadySubmitted
	}

	record := &models.AttendanceRecord{
		ID:           uuid.NewString(),
		StudentEmail: studentEmail,
		Code:         active.Code,
		Status:       models.StatusPresent,
		Date:         active.Date,
		SessionName:  active.SessionName,
		SubmittedAt:  s.now().UTC(),
	}
	if err := s.store.Insert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance record")
	}
	s.records = append(s.records, *record)
	s.invalidateStats(ctx)
	if s.metrics != nil {
		s.metrics.SubmissionAccepted()
	}
	s.logger.Info("attendance submitted",
		zap.String("student", studentEmail),
		zap.String("date", record.Date),
	)
	return record, nil
}

// ManualMark is the instructor path: it can set any status for any session
// slot. Marking absent deletes the slot's record and is idempotent.
// The returned record is nil when the slot ends up absent.
func (s *LedgerService) ManualMark(ctx context.Context, actor *models.JWTClaims, studentEmail, date string, sessionName *string, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	studentEmail = strings.TrimSpace(studentEmail)
	if studentEmail == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student email is required")
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be present, absent or leave")
	}

	sessionName = normalizeSessionName(sessionName)

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markByKey(ctx, studentEmail, models.NewSessionKey(date, sessionName), sessionName, status)
}

// Edit changes an existing record's status by id. Editing to absent deletes
// the record. When the id no longer exists (the caller may be editing an
// implicitly absent slot) it falls back to the session-key path, mirroring
// ManualMark.
func (s *LedgerService) Edit(ctx context.Context, actor *models.JWTClaims, recordID, studentEmail, date string, sessionName *string, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be present, absent or leave")
	}

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if status == models.StatusAbsent {
		if err := s.removeByID(ctx, recordID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if idx := s.indexByID(recordID); idx >= 0 {
		if err := s.store.UpdateStatus(ctx, recordID, status); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance record")
		}
		s.records[idx].Status = status
		s.invalidateStats(ctx)
		record := s.records[idx]
		return &record, nil
	}

	// The id is gone; recreate the slot from the supplied session context.
	studentEmail = strings.TrimSpace(studentEmail)
	if studentEmail == "" || date == "" {
		return nil, appErrors.Clone(appErrors.ErrRecordNotFound, "record not found and no session context to recreate it")
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	sessionName = normalizeSessionName(sessionName)
	s.logger.Debug("edit fell back to session key", zap.String("record_id", recordID), zap.String("student", studentEmail))
	return s.markByKey(ctx, studentEmail, models.NewSessionKey(date, sessionName), sessionName, status)
}

// Delete removes a record unconditionally. A missing id is a no-op success.
func (s *LedgerService) Delete(ctx context.Context, actor *models.JWTClaims, recordID string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeByID(ctx, recordID)
}

func (s *LedgerService) authorize(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.Role.CanManageAttendance() {
		return appErrors.Clone(appErrors.ErrForbidden, "instructor role required")
	}
	return nil
}

func (s *LedgerService) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Load(ctx)
}

// markByKey implements the shared manual-marking state machine. Caller holds
// the write lock.
func (s *LedgerService) markByKey(ctx context.Context, studentEmail string, key models.SessionKey, sessionName *string, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	idx := s.indexByKey(studentEmail, key)

	if status == models.StatusAbsent {
		if idx < 0 {
			return nil, nil
		}
		return nil, s.removeAt(ctx, idx)
	}

	if idx >= 0 {
		id := s.records[idx].ID
		if err := s.store.UpdateStatus(ctx, id, status); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance record")
		}
		s.records[idx].Status = status
		s.invalidateStats(ctx)
		record := s.records[idx]
		return &record, nil
	}

	record := &models.AttendanceRecord{
		ID:           uuid.NewString(),
		StudentEmail: studentEmail,
		Code:         models.ManualCode,
		Status:       status,
		Date:         key.Date,
		SessionName:  sessionName,
		SubmittedAt:  s.now().UTC(),
	}
	if err := s.store.Insert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance record")
	}
	s.records = append(s.records, *record)
	s.invalidateStats(ctx)
	return record, nil
}

// removeByID deletes by id, treating a missing id as an idempotent no-op.
// Caller holds the write lock.
func (s *LedgerService) removeByID(ctx context.Context, recordID string) error {
	idx := s.indexByID(recordID)
	if idx < 0 {
		s.logger.Debug("delete of unknown attendance record", zap.String("record_id", recordID))
		return nil
	}
	return s.removeAt(ctx, idx)
}

func (s *LedgerService) removeAt(ctx context.Context, idx int) error {
	id := s.records[idx].ID
	if _, err := s.store.DeleteByID(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance record")
	}
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	s.invalidateStats(ctx)
	return nil
}

func (s *LedgerService) indexByKey(studentEmail string, key models.SessionKey) int {
	for i := range s.records {
		if s.records[i].StudentEmail == studentEmail && s.records[i].Session() == key {
			return i
		}
	}
	return -1
}

func (s *LedgerService) indexByID(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *LedgerService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, repository.StatsCacheKeyPrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}

func (s *LedgerService) reject(reason string) {
	if s.metrics != nil {
		s.metrics.SubmissionRejected(reason)
	}
}

func normalizeSessionName(sessionName *string) *string {
	if sessionName == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*sessionName)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
