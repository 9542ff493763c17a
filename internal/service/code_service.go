package service

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
	appErrors "github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/errors"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type codeRepository interface {
	Replace(ctx context.Context, code *models.SessionCode) error
	Current(ctx context.Context) (*models.SessionCode, error)
	Clear(ctx context.Context) error
}

type codeMetrics interface {
	CodeIssued()
}

// CodeServiceConfig tunes the session-code lifecycle.
type CodeServiceConfig struct {
	TTL        time.Duration
	CodeLength int
	Tick       time.Duration
}

// CodeService manages the single active session code: issuing, lazy expiry on
// read and an eager countdown that clears the stored code once the validity
// window passes.
type CodeService struct {
	repo    codeRepository
	metrics codeMetrics
	logger  *zap.Logger

	ttl        time.Duration
	codeLength int
	tick       time.Duration
	now        func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCodeService constructs the code service.
func NewCodeService(repo codeRepository, metrics codeMetrics, logger *zap.Logger, cfg CodeServiceConfig) *CodeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 6
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	return &CodeService{
		repo:       repo,
		metrics:    metrics,
		logger:     logger,
		ttl:        cfg.TTL,
		codeLength: cfg.CodeLength,
		tick:       cfg.Tick,
		now:        time.Now,
	}
}

// Issue mints a fresh code for the given session, replacing any prior code
// and restarting the countdown. The previous countdown is stopped before the
// store is touched so a stale tick can never clear the new code.
func (s *CodeService) Issue(ctx context.Context, date string, sessionName *string) (*models.SessionCode, error) {
	if strings.TrimSpace(date) == "" {
		return nil, appErrors.ErrNoDateSelected
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	if sessionName != nil {
		trimmed := strings.TrimSpace(*sessionName)
		if trimmed == "" {
			sessionName = nil
		} else {
			sessionName = &trimmed
		}
	}

	value, err := s.generateCode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}
	code := &models.SessionCode{
		Code:        value,
		Date:        date,
		SessionName: sessionName,
		ExpiresAt:   s.now().Add(s.ttl).UnixMilli(),
	}

	s.stopCountdown()
	if err := s.repo.Replace(ctx, code); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist attendance code")
	}
	s.startCountdown(code)

	if s.metrics != nil {
		s.metrics.CodeIssued()
	}
	s.logger.Info("attendance code issued",
		zap.String("date", date),
		zap.Int64("expires_at", code.ExpiresAt),
	)
	return code, nil
}

// Current returns the active code, or nil once expired or absent. Expiry is
// lazy here: reading an expired code clears the stored row.
func (s *CodeService) Current(ctx context.Context) (*models.SessionCode, error) {
	code, err := s.repo.Current(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance code")
	}
	if code == nil {
		return nil, nil
	}
	if code.Expired(s.now()) {
		if err := s.repo.Clear(ctx); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear expired code")
		}
		return nil, nil
	}
	return code, nil
}

// Remaining returns the countdown for the active code, nil once expired.
func (s *CodeService) Remaining(ctx context.Context) (*models.CodeCountdown, error) {
	code, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if code == nil {
		return nil, nil
	}
	left := time.UnixMilli(code.ExpiresAt).Sub(s.now())
	if left < 0 {
		left = 0
	}
	return &models.CodeCountdown{
		Minutes: int(left / time.Minute),
		Seconds: int(left % time.Minute / time.Second),
	}, nil
}

// Close stops any running countdown. Idempotent.
func (s *CodeService) Close() {
	s.stopCountdown()
}

func (s *CodeService) generateCode() (string, error) {
	buf := make([]byte, s.codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// startCountdown launches the per-code ticker. Exactly one countdown runs at
// a time; the caller must stop the previous one first.
func (s *CodeService) startCountdown(code *models.SessionCode) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !code.Expired(s.now()) {
					continue
				}
				clearCtx, clearCancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := s.repo.Clear(clearCtx); err != nil {
					s.logger.Warn("failed to clear expired attendance code", zap.Error(err))
				}
				clearCancel()
				s.logger.Info("attendance code expired", zap.String("date", code.Date))
				return
			}
		}
	}()
}

func (s *CodeService) stopCountdown() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
