package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
	appErrors "github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/errors"
)

type codeRepoStub struct {
	mu     sync.Mutex
	code   *models.SessionCode
	clears int
	err    error
}

func (s *codeRepoStub) Replace(ctx context.Context, code *models.SessionCode) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *code
	s.code = &copied
	return nil
}

func (s *codeRepoStub) Current(ctx context.Context) (*models.SessionCode, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code == nil {
		return nil, nil
	}
	copied := *s.code
	return &copied, nil
}

func (s *codeRepoStub) Clear(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = nil
	s.clears++
	return nil
}

func (s *codeRepoStub) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestCodeService(repo *codeRepoStub, clock *fakeClock, cfg CodeServiceConfig) *CodeService {
	svc := NewCodeService(repo, nil, nil, cfg)
	svc.now = clock.Now
	return svc
}

func TestCodeServiceIssueRequiresDate(t *testing.T) {
	svc := NewCodeService(&codeRepoStub{}, nil, nil, CodeServiceConfig{})
	defer svc.Close()

	_, err := svc.Issue(context.Background(), "", nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoDateSelected))

	_, err = svc.Issue(context.Background(), "   ", nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoDateSelected))
}

func TestCodeServiceIssueRejectsBadDate(t *testing.T) {
	svc := NewCodeService(&codeRepoStub{}, nil, nil, CodeServiceConfig{})
	defer svc.Close()

	_, err := svc.Issue(context.Background(), "28-08-2026", nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCodeServiceIssueGeneratesCode(t *testing.T) {
	repo := &codeRepoStub{}
	clock := &fakeClock{t: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)}
	svc := newTestCodeService(repo, clock, CodeServiceConfig{TTL: 5 * time.Minute, Tick: time.Hour})
	defer svc.Close()

	name := "  Evening Batch "
	code, err := svc.Issue(context.Background(), "2026-08-28", &name)
	require.NoError(t, err)

	require.Len(t, code.Code, 6)
	for _, r := range code.Code {
		assert.Contains(t, codeAlphabet, string(r))
	}
	assert.Equal(t, "2026-08-28", code.Date)
	require.NotNil(t, code.SessionName)
	assert.Equal(t, "Evening Batch", *code.SessionName)
	assert.Equal(t, clock.Now().Add(5*time.Minute).UnixMilli(), code.ExpiresAt)

	stored, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, code.Code, stored.Code)
}

func TestCodeServiceBlankSessionNameBecomesNil(t *testing.T) {
	repo := &codeRepoStub{}
	clock := &fakeClock{t: time.Now()}
	svc := newTestCodeService(repo, clock, CodeServiceConfig{Tick: time.Hour})
	defer svc.Close()

	name := "   "
	code, err := svc.Issue(context.Background(), "2026-08-28", &name)
	require.NoError(t, err)
	assert.Nil(t, code.SessionName)
}

func TestCodeServiceReissueReplacesActiveCode(t *testing.T) {
	repo := &codeRepoStub{}
	clock := &fakeClock{t: time.Now()}
	svc := newTestCodeService(repo, clock, CodeServiceConfig{Tick: time.Hour})
	defer svc.Close()

	first, err := svc.Issue(context.Background(), "2026-08-28", nil)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), "2026-08-28", nil)
	require.NoError(t, err)

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.Code, current.Code)
	assert.Equal(t, first.Date, current.Date)
}

func TestCodeServiceLazyExpiryClearsStore(t *testing.T) {
	repo := &codeRepoStub{}
	clock := &fakeClock{t: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)}
	svc := newTestCodeService(repo, clock, CodeServiceConfig{TTL: 5 * time.Minute, Tick: time.Hour})
	defer svc.Close()

	_, err := svc.Issue(context.Background(), "2026-08-28", nil)
	require.NoError(t, err)

	clock.Advance(5*time.Minute + time.Second)

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)
	assert.Equal(t, 1, repo.clearCount())

	// A second read stays nil without another clear.
	current, err = svc.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)
	assert.Equal(t, 1, repo.clearCount())
}

func TestCodeServiceEagerExpiryClearsStore(t *testing.T) {
	repo := &codeRepoStub{}
	clock := &fakeClock{t: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)}
	svc := newTestCodeService(repo, clock, CodeServiceConfig{TTL: time.Minute, Tick: time.Millisecond})
	defer svc.Close()

	_, err := svc.Issue(context.Background(), "2026-08-28", nil)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	require.Eventually(t, func() bool {
		return repo.clearCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCodeServiceRemaining(t *testing.T) {
	repo := &codeRepoStub{}
	clock := &fakeClock{t: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)}
	svc := newTestCodeService(repo, clock, CodeServiceConfig{TTL: 5 * time.Minute, Tick: time.Hour})
	defer svc.Close()

	_, err := svc.Issue(context.Background(), "2026-08-28", nil)
	require.NoError(t, err)

	remaining, err := svc.Remaining(context.Background())
	require.NoError(t, err)
	require.NotNil(t, remaining)
	assert.Equal(t, 5, remaining.Minutes)
	assert.Equal(t, 0, remaining.Seconds)

	clock.Advance(2*time.Minute + 30*time.Second)
	remaining, err = svc.Remaining(context.Background())
	require.NoError(t, err)
	require.NotNil(t, remaining)
	assert.Equal(t, 2, remaining.Minutes)
	assert.Equal(t, 30, remaining.Seconds)

	clock.Advance(3 * time.Minute)
	remaining, err = svc.Remaining(context.Background())
	require.NoError(t, err)
	assert.Nil(t, remaining)
}

func TestCodeServiceCodeIsUppercase(t *testing.T) {
	repo := &codeRepoStub{}
	clock := &fakeClock{t: time.Now()}
	svc := newTestCodeService(repo, clock, CodeServiceConfig{Tick: time.Hour})
	defer svc.Close()

	code, err := svc.Issue(context.Background(), "2026-08-28", nil)
	require.NoError(t, err)
	assert.Equal(t, strings.ToUpper(code.Code), code.Code)
}
