package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yow-cloud/shoplens/internal/domain"
	domidx "github.com/yow-cloud/shoplens/internal/domain/index"
)

// Config holds lifecycle tuning knobs.
type Config struct {
	ProductSetID     string
	ReadyWindow      time.Duration
	PollTimeout      time.Duration
	FailureThreshold int
}

// Service tracks the remote index lifecycle. It owns the only mutable copy of
// the state snapshot; every transition goes through the mutex and is persisted
// before the new snapshot is published.
type Service struct {
	remote RemoteIndex
	repo   Repository
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	state domidx.State
}

// New creates an index lifecycle service with an EMPTY in-memory snapshot.
// Call Restore before serving to rehydrate persisted state.
func New(remote RemoteIndex, repo Repository, cfg Config, logger *zap.Logger) *Service {
	if cfg.ReadyWindow <= 0 {
		cfg.ReadyWindow = domidx.DefaultReadyWindow
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	return &Service{
		remote: remote,
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		state:  domidx.NewState(),
	}
}

// WithClock overrides the time source (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Restore loads the persisted snapshot. A missing snapshot is not an error;
// the service keeps its EMPTY state.
func (s *Service) Restore(ctx context.Context) error {
	st, err := s.repo.Load(ctx, s.cfg.ProductSetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("restore index state: %w", err)
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

// EnsureIndex creates the remote product set if it does not exist yet.
// Safe to call on every startup and before every import.
func (s *Service) EnsureIndex(ctx context.Context) error {
	if err := s.remote.EnsureProductSet(ctx); err != nil {
		return fmt.Errorf("ensure product set %s: %w", s.cfg.ProductSetID, err)
	}
	return nil
}

// MarkImport records a submitted import batch and persists the transition.
func (s *Service) MarkImport(ctx context.Context, count int) (domidx.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.MarkImport(count, s.now(), s.cfg.ReadyWindow)
	if err := s.repo.Save(ctx, s.cfg.ProductSetID, next); err != nil {
		return s.state, fmt.Errorf("persist index state: %w", err)
	}
	s.state = next

	s.logger.Info("import recorded",
		zap.Int("count", count),
		zap.String("status", string(next.Status())),
	)
	return next, nil
}

// Poll refreshes the snapshot from the remote index build time. Remote
// failures are absorbed into the failure counter; the status only flips to
// ERROR after the configured number of consecutive failures.
func (s *Service) Poll(ctx context.Context) domidx.State {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PollTimeout)
	defer cancel()

	indexedAt, err := s.remote.IndexTime(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	var next domidx.State
	if err != nil {
		next = s.state.WithPollFailure(s.now(), s.cfg.FailureThreshold)
		s.logger.Warn("index poll failed",
			zap.Error(err),
			zap.Int("consecutive_failures", next.Failures()),
			zap.String("status", string(next.Status())),
		)
	} else {
		next = s.state.WithPoll(indexedAt, s.now())
	}

	if saveErr := s.repo.Save(ctx, s.cfg.ProductSetID, next); saveErr != nil {
		s.logger.Warn("index state not persisted", zap.Error(saveErr))
	}
	s.state = next
	return next
}

// Status returns the cached snapshot without touching the remote backend.
func (s *Service) Status() domidx.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
