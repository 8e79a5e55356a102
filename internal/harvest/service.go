package harvest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/collector"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/errors"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/events"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/lock"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/metrics"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

// Collector runs collection over a date range or a single day
type Collector interface {
	Collect(ctx context.Context, start, end time.Time, opts collector.CollectOptions) (*models.CollectionResult, error)
	CollectDay(ctx context.Context, day time.Time, opts collector.CollectOptions) (*models.CollectionResult, error)
}

// LedgerManager exposes the operator view of the collection ledger
type LedgerManager interface {
	List(ctx context.Context, repository string) ([]*models.CollectionLogEntry, error)
	Reset(ctx context.Context, repository string) (int64, error)
}

// CommitStore persists collected commits
type CommitStore interface {
	SaveCommits(ctx context.Context, commits []*models.CommitRecord) error
	ListKnownCommits(ctx context.Context) (*models.SHASet, error)
}

// RateLimitChecker reads the provider quota
type RateLimitChecker interface {
	CheckRateLimit(ctx context.Context) models.RateLimitStatus
}

// RunRequest describes an explicit collection run
type RunRequest struct {
	Start          time.Time
	End            time.Time
	IncludeDetails bool
}

// Option configures a Service
type Option func(*Service)

func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) { s.lockTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service owns the full lifecycle of a collection run: it serializes runs, seeds
// deduplication from storage, persists what the collector returns and announces it.
type Service struct {
	org         string
	collector   Collector
	ledger      LedgerManager
	store       CommitStore
	rates       RateLimitChecker
	locker      lock.Locker
	publisher   events.Publisher
	metrics     *metrics.Metrics
	logger      *logrus.Logger
	lockTTL     time.Duration
	saveTimeout time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	latest   *models.CollectionProgress
	ticker   *time.Ticker
	tickDone chan struct{}
}

// NewService creates a new harvest service
func NewService(
	org string,
	col Collector,
	ledger LedgerManager,
	store CommitStore,
	rates RateLimitChecker,
	logger *logrus.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		org:         org,
		collector:   col,
		ledger:      ledger,
		store:       store,
		rates:       rates,
		locker:      lock.NewLocal(),
		publisher:   events.Nop{},
		logger:      logger,
		lockTTL:     2 * time.Hour,
		saveTimeout: 5 * time.Minute,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) lockKey() string {
	return "collector:run:" + s.org
}

// Run collects [Start, End] for the whole organization.
func (s *Service) Run(ctx context.Context, req RunRequest) (*models.CollectionResult, error) {
	if req.Start.IsZero() || req.End.IsZero() {
		return nil, errors.NewValidationError("start and end are required", nil)
	}
	if req.Start.After(req.End) {
		return nil, errors.NewValidationError("start must not be after end", nil)
	}

	return s.execute(ctx, "run", func(opts collector.CollectOptions) (*models.CollectionResult, error) {
		opts.IncludeDetails = req.IncludeDetails
		return s.collector.Collect(ctx, req.Start, req.End, opts)
	})
}

// RunToday collects the current day with details.
func (s *Service) RunToday(ctx context.Context) (*models.CollectionResult, error) {
	day := s.now()
	return s.execute(ctx, "today", func(opts collector.CollectOptions) (*models.CollectionResult, error) {
		return s.collector.CollectDay(ctx, day, opts)
	})
}

func (s *Service) execute(ctx context.Context, kind string, collect func(collector.CollectOptions) (*models.CollectionResult, error)) (*models.CollectionResult, error) {
	runID := uuid.NewString()
	logger := s.logger.WithFields(logrus.Fields{
		"run_id": runID,
		"kind":   kind,
		"org":    s.org,
	})

	acquired, err := s.locker.TryLock(ctx, s.lockKey(), s.lockTTL)
	if err != nil {
		return nil, errors.NewInternalError("failed to acquire run lock", err)
	}
	if !acquired {
		logger.Warn("Collection already in progress")
		return nil, errors.NewRunInProgressError(s.lockKey())
	}
	defer func() {
		if err := s.locker.Unlock(context.Background(), s.lockKey()); err != nil {
			logger.WithError(err).Warn("Failed to release run lock")
		}
	}()
	stopKeepalive := lock.Keepalive(s.locker, s.lockKey(), s.lockTTL, func(err error) {
		logger.WithError(err).Warn("Failed to refresh run lock")
	})
	defer stopKeepalive()

	known, err := s.store.ListKnownCommits(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to load known commits", err)
	}
	logger.WithField("known_commits", known.Len()).Info("Starting collection")

	stream := collector.NewProgressStream(16)
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		for update := range stream.C() {
			s.setLatest(update)
		}
	}()

	result, runErr := collect(collector.CollectOptions{
		RunID:        runID,
		ExistingSHAs: known,
		Progress:     stream,
	})
	stream.Close()
	<-watched

	if result == nil {
		return nil, runErr
	}

	// The ledger already records these windows, so the commits are saved even when
	// the run was cancelled.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout)
	defer cancel()

	if len(result.Commits) > 0 {
		if err := s.store.SaveCommits(finishCtx, result.Commits); err != nil {
			logger.WithError(err).WithField("commits", len(result.Commits)).Error("Failed to persist collected commits")
			return result, errors.NewInternalError("failed to save collected commits", err)
		}
	}

	if runErr == nil {
		if err := s.publisher.PublishCollected(ctx, events.NewCollectedEvent(s.org, result)); err != nil {
			logger.WithError(err).Warn("Failed to publish collection event")
		}
	}

	s.metrics.SetRateRemaining(s.rates.CheckRateLimit(finishCtx).Remaining)

	logger.WithFields(logrus.Fields{
		"commits": len(result.Commits),
		"errors":  len(result.Errors),
	}).Info("Collection finished")

	return result, runErr
}

func (s *Service) setLatest(update models.CollectionProgress) {
	s.mu.Lock()
	s.latest = &update
	s.mu.Unlock()
}

// LatestProgress returns the last snapshot of the current or most recent run.
func (s *Service) LatestProgress() (models.CollectionProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return models.CollectionProgress{}, false
	}
	return *s.latest, true
}

// Ledger lists collection log entries, optionally for one repository.
func (s *Service) Ledger(ctx context.Context, repository string) ([]*models.CollectionLogEntry, error) {
	entries, err := s.ledger.List(ctx, repository)
	if err != nil {
		return nil, errors.NewInternalError("failed to list collection log", err)
	}
	return entries, nil
}

// Reset deletes ledger entries so those partitions are collected again by the next
// run. It refuses while a run holds the lock.
func (s *Service) Reset(ctx context.Context, repository string) (int64, error) {
	acquired, err := s.locker.TryLock(ctx, s.lockKey(), s.lockTTL)
	if err != nil {
		return 0, errors.NewInternalError("failed to acquire run lock", err)
	}
	if !acquired {
		return 0, errors.NewRunInProgressError(s.lockKey())
	}
	defer s.locker.Unlock(context.Background(), s.lockKey())

	deleted, err := s.ledger.Reset(ctx, repository)
	if err != nil {
		return 0, errors.NewInternalError("failed to reset collection log", err)
	}

	s.logger.WithFields(logrus.Fields{
		"repository": repository,
		"deleted":    deleted,
	}).Warn("Collection log reset")
	return deleted, nil
}

// RateLimit returns the provider quota.
func (s *Service) RateLimit(ctx context.Context) models.RateLimitStatus {
	status := s.rates.CheckRateLimit(ctx)
	s.metrics.SetRateRemaining(status.Remaining)
	return status
}

// StartSchedule runs RunToday every interval until ctx is done or StopSchedule is
// called. Starting again replaces the previous schedule.
func (s *Service) StartSchedule(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopScheduleLocked()

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	s.ticker = ticker
	s.tickDone = done

	s.logger.WithField("interval", interval).Info("Starting scheduled collection")

	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-done:
				ticker.Stop()
				return
			case <-ticker.C:
				if _, err := s.RunToday(ctx); err != nil {
					if errors.IsRunInProgress(err) {
						s.logger.Info("Skipping scheduled collection, run in progress")
						continue
					}
					s.logger.WithError(err).Error("Scheduled collection failed")
				}
			}
		}
	}()
}

// StopSchedule stops the scheduled collection, if any.
func (s *Service) StopSchedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopScheduleLocked()
}

func (s *Service) stopScheduleLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.tickDone != nil {
		close(s.tickDone)
		s.tickDone = nil
	}
}

// Close releases the event publisher.
func (s *Service) Close() error {
	s.StopSchedule()
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("failed to close publisher: %w", err)
	}
	return nil
}
