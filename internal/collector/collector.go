package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/batch"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/cache"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/config"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/errors"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/metrics"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

// Provider is the read-only view of the hosted Git provider the collector needs.
type Provider interface {
	Org() string
	ListRepositories(ctx context.Context) ([]models.Repository, error)
	ListBranches(ctx context.Context, repo string) ([]string, error)
	ListCommits(ctx context.Context, repo, branch string, since, until time.Time) ([]*models.CommitRecord, error)
	GetCommitDetail(ctx context.Context, repo, sha string) (*models.CommitDetail, error)
}

// CollectOptions tunes a single run
type CollectOptions struct {
	// RunID labels progress snapshots and the result. Generated when empty.
	RunID string
	// IncludeDetails enriches collected commits with stats and files.
	IncludeDetails bool
	// ExistingSHAs holds commits the caller already has. New commits are added to it.
	ExistingSHAs *models.SHASet
	// Progress receives snapshots during the run. Optional.
	Progress *ProgressStream
}

// Option configures a Collector
type Option func(*Collector)

// WithMetrics records window and commit counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}

// WithClock overrides the time source used for ledger timestamps and month completion.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// Collector walks every repository of the organization month by month, skipping
// partitions the ledger marks as completed.
type Collector struct {
	provider Provider
	ledger   *Ledger
	cfg      config.CollectionConfig
	location *time.Location
	logger   *logrus.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates a collector
func New(provider Provider, ledger *Ledger, cfg config.CollectionConfig, logger *logrus.Logger, opts ...Option) (*Collector, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, errors.NewValidationError("invalid collection time zone", err)
	}

	c := &Collector{
		provider: provider,
		ledger:   ledger,
		cfg:      cfg,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ledger returns the ledger the collector reads and writes.
func (c *Collector) Ledger() *Ledger {
	return c.ledger
}

// Location returns the zone used for single-day collection.
func (c *Collector) Location() *time.Location {
	return c.location
}

// run is the mutable state of one Collect call.
type run struct {
	*Collector
	id       string
	progress *ProgressStream
	existing *models.SHASet
	branches *cache.TTLCache[string, []string]

	mu               sync.Mutex
	commits          []*models.CommitRecord
	errs             []string
	totalProcessed   int
	reposTotal       int
	reposProcessed   int
	commitsProcessed int
}

func (c *Collector) newRun(opts CollectOptions) *run {
	id := opts.RunID
	if id == "" {
		id = uuid.NewString()
	}
	existing := opts.ExistingSHAs
	if existing == nil {
		existing = models.NewSHASet()
	}
	return &run{
		Collector: c,
		id:        id,
		progress:  opts.Progress,
		existing:  existing,
		branches:  cache.New[string, []string](c.cfg.BranchCacheTTL),
	}
}

// Collect gathers every commit authored in [start, end] across the organization's
// repositories that the caller does not already know about. Per-window failures are
// reported in the result's Errors and never abort the run. The returned error is
// non-nil only when nothing could be attempted (no repositories, discovery failure)
// or the context was cancelled; a result is returned in every case.
func (c *Collector) Collect(ctx context.Context, start, end time.Time, opts CollectOptions) (*models.CollectionResult, error) {
	r := c.newRun(opts)
	startedAt := c.now()
	defer func() {
		c.metrics.ObserveRun(c.now().Sub(startedAt))
	}()

	logger := c.logger.WithFields(logrus.Fields{
		"run_id": r.id,
		"start":  start,
		"end":    end,
	})
	logger.Info("Starting collection run")

	r.emit(models.PhaseRepos, "", "", "Discovering repositories")

	repos, err := c.provider.ListRepositories(ctx)
	if err != nil || len(repos) == 0 {
		var appErr *errors.AppError
		if err != nil {
			appErr = errors.NewDiscoveryFailedError(c.provider.Org(), err)
		} else {
			appErr = errors.NewNoRepositoriesError(c.provider.Org())
		}
		logger.WithError(appErr).Error("Aborting collection run")
		r.addError(appErr.Error())
		r.emit(models.PhaseComplete, "", "", appErr.Message)
		return r.result(startedAt), appErr
	}

	r.mu.Lock()
	r.reposTotal = len(repos)
	r.mu.Unlock()
	r.emit(models.PhaseRepos, "", "", fmt.Sprintf("Found %d repositories", len(repos)))

	runErr := batch.Run(ctx, repos, batch.Options{Size: c.cfg.RepoBatchSize}, func(ctx context.Context, repo models.Repository) {
		r.collectRepository(ctx, repo, start, end)
	})
	if runErr == nil {
		runErr = ctx.Err()
	}

	if runErr == nil && opts.IncludeDetails {
		r.enrich(ctx)
		runErr = ctx.Err()
	}

	result := r.result(startedAt)
	if runErr != nil {
		logger.WithError(runErr).Warn("Collection run interrupted")
		r.emit(models.PhaseComplete, "", "", "Collection interrupted")
		return result, fmt.Errorf("collection run %s interrupted: %w", r.id, runErr)
	}

	logger.WithFields(logrus.Fields{
		"commits":         len(result.Commits),
		"total_processed": result.TotalProcessed,
		"errors":          len(result.Errors),
		"duration":        result.FinishedAt.Sub(result.StartedAt),
	}).Info("Collection run finished")
	r.emit(models.PhaseComplete, "", "", fmt.Sprintf("Collected %d new commits", len(result.Commits)))

	return result, nil
}

// collectRepository walks one repository's months in ascending order so that an
// interruption leaves a prefix of recorded partitions.
func (r *run) collectRepository(ctx context.Context, repo models.Repository, start, end time.Time) {
	defer func() {
		r.mu.Lock()
		r.reposProcessed++
		r.mu.Unlock()
	}()

	logger := r.logger.WithFields(logrus.Fields{
		"run_id":     r.id,
		"repository": repo.Name,
	})

	effectiveStart := EffectiveStart(start, repo.CreatedAt)
	if effectiveStart.After(end) {
		logger.WithField("created_at", repo.CreatedAt).Debug("Repository created after range, skipping")
		r.emit(models.PhaseCommits, repo.Name, "", "Repository created after requested range")
		return
	}

	for _, w := range MonthWindows(effectiveStart, end) {
		if ctx.Err() != nil {
			return
		}
		if !r.collectWindow(ctx, repo, w) {
			continue
		}
		if err := batch.Sleep(ctx, r.cfg.WindowDelay); err != nil {
			return
		}
	}
}

// collectWindow handles one (repository, month) partition and reports whether the
// provider was contacted.
func (r *run) collectWindow(ctx context.Context, repo models.Repository, w Window) bool {
	logger := r.logger.WithFields(logrus.Fields{
		"run_id":     r.id,
		"repository": repo.Name,
		"month":      w.MonthKey,
	})

	completed, err := r.ledger.IsCompleted(ctx, repo.Name, w.MonthKey)
	if err != nil {
		logger.WithError(err).Warn("Ledger lookup failed, collecting anyway")
	}
	if completed {
		r.metrics.WindowSkipped()
		r.emit(models.PhaseCommits, repo.Name, w.MonthKey, fmt.Sprintf("%s %s already collected", repo.Name, w.MonthKey))
		return false
	}

	r.emit(models.PhaseCommits, repo.Name, w.MonthKey, fmt.Sprintf("Collecting %s %s", repo.Name, w.MonthKey))

	commits, err := r.fetchWindow(ctx, repo.Name, w)
	if ctx.Err() != nil {
		// Cancelled mid-window: leave the ledger untouched so the month is retried.
		return true
	}

	entry := &models.CollectionLogEntry{
		Repository:  repo.Name,
		MonthKey:    w.MonthKey,
		CollectedAt: r.now(),
	}
	if err != nil {
		msg := err.Error()
		entry.Status = models.StatusError
		entry.ErrorMessage = &msg
		r.addError(fmt.Sprintf("%s %s: %s", repo.Name, w.MonthKey, msg))
		logger.WithError(err).Error("Failed to collect window")
	} else {
		entry.Status = r.statusFor(repo, w)
		entry.CommitCount = r.accept(repo.Name, commits)
		logger.WithFields(logrus.Fields{
			"fetched": len(commits),
			"new":     entry.CommitCount,
			"status":  entry.Status,
		}).Debug("Collected window")
	}

	if err := r.ledger.Record(ctx, entry); err != nil {
		logger.WithError(err).Error("Failed to record window outcome")
		r.addError(fmt.Sprintf("%s %s: %v", repo.Name, w.MonthKey, err))
	}
	r.metrics.ObserveWindow(string(entry.Status))

	return true
}

// statusFor decides whether a successful window may be skipped by future runs. Only a
// window covering its whole month, from the first day (or the repository's creation)
// through the last millisecond of a month that has already ended, is completed.
func (c *Collector) statusFor(repo models.Repository, w Window) models.CollectionStatus {
	coversStart := w.StartsAtMonthStart() || !w.Start.After(repo.CreatedAt)
	if coversStart && w.EndsAtMonthEnd() && c.now().After(w.End) {
		return models.StatusCompleted
	}
	return models.StatusPartial
}

// accept adds the commits the caller does not know yet to the run and returns how
// many were new.
func (r *run) accept(repository string, commits []*models.CommitRecord) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalProcessed += len(commits)
	fresh := 0
	for _, commit := range commits {
		if !r.existing.AddIfAbsent(repository, commit.SHA) {
			continue
		}
		r.commits = append(r.commits, commit)
		fresh++
	}
	r.commitsProcessed += len(commits)
	r.metrics.AddCommits(fresh)
	return fresh
}

func (r *run) result(startedAt time.Time) *models.CollectionResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	commits := make([]*models.CommitRecord, len(r.commits))
	copy(commits, r.commits)
	sort.SliceStable(commits, func(i, j int) bool {
		if !commits[i].CommittedAt.Equal(commits[j].CommittedAt) {
			return commits[i].CommittedAt.Before(commits[j].CommittedAt)
		}
		if commits[i].Repository != commits[j].Repository {
			return commits[i].Repository < commits[j].Repository
		}
		return commits[i].SHA < commits[j].SHA
	})

	errs := make([]string, len(r.errs))
	copy(errs, r.errs)

	return &models.CollectionResult{
		RunID:          r.id,
		Commits:        commits,
		TotalProcessed: r.totalProcessed,
		Errors:         errs,
		StartedAt:      startedAt,
		FinishedAt:     r.now(),
	}
}

func (r *run) addError(msg string) {
	r.mu.Lock()
	r.errs = append(r.errs, msg)
	r.mu.Unlock()
}

func (r *run) emit(phase models.CollectionPhase, repository, monthKey, message string) {
	if r.progress == nil {
		return
	}
	r.mu.Lock()
	update := models.CollectionProgress{
		RunID:            r.id,
		Phase:            phase,
		Repository:       repository,
		MonthKey:         monthKey,
		ReposProcessed:   r.reposProcessed,
		ReposTotal:       r.reposTotal,
		CommitsProcessed: r.commitsProcessed,
		CommitsTotal:     len(r.commits),
		Message:          message,
		Timestamp:        r.now(),
	}
	r.mu.Unlock()
	r.progress.emit(update)
}
