package collector

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/config"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

// fakeProvider serves canned repositories, branches and commits and records calls.
type fakeProvider struct {
	mu sync.Mutex

	repos     []models.Repository
	reposErr  error
	branches  map[string][]string
	branchErr map[string]error
	// commits are keyed by "repo/branch"; ListCommits filters them by window.
	commits   map[string][]*models.CommitRecord
	commitErr func(repo, branch string, since time.Time) error
	details   map[string]*models.CommitDetail
	detailErr map[string]error
	onDetail  func()

	branchCalls map[string]int
	windowCalls map[string][]string
	since       map[string][]time.Time
	detailCalls int
}

func newFakeProvider(repos ...models.Repository) *fakeProvider {
	return &fakeProvider{
		repos:       repos,
		branches:    make(map[string][]string),
		branchErr:   make(map[string]error),
		commits:     make(map[string][]*models.CommitRecord),
		details:     make(map[string]*models.CommitDetail),
		detailErr:   make(map[string]error),
		branchCalls: make(map[string]int),
		windowCalls: make(map[string][]string),
		since:       make(map[string][]time.Time),
	}
}

func (f *fakeProvider) Org() string { return "acme" }

func (f *fakeProvider) ListRepositories(ctx context.Context) ([]models.Repository, error) {
	if f.reposErr != nil {
		return nil, f.reposErr
	}
	return f.repos, nil
}

func (f *fakeProvider) ListBranches(ctx context.Context, repo string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.branchCalls[repo]++
	if err := f.branchErr[repo]; err != nil {
		return nil, err
	}
	return f.branches[repo], nil
}

func (f *fakeProvider) ListCommits(ctx context.Context, repo, branch string, since, until time.Time) ([]*models.CommitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	month := MonthKey(since)
	calls := f.windowCalls[repo]
	if len(calls) == 0 || calls[len(calls)-1] != month {
		f.windowCalls[repo] = append(calls, month)
	}
	f.since[repo] = append(f.since[repo], since)

	if f.commitErr != nil {
		if err := f.commitErr(repo, branch, since); err != nil {
			return nil, err
		}
	}

	var out []*models.CommitRecord
	for _, c := range f.commits[repo+"/"+branch] {
		if c.CommittedAt.Before(since) || c.CommittedAt.After(until) {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeProvider) GetCommitDetail(ctx context.Context, repo, sha string) (*models.CommitDetail, error) {
	if f.onDetail != nil {
		f.onDetail()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if err := f.detailErr[sha]; err != nil {
		return nil, err
	}
	return f.details[sha], nil
}

func (f *fakeProvider) addCommit(repo, branch, sha string, at time.Time) {
	f.commits[repo+"/"+branch] = append(f.commits[repo+"/"+branch], &models.CommitRecord{
		SHA:         sha,
		Repository:  repo,
		Message:     "commit " + sha,
		AuthorName:  "dev",
		CommittedAt: at,
		URL:         "https://github.com/acme/" + repo + "/commit/" + sha,
	})
}

func (f *fakeProvider) monthsFor(repo string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	months := append([]string(nil), f.windowCalls[repo]...)
	return months
}

// memoryLedger is an in-memory LedgerStore.
type memoryLedger struct {
	mu        sync.Mutex
	entries   map[string]models.CollectionLogEntry
	gets      int
	upserts   int
	getErr    error
	upsertErr error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{entries: make(map[string]models.CollectionLogEntry)}
}

func (m *memoryLedger) GetCollectionLog(ctx context.Context, repository, monthKey string) (*models.CollectionLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	entry, ok := m.entries[ledgerKey(repository, monthKey)]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (m *memoryLedger) UpsertCollectionLog(ctx context.Context, entry *models.CollectionLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.entries[ledgerKey(entry.Repository, entry.MonthKey)] = *entry
	return nil
}

func (m *memoryLedger) ListCollectionLogs(ctx context.Context, repository string) ([]*models.CollectionLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CollectionLogEntry
	for _, entry := range m.entries {
		if repository != "" && entry.Repository != repository {
			continue
		}
		e := entry
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool {
		return ledgerKey(out[i].Repository, out[i].MonthKey) < ledgerKey(out[j].Repository, out[j].MonthKey)
	})
	return out, nil
}

func (m *memoryLedger) ResetCollectionLogs(ctx context.Context, repository string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for key, entry := range m.entries {
		if repository == "" || entry.Repository == repository {
			delete(m.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memoryLedger) entry(repository, monthKey string) (models.CollectionLogEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[ledgerKey(repository, monthKey)]
	return e, ok
}

func (m *memoryLedger) seed(repository, monthKey string, status models.CollectionStatus, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[ledgerKey(repository, monthKey)] = models.CollectionLogEntry{
		Repository:  repository,
		MonthKey:    monthKey,
		Status:      status,
		CollectedAt: at,
	}
}

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testConfig() config.CollectionConfig {
	return config.CollectionConfig{
		RepoBatchSize:   5,
		BranchBatchSize: 3,
		DetailBatchSize: 10,
		BranchCacheTTL:  time.Minute,
		TimeZone:        "UTC",
	}
}

func newTestCollector(provider Provider, store LedgerStore, opts ...Option) *Collector {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	c, err := New(provider, NewLedger(store), testConfig(), logger, opts...)
	if err != nil {
		panic(err)
	}
	return c
}
