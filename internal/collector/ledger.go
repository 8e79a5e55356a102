package collector

import (
	"context"
	"fmt"
	"sync"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/errors"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

// LedgerStore is the durable (repository, monthKey) ledger.
// GetCollectionLog returns nil, nil when no entry exists.
type LedgerStore interface {
	GetCollectionLog(ctx context.Context, repository, monthKey string) (*models.CollectionLogEntry, error)
	UpsertCollectionLog(ctx context.Context, entry *models.CollectionLogEntry) error
	ListCollectionLogs(ctx context.Context, repository string) ([]*models.CollectionLogEntry, error)
	ResetCollectionLogs(ctx context.Context, repository string) (int64, error)
}

// Ledger fronts a LedgerStore and remembers completed partitions, which never
// change until an operator reset.
type Ledger struct {
	store     LedgerStore
	mu        sync.RWMutex
	completed map[string]*models.CollectionLogEntry
}

// NewLedger creates a ledger over store
func NewLedger(store LedgerStore) *Ledger {
	return &Ledger{
		store:     store,
		completed: make(map[string]*models.CollectionLogEntry),
	}
}

func ledgerKey(repository, monthKey string) string {
	return repository + "/" + monthKey
}

// Get returns the entry for one partition, or nil when it was never attempted.
func (l *Ledger) Get(ctx context.Context, repository, monthKey string) (*models.CollectionLogEntry, error) {
	key := ledgerKey(repository, monthKey)

	l.mu.RLock()
	if entry, ok := l.completed[key]; ok {
		l.mu.RUnlock()
		return entry, nil
	}
	l.mu.RUnlock()

	entry, err := l.store.GetCollectionLog(ctx, repository, monthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection log for %s %s: %w", repository, monthKey, err)
	}

	if entry.IsCompleted() {
		l.mu.Lock()
		l.completed[key] = entry
		l.mu.Unlock()
	}
	return entry, nil
}

// IsCompleted reports whether the partition may be skipped.
func (l *Ledger) IsCompleted(ctx context.Context, repository, monthKey string) (bool, error) {
	entry, err := l.Get(ctx, repository, monthKey)
	if err != nil {
		return false, err
	}
	return entry.IsCompleted(), nil
}

// Record upserts the outcome of one partition attempt
func (l *Ledger) Record(ctx context.Context, entry *models.CollectionLogEntry) error {
	if entry == nil {
		return errors.NewValidationError("collection log entry cannot be nil", nil)
	}
	if entry.Repository == "" || entry.MonthKey == "" {
		return errors.NewValidationError("collection log entry needs repository and month", nil)
	}

	if err := l.store.UpsertCollectionLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to upsert collection log for %s %s: %w", entry.Repository, entry.MonthKey, err)
	}

	key := ledgerKey(entry.Repository, entry.MonthKey)
	l.mu.Lock()
	if entry.IsCompleted() {
		l.completed[key] = entry
	} else {
		delete(l.completed, key)
	}
	l.mu.Unlock()

	return nil
}

// List returns ledger entries, optionally scoped to one repository.
func (l *Ledger) List(ctx context.Context, repository string) ([]*models.CollectionLogEntry, error) {
	entries, err := l.store.ListCollectionLogs(ctx, repository)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection logs: %w", err)
	}
	return entries, nil
}

// Reset deletes ledger entries (all of them when repository is empty) so the next
// run re-collects those partitions from scratch.
func (l *Ledger) Reset(ctx context.Context, repository string) (int64, error) {
	deleted, err := l.store.ResetCollectionLogs(ctx, repository)
	if err != nil {
		return 0, fmt.Errorf("failed to reset collection logs: %w", err)
	}

	l.mu.Lock()
	if repository == "" {
		l.completed = make(map[string]*models.CollectionLogEntry)
	} else {
		for key, entry := range l.completed {
			if entry.Repository == repository {
				delete(l.completed, key)
			}
		}
	}
	l.mu.Unlock()

	return deleted, nil
}
