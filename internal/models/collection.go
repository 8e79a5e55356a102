package models

import (
	"sync"
	"time"
)

// CollectionResult is what one collector invocation hands back to its caller
type CollectionResult struct {
	RunID          string          `json:"run_id"`
	Commits        []*CommitRecord `json:"commits"`
	TotalProcessed int             `json:"total_processed"`
	Errors         []string        `json:"errors"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
}

// SHASet is a caller-owned set of already known commits keyed by (repository, sha).
// It is safe for concurrent use.
type SHASet struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewSHASet creates an empty set
func NewSHASet() *SHASet {
	return &SHASet{keys: make(map[string]struct{})}
}

// Add marks the commit as known.
func (s *SHASet) Add(repository, sha string) {
	s.mu.Lock()
	s.keys[CommitKey(repository, sha)] = struct{}{}
	s.mu.Unlock()
}

// AddIfAbsent marks the commit as known and reports whether it was new.
func (s *SHASet) AddIfAbsent(repository, sha string) bool {
	key := CommitKey(repository, sha)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// Has reports whether the commit is known.
func (s *SHASet) Has(repository, sha string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[CommitKey(repository, sha)]
	return ok
}

// Len returns the number of known commits.
func (s *SHASet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
