package models

import "time"

// CollectionPhase names the stage a run is in
type CollectionPhase string

const (
	PhaseRepos    CollectionPhase = "repos"
	PhaseCommits  CollectionPhase = "commits"
	PhaseDetails  CollectionPhase = "details"
	PhaseComplete CollectionPhase = "complete"
)

// CollectionProgress is a transient snapshot emitted during a run.
// It is informational only and carries no authority over correctness.
type CollectionProgress struct {
	RunID            string          `json:"run_id"`
	Phase            CollectionPhase `json:"phase"`
	Repository       string          `json:"repository,omitempty"`
	MonthKey         string          `json:"month_key,omitempty"`
	ReposProcessed   int             `json:"repos_processed"`
	ReposTotal       int             `json:"repos_total"`
	CommitsProcessed int             `json:"commits_processed"`
	CommitsTotal     int             `json:"commits_total"`
	Message          string          `json:"message"`
	Timestamp        time.Time       `json:"timestamp"`
}
