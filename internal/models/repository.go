package models

import "time"

// Repository is an organization repository as seen by discovery
type Repository struct {
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	DefaultBranch string    `json:"default_branch,omitempty"`
	Archived      bool      `json:"archived"`
}
