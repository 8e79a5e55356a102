package api

import (
	_ "github.com/coolwithyou/studiobaton.live-sub000/docs"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

// CollectRequest starts an explicit collection run
// @Description Date range to collect. Dates are YYYY-MM-DD or RFC3339; a bare end date covers the whole day.
type CollectRequest struct {
	// First day to collect
	Start string `json:"start" binding:"required" example:"2023-01-01"`
	// Last day to collect, inclusive
	End string `json:"end" binding:"required" example:"2024-06-30"`
	// Fetch stats and changed files for every new commit
	IncludeDetails bool `json:"include_details" example:"false"`
}

// ErrorResponse represents an API error
// @Description Error response from the API
type ErrorResponse struct {
	Error string `json:"error" example:"collection run already in progress"`
	Type  string `json:"type,omitempty" example:"RUN_IN_PROGRESS" enums:"NOT_FOUND,RATE_LIMIT,INVALID_INPUT,INTERNAL,UNAUTHORIZED,NO_REPOSITORIES,DISCOVERY_FAILED,RUN_IN_PROGRESS"`
}

// CollectFailureResponse is returned when a run fails after producing a result,
// e.g. discovery failures or interruption.
type CollectFailureResponse struct {
	ErrorResponse
	Result *models.CollectionResult `json:"result"`
}

// CollectionLogResponse lists ledger entries
type CollectionLogResponse struct {
	Repository string                       `json:"repository,omitempty" example:"api"`
	Entries    []*models.CollectionLogEntry `json:"entries"`
	Count      int                          `json:"count" example:"18"`
}

// ResetResponse reports how many ledger entries were removed
type ResetResponse struct {
	Repository string `json:"repository,omitempty" example:"api"`
	Deleted    int64  `json:"deleted" example:"15"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Error  string `json:"error,omitempty"`
}
