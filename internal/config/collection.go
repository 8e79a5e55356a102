package config

import (
	"fmt"
	"time"
)

// CollectionConfig holds batching and throttling settings for a collection run
type CollectionConfig struct {
	RepoBatchSize    int           `envconfig:"REPO_BATCH_SIZE" default:"5" validate:"min=1"`
	BranchBatchSize  int           `envconfig:"BRANCH_BATCH_SIZE" default:"3" validate:"min=1"`
	DetailBatchSize  int           `envconfig:"DETAIL_BATCH_SIZE" default:"10" validate:"min=1"`
	WindowDelay      time.Duration `envconfig:"WINDOW_DELAY" default:"500ms"`
	DetailBatchDelay time.Duration `envconfig:"DETAIL_BATCH_DELAY" default:"200ms"`
	BranchCacheTTL   time.Duration `envconfig:"BRANCH_CACHE_TTL" default:"10m"`
	TimeZone         string        `envconfig:"TIMEZONE" default:"UTC"`
	RunLockTTL       time.Duration `envconfig:"RUN_LOCK_TTL" default:"2h"`
}

// DefaultCollectionConfig returns the default collection configuration
func DefaultCollectionConfig() *CollectionConfig {
	return &CollectionConfig{
		RepoBatchSize:    5,
		BranchBatchSize:  3,
		DetailBatchSize:  10,
		WindowDelay:      500 * time.Millisecond,
		DetailBatchDelay: 200 * time.Millisecond,
		BranchCacheTTL:   10 * time.Minute,
		TimeZone:         "UTC",
		RunLockTTL:       2 * time.Hour,
	}
}

// Location resolves the zone used to compute single-day bounds.
func (c CollectionConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}
