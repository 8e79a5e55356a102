package collector

import (
	"context"
	"time"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

// CollectDay collects a single calendar day, as seen in the configured time zone,
// always with detail enrichment. Day windows never cover a full month, so they are
// recorded as partial and the month stays eligible for later runs.
func (c *Collector) CollectDay(ctx context.Context, day time.Time, opts CollectOptions) (*models.CollectionResult, error) {
	start, end := DayBounds(day, c.location)
	opts.IncludeDetails = true
	return c.Collect(ctx, start, end, opts)
}
