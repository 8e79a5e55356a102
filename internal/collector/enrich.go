package collector

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/batch"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

// enrich back-fills line stats and file lists for collected commits that lack them.
// Detail is best effort: a failed fetch leaves the commit as it was.
func (r *run) enrich(ctx context.Context) {
	r.mu.Lock()
	var targets []*models.CommitRecord
	for _, commit := range r.commits {
		if !commit.HasStats() {
			targets = append(targets, commit)
		}
	}
	r.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	logger := r.logger.WithFields(logrus.Fields{
		"run_id":  r.id,
		"commits": len(targets),
	})
	logger.Info("Fetching commit details")
	r.emit(models.PhaseDetails, "", "", fmt.Sprintf("Fetching details for %d commits", len(targets)))

	opts := batch.Options{
		Size:  r.cfg.DetailBatchSize,
		Delay: r.cfg.DetailBatchDelay,
		OnBatchDone: func(processed, total int) {
			r.emit(models.PhaseDetails, "", "", fmt.Sprintf("Fetched details for %d/%d commits", processed, total))
		},
	}

	err := batch.Run(ctx, targets, opts, func(ctx context.Context, commit *models.CommitRecord) {
		detail, err := r.provider.GetCommitDetail(ctx, commit.Repository, commit.SHA)
		if err != nil {
			r.metrics.DetailFailed()
			logger.WithFields(logrus.Fields{
				"repository": commit.Repository,
				"sha":        commit.SHA,
			}).WithError(err).Debug("Failed to fetch commit detail")
			return
		}
		commit.ApplyDetail(detail)
	})
	if err != nil {
		logger.WithError(err).Warn("Detail enrichment stopped early")
	}
}
