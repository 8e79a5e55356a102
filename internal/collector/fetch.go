package collector

import (
	"context"
	"fmt"
	"sync"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/batch"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/github"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

type branchJob struct {
	index int
	name  string
}

// fetchWindow lists the repository's branches and fetches the window from each of
// them, a few branches at a time, merging the results by SHA. Empty or missing
// repositories and branches contribute nothing; any other failure fails the window.
func (r *run) fetchWindow(ctx context.Context, repo string, w Window) ([]*models.CommitRecord, error) {
	branches, err := r.branches.GetOrLoad(repo, func() ([]string, error) {
		return r.provider.ListBranches(ctx, repo)
	})
	if err != nil {
		if github.IsEmptyOrMissing(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list branches: %w", err)
	}
	if len(branches) == 0 {
		return nil, nil
	}

	jobs := make([]branchJob, len(branches))
	for i, name := range branches {
		jobs[i] = branchJob{index: i, name: name}
	}

	perBranch := make([][]*models.CommitRecord, len(branches))
	var (
		mu       sync.Mutex
		firstErr error
	)
	err = batch.Run(ctx, jobs, batch.Options{Size: r.cfg.BranchBatchSize}, func(ctx context.Context, job branchJob) {
		commits, err := r.provider.ListCommits(ctx, repo, job.name, w.Start, w.End)
		if err != nil {
			if github.IsEmptyOrMissing(err) {
				return
			}
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("list commits on %s: %w", job.name, err)
			}
			mu.Unlock()
			return
		}
		perBranch[job.index] = commits
	})
	if err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return mergeBranches(perBranch), nil
}

// mergeBranches unions per-branch commit lists into one list keyed by SHA. The first
// branch to report a SHA fixes its position; later reports overwrite its fields.
func mergeBranches(perBranch [][]*models.CommitRecord) []*models.CommitRecord {
	bySHA := make(map[string]*models.CommitRecord)
	var merged []*models.CommitRecord

	for _, commits := range perBranch {
		for _, commit := range commits {
			if commit == nil {
				continue
			}
			if existing, ok := bySHA[commit.SHA]; ok {
				*existing = *commit
				continue
			}
			record := *commit
			bySHA[commit.SHA] = &record
			merged = append(merged, &record)
		}
	}
	return merged
}
