package db

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

// commitChunkSize keeps multi-row inserts well under the 65535 parameter limit.
const commitChunkSize = 500

// SaveCommits upserts commits and their file lists in one transaction. A commit
// saved again without stats keeps the stats it already has.
func (s *PostgresStore) SaveCommits(ctx context.Context, commits []*models.CommitRecord) error {
	if len(commits) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(commits); start += commitChunkSize {
		end := start + commitChunkSize
		if end > len(commits) {
			end = len(commits)
		}

		query, args, err := upsertCommitsQuery(commits[start:end]).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build commit upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert commits: %w", err)
		}
	}

	for _, commit := range commits {
		if len(commit.Files) == 0 {
			continue
		}
		if err := replaceCommitFiles(ctx, tx, commit); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func upsertCommitsQuery(commits []*models.CommitRecord) sq.InsertBuilder {
	ib := psql.Insert("commits").Columns(
		"repository",
		"sha",
		"message",
		"author_name",
		"author_email",
		"author_avatar_url",
		"committed_at",
		"additions",
		"deletions",
		"files_changed",
		"url",
	)
	for _, c := range commits {
		ib = ib.Values(
			c.Repository,
			c.SHA,
			c.Message,
			c.AuthorName,
			c.AuthorEmail,
			c.AuthorAvatarURL,
			c.CommittedAt,
			c.Additions,
			c.Deletions,
			c.FilesChanged,
			c.URL,
		)
	}

	const hasStats = "(EXCLUDED.additions > 0 OR EXCLUDED.deletions > 0 OR EXCLUDED.files_changed > 0)"
	return ib.Suffix(`ON CONFLICT (repository, sha) DO UPDATE SET
			message = EXCLUDED.message,
			author_name = EXCLUDED.author_name,
			author_email = EXCLUDED.author_email,
			author_avatar_url = EXCLUDED.author_avatar_url,
			committed_at = EXCLUDED.committed_at,
			additions = CASE WHEN ` + hasStats + ` THEN EXCLUDED.additions ELSE commits.additions END,
			deletions = CASE WHEN ` + hasStats + ` THEN EXCLUDED.deletions ELSE commits.deletions END,
			files_changed = CASE WHEN ` + hasStats + ` THEN EXCLUDED.files_changed ELSE commits.files_changed END,
			url = EXCLUDED.url,
			updated_at = NOW()`)
}

func replaceCommitFiles(ctx context.Context, tx *sql.Tx, commit *models.CommitRecord) error {
	query, args, err := psql.Delete("commit_files").
		Where(sq.Eq{"repository": commit.Repository, "sha": commit.SHA}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build commit file delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear files of %s: %w", commit.SHA, err)
	}

	query, args, err = insertCommitFilesQuery(commit).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build commit file insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert files of %s: %w", commit.SHA, err)
	}
	return nil
}

func insertCommitFilesQuery(commit *models.CommitRecord) sq.InsertBuilder {
	ib := psql.Insert("commit_files").Columns(
		"repository",
		"sha",
		"filename",
		"status",
		"additions",
		"deletions",
		"changes",
		"patch",
	)
	// One statement cannot touch the same key twice, so keep the last entry per filename.
	last := make(map[string]int, len(commit.Files))
	for i, f := range commit.Files {
		last[f.Filename] = i
	}
	for i, f := range commit.Files {
		if last[f.Filename] != i {
			continue
		}
		ib = ib.Values(commit.Repository, commit.SHA, f.Filename, f.Status, f.Additions, f.Deletions, f.Changes, f.Patch)
	}
	return ib
}

// ListKnownCommits loads the (repository, sha) keys of every stored commit, used to
// seed cross-run deduplication.
func (s *PostgresStore) ListKnownCommits(ctx context.Context) (*models.SHASet, error) {
	query, args, err := psql.Select("repository", "sha").From("commits").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build known commits query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query known commits: %w", err)
	}
	defer rows.Close()

	known := models.NewSHASet()
	for rows.Next() {
		var repository, sha string
		if err := rows.Scan(&repository, &sha); err != nil {
			return nil, fmt.Errorf("failed to scan known commit: %w", err)
		}
		known.Add(repository, sha)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating known commits: %w", err)
	}
	return known, nil
}
