package db

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

var collectionLogColumns = []string{
	"repository",
	"month_key",
	"status",
	"commit_count",
	"error_message",
	"collected_at",
}

// GetCollectionLog returns the ledger entry for one partition, or nil when the
// partition was never attempted.
func (s *PostgresStore) GetCollectionLog(ctx context.Context, repository, monthKey string) (*models.CollectionLogEntry, error) {
	query, args, err := psql.Select(collectionLogColumns...).
		From("collection_log").
		Where(sq.Eq{"repository": repository, "month_key": monthKey}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build collection log query: %w", err)
	}

	entry, err := scanCollectionLog(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get collection log: %w", err)
	}

	return entry, nil
}

// UpsertCollectionLog writes the outcome of a partition attempt, replacing any
// previous outcome for the same (repository, month).
func (s *PostgresStore) UpsertCollectionLog(ctx context.Context, entry *models.CollectionLogEntry) error {
	if entry == nil {
		return fmt.Errorf("collection log entry cannot be nil")
	}

	query, args, err := upsertCollectionLogQuery(entry).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build collection log upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert collection log: %w", err)
	}

	return nil
}

func upsertCollectionLogQuery(entry *models.CollectionLogEntry) sq.InsertBuilder {
	return psql.Insert("collection_log").
		Columns(collectionLogColumns...).
		Values(
			entry.Repository,
			entry.MonthKey,
			string(entry.Status),
			entry.CommitCount,
			entry.ErrorMessage,
			entry.CollectedAt,
		).
		Suffix(`ON CONFLICT (repository, month_key) DO UPDATE SET
			status = EXCLUDED.status,
			commit_count = EXCLUDED.commit_count,
			error_message = EXCLUDED.error_message,
			collected_at = EXCLUDED.collected_at`)
}

// ListCollectionLogs returns ledger entries ordered by repository and month,
// optionally restricted to one repository.
func (s *PostgresStore) ListCollectionLogs(ctx context.Context, repository string) ([]*models.CollectionLogEntry, error) {
	query, args, err := listCollectionLogsQuery(repository).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build collection log list: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.CollectionLogEntry
	for rows.Next() {
		entry, err := scanCollectionLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection log row: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection log rows: %w", err)
	}

	return entries, nil
}

func listCollectionLogsQuery(repository string) sq.SelectBuilder {
	sb := psql.Select(collectionLogColumns...).From("collection_log")
	if repository != "" {
		sb = sb.Where(sq.Eq{"repository": repository})
	}
	return sb.OrderBy("repository", "month_key")
}

// ResetCollectionLogs deletes ledger entries so the partitions are collected again.
// An empty repository resets the whole ledger.
func (s *PostgresStore) ResetCollectionLogs(ctx context.Context, repository string) (int64, error) {
	del := psql.Delete("collection_log")
	if repository != "" {
		del = del.Where(sq.Eq{"repository": repository})
	}

	query, args, err := del.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build collection log reset: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reset collection logs: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count reset collection logs: %w", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollectionLog(row rowScanner) (*models.CollectionLogEntry, error) {
	var (
		entry  models.CollectionLogEntry
		status string
		errMsg sql.NullString
	)
	if err := row.Scan(
		&entry.Repository,
		&entry.MonthKey,
		&status,
		&entry.CommitCount,
		&errMsg,
		&entry.CollectedAt,
	); err != nil {
		return nil, err
	}

	entry.Status = models.CollectionStatus(status)
	if errMsg.Valid {
		entry.ErrorMessage = &errMsg.String
	}
	return &entry, nil
}
