package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store defines the interface for database operations
type Store interface {
	// Collection ledger
	GetCollectionLog(ctx context.Context, repository, monthKey string) (*models.CollectionLogEntry, error)
	UpsertCollectionLog(ctx context.Context, entry *models.CollectionLogEntry) error
	ListCollectionLogs(ctx context.Context, repository string) ([]*models.CollectionLogEntry, error)
	ResetCollectionLogs(ctx context.Context, repository string) (int64, error)

	// Commit operations
	SaveCommits(ctx context.Context, commits []*models.CommitRecord) error
	ListKnownCommits(ctx context.Context) (*models.SHASet, error)

	Ping(ctx context.Context) error
	Close() error
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Migrate applies the embedded schema migrations.
func (s *PostgresStore) Migrate() error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
