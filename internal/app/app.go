package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/collector"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/config"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/db"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/events"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/github"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/harvest"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/lock"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/metrics"
)

// App holds the wired collection stack shared by the server and the CLI
type App struct {
	Service *harvest.Service
	Store   *db.PostgresStore
	Metrics *metrics.Metrics

	redis *redis.Client
}

// NewLogger creates the JSON logger used by every entry point.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// New connects to storage and the optional Redis and RabbitMQ backends and wires the
// harvest service.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	var store *db.PostgresStore
	err := retry(3, 5*time.Second, func() error {
		var err error
		store, err = db.NewPostgresStore(cfg.DatabaseURL)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := retry(3, 5*time.Second, store.Migrate); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to run migrations after retries: %w", err)
	}

	clientOpts := []github.ClientOption{
		github.WithRetryConfig(cfg.GitHub.Retry.MaxRetries, cfg.GitHub.Retry.InitialBackoff, cfg.GitHub.Retry.MaxBackoff),
	}
	if cfg.GitHub.Timeout > 0 {
		clientOpts = append(clientOpts, github.WithTimeout(cfg.GitHub.Timeout))
	}
	if cfg.GitHub.APIBaseURL != "" {
		clientOpts = append(clientOpts, github.WithBaseURL(cfg.GitHub.APIBaseURL))
	}
	client, err := github.NewClient(cfg.GitHub.Token, cfg.GitHub.Org, logger, clientOpts...)
	if err != nil {
		store.Close()
		return nil, err
	}

	m := metrics.New()
	col, err := collector.New(client, collector.NewLedger(store), cfg.Collection, logger, collector.WithMetrics(m))
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &App{Store: store, Metrics: m}
	opts := []harvest.Option{
		harvest.WithMetrics(m),
		harvest.WithLockTTL(cfg.Collection.RunLockTTL),
	}

	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		opts = append(opts, harvest.WithLocker(lock.NewRedisLock(a.redis)))
		logger.WithField("addr", cfg.RedisAddr).Info("Using Redis run lock")
	}

	if cfg.RabbitMQURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, harvest.WithPublisher(publisher))
		logger.WithField("queue", cfg.RabbitMQQueue).Info("Publishing collection events")
	}

	a.Service = harvest.NewService(cfg.GitHub.Org, col, col.Ledger(), store, client, logger, opts...)
	return a, nil
}

// Close stops the service and releases every connection.
func (a *App) Close() error {
	var firstErr error
	if a.Service != nil {
		if err := a.Service.Close(); err != nil {
			firstErr = err
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.Store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
