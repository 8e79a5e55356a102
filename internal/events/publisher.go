package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

// CommitRef identifies one newly stored commit.
type CommitRef struct {
	Repository  string    `json:"repository"`
	SHA         string    `json:"sha"`
	CommittedAt time.Time `json:"committed_at"`
}

// CollectedEvent announces the outcome of a collection run to downstream consumers
// (digests, statistics) so they can pick up the new commits from storage.
type CollectedEvent struct {
	RunID          string      `json:"run_id"`
	Org            string      `json:"org"`
	Commits        []CommitRef `json:"commits"`
	TotalProcessed int         `json:"total_processed"`
	Errors         []string    `json:"errors"`
	StartedAt      time.Time   `json:"started_at"`
	FinishedAt     time.Time   `json:"finished_at"`
}

// NewCollectedEvent summarizes a collection result.
func NewCollectedEvent(org string, result *models.CollectionResult) CollectedEvent {
	refs := make([]CommitRef, 0, len(result.Commits))
	for _, c := range result.Commits {
		refs = append(refs, CommitRef{Repository: c.Repository, SHA: c.SHA, CommittedAt: c.CommittedAt})
	}
	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	return CollectedEvent{
		RunID:          result.RunID,
		Org:            org,
		Commits:        refs,
		TotalProcessed: result.TotalProcessed,
		Errors:         errs,
		StartedAt:      result.StartedAt,
		FinishedAt:     result.FinishedAt,
	}
}

// Publisher delivers run events
type Publisher interface {
	PublishCollected(ctx context.Context, event CollectedEvent) error
	Close() error
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes JSON events to a durable RabbitMQ queue.
type AMQPPublisher struct {
	conn   *amqp.Connection
	ch     amqpChannel
	queue  string
	logger *logrus.Logger
}

// NewAMQPPublisher connects to RabbitMQ and declares the queue.
func NewAMQPPublisher(url, queue string, logger *logrus.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &AMQPPublisher{conn: conn, ch: ch, queue: queue, logger: logger}, nil
}

func (p *AMQPPublisher) PublishCollected(ctx context.Context, event CollectedEvent) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}

	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish run %s: %w", event.RunID, err)
	}

	p.logger.WithFields(logrus.Fields{
		"run_id":  event.RunID,
		"queue":   p.queue,
		"commits": len(event.Commits),
	}).Info("Published collection event")
	return nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func newMessage(event CollectedEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.RunID,
		Type:         "commits.collected",
		Timestamp:    event.FinishedAt,
		Body:         body,
	}, nil
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishCollected(context.Context, CollectedEvent) error { return nil }

func (Nop) Close() error { return nil }
