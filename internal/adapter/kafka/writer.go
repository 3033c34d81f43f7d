package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/windshadow-calendar/internal/config"
	"github.com/couchcryptid/windshadow-calendar/internal/domain"
	"github.com/couchcryptid/windshadow-calendar/internal/observability"
)

const (
	publishAttempts = 3
	initialBackoff  = 200 * time.Millisecond
	maxBackoff      = 2 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces job completion events to a Kafka topic.
// It implements jobs.Publisher.
type Publisher struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPublisher creates a Kafka producer for the configured job topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaJobTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newPublisher(w, logger, metrics)
}

func newPublisher(w messageWriter, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	return &Publisher{writer: w, logger: logger, metrics: metrics}
}

// PublishJob sends one event for a finished job, retrying transient failures
// with exponential backoff.
func (p *Publisher) PublishJob(ctx context.Context, job domain.Job) error {
	msg, err := serializeToMessage(domain.NewJobEvent(job))
	if err != nil {
		p.metrics.JobEvents.WithLabelValues("error").Inc()
		return err
	}

	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		err = p.writer.WriteMessages(ctx, msg)
		if err == nil {
			p.metrics.JobEvents.WithLabelValues("success").Inc()
			return nil
		}
		if attempt >= publishAttempts || ctx.Err() != nil {
			break
		}
		p.logger.Warn("publish job event failed, retrying",
			"job_id", job.ID, "attempt", attempt, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	p.metrics.JobEvents.WithLabelValues("error").Inc()
	return fmt.Errorf("publish job event %s: %w", job.ID, err)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a JobEvent into a Kafka message keyed by job id.
func serializeToMessage(event domain.JobEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize job event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.JobID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.Type())},
			{Key: "finished_at", Value: []byte(event.FinishedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
