package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Event subjects published on the bus.
const (
	SubjectDatasetPrepared    = "forge.dataset.prepared"
	SubjectBenchmarkCompleted = "forge.benchmark.completed"
)

// EventPublisher announces pipeline outcomes to other services.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
}

// DatasetPreparedEvent is published after a dataset has been written.
type DatasetPreparedEvent struct {
	BuildID    string    `json:"build_id"`
	Domain     string    `json:"domain"`
	OutputDir  string    `json:"output_dir"`
	Train      int       `json:"train"`
	Valid      int       `json:"valid"`
	Test       int       `json:"test"`
	PreparedAt time.Time `json:"prepared_at"`
}

// BenchmarkCompletedEvent is published after a benchmark run has been scored.
type BenchmarkCompletedEvent struct {
	RunID        string    `json:"run_id"`
	Domain       string    `json:"domain"`
	Version      string    `json:"version"`
	Model        string    `json:"model"`
	OverallScore float64   `json:"overall_score"`
	Status       string    `json:"status,omitempty"`
	Delta        float64   `json:"delta"`
	ResultFile   string    `json:"result_file"`
	CompletedAt  time.Time `json:"completed_at"`
}

// NewEventPublisher publishes JSON payloads on NATS. A nil connection yields a publisher that drops events.
func NewEventPublisher(conn *nats.Conn, logger zerolog.Logger) EventPublisher {
	if conn == nil {
		return noopPublisher{}
	}
	return &natsPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

type natsPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug().Str("subject", subject).Int("bytes", len(data)).Msg("event published")
	return nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, interface{}) error {
	return nil
}
