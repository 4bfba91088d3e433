package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/kafka"
)

// BuildCompleted is published once a build has been reduced and persisted.
type BuildCompleted struct {
	BuildID     string    `json:"build_id"`
	Backend     string    `json:"backend"`
	Destination string    `json:"destination"`
	Documents   int       `json:"documents"`
	Terms       int       `json:"terms"`
	Workers     int       `json:"workers"`
	DurationMs  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// Publisher is the subset of kafka.Producer used to announce builds.
type Publisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// PublishCompleted announces ev keyed by its build ID.
func PublishCompleted(ctx context.Context, p Publisher, ev BuildCompleted) error {
	if err := p.Publish(ctx, kafka.Event{Key: ev.BuildID, Value: ev}); err != nil {
		return fmt.Errorf("publishing build %s completion: %w", ev.BuildID, err)
	}
	return nil
}
