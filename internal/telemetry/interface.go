package telemetry

import (
	"context"
	"time"
)

// Recorder defines the core domain interface
type Recorder interface {
	Record(ctx context.Context, event *Event) error
	Events(ctx context.Context, limit int) ([]Event, error)
	Close() error
}

// Repository defines the interface for event storage
type Repository interface {
	Record(event *Event) error
	Events(ctx context.Context, limit int) ([]Event, error)
	Close() error
}

// Kind tells a recalibration trigger from a compensation shutdown.
type Kind string

const (
	KindAdjustment Kind = "adjustment"
	KindDisabled   Kind = "disabled"
)

// Event is one thermal notification.
type Event struct {
	Timestamp   time.Time
	Kind        Kind
	Temperature float64
}
