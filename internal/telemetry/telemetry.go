package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/thermloop/internal/errors"
	"codeberg.org/mutker/thermloop/internal/logger"
	"codeberg.org/mutker/thermloop/internal/thermal"
)

const recordTimeout = time.Second

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopRecorder struct{}

func NewService(cfg Config, log logger.Logger) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If telemetry is disabled, return a no-op recorder
	if !cfg.Enabled {
		log.Debug().Msg("Telemetry disabled, using no-op recorder")
		return &noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create telemetry repository")
		return nil, err
	}

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, event *Event) error {
	errFactory := errors.New()

	if event == nil {
		return errFactory.New(ErrInvalidEvent)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(event); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (s *service) Events(ctx context.Context, limit int) ([]Event, error) {
	return s.repo.Events(ctx, limit)
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	return nil
}

func (*noopRecorder) Record(_ context.Context, _ *Event) error {
	return nil
}

func (*noopRecorder) Events(_ context.Context, _ int) ([]Event, error) {
	return nil, nil
}

func (*noopRecorder) Close() error {
	return nil
}

// NewEvent classifies a monitor notification.
func NewEvent(temperature float64, at time.Time) *Event {
	kind := KindAdjustment
	if thermal.IsCompensationOff(temperature) {
		kind = KindDisabled
	}
	return &Event{Timestamp: at.UTC(), Kind: kind, Temperature: temperature}
}

// Subscriber returns a monitor callback journaling every notification.
func Subscriber(rec Recorder, log logger.Logger) thermal.Callback {
	return func(temperature float64) {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := rec.Record(ctx, NewEvent(temperature, time.Now())); err != nil {
			log.Error().Err(err).Float64("temperature", temperature).Msg("Failed to record thermal event")
		}
	}
}
