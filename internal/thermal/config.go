package thermal

import (
	"time"

	"codeberg.org/mutker/thermloop/internal/errors"
)

const (
	DefaultPollInterval = 2000 * time.Millisecond
	DefaultThreshold    = 2.0
)

type Config struct {
	PollInterval time.Duration
	Threshold    float64
}

func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		Threshold:    DefaultThreshold,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.PollInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.PollInterval)
	}
	if c.Threshold < 0 {
		return errFactory.WithData(errors.ErrInvalidThreshold, c.Threshold)
	}
	return nil
}
