package device

import (
	"codeberg.org/mutker/thermloop/internal/errors"
	"codeberg.org/mutker/thermloop/internal/logger"
)

const (
	SourceStatic = "static"
	SourceHwmon  = "hwmon"
	SourceNVML   = "nvml"
)

type SourceConfig struct {
	Source            string
	HwmonPath         string
	NVMLIndex         int
	StaticTemperature float64
	TogglePath        string
}

// NewTemperatureOption builds the temperature option selected by cfg.Source.
func NewTemperatureOption(cfg SourceConfig, log logger.Logger) (Option, error) {
	errFactory := errors.New()

	switch cfg.Source {
	case SourceStatic:
		return NewValueOption(cfg.StaticTemperature), nil
	case SourceHwmon:
		if cfg.HwmonPath == "" {
			return nil, errFactory.WithData(errors.ErrInvalidConfig, "hwmon_path is empty")
		}
		return NewHwmonTemperature(cfg.HwmonPath), nil
	case SourceNVML:
		t := NewNVMLTemperature(cfg.NVMLIndex, log)
		if err := t.Initialize(); err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, errFactory.WithData(ErrUnknownSource, cfg.Source)
	}
}

// NewToggleOption returns the firmware toggle, or nil when none is configured.
func NewToggleOption(cfg SourceConfig) Option {
	if cfg.TogglePath == "" {
		return nil
	}
	return NewFileToggle(cfg.TogglePath)
}
