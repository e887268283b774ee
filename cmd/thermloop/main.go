package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/thermloop/internal/config"
	"codeberg.org/mutker/thermloop/internal/device"
	"codeberg.org/mutker/thermloop/internal/errors"
	"codeberg.org/mutker/thermloop/internal/logger"
	"codeberg.org/mutker/thermloop/internal/metrics"
	"codeberg.org/mutker/thermloop/internal/pid"
	"codeberg.org/mutker/thermloop/internal/publish"
	"codeberg.org/mutker/thermloop/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const streamName = "depth"

type app struct {
	cfg       *config.Config
	log       logger.Logger
	device    *device.Device
	recorder  telemetry.Recorder
	publisher *publish.Publisher
	registry  *prometheus.Registry
	pidPath   string
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse log level: %v\n", err)
		os.Exit(1)
	}
	logger.Init(level, logger.IsService())
	logger.Debug().Msg("Config loaded")

	a, err := newApp(cfg, logger.Default())
	if err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.FatalWithCode(appErr).Msg("Failed to initialize")
		}
		logger.Fatal().Err(err).Msg("Failed to initialize")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.run(ctx); err != nil {
		logger.Error().Err(err).Msg("Error in main loop")
	}
	a.cleanup()
}

func newApp(cfg *config.Config, log logger.Logger) (*app, error) {
	errFactory := errors.New()

	a := &app{cfg: cfg, log: log, pidPath: pid.DefaultPath()}
	if err := pid.Write(a.pidPath); err != nil {
		return nil, err
	}

	temperature, err := device.NewTemperatureOption(cfg.SourceConfig(), log)
	if err != nil {
		a.cleanup()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	a.device, err = device.New(streamName, cfg.ThermalConfig(), temperature, device.NewToggleOption(cfg.SourceConfig()), log)
	if err != nil {
		a.cleanup()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}
	a.device.Subscribe(func(temperature float64) {
		log.Info().Float64("temperature", temperature).Msg("Thermal compensation update")
	})

	a.recorder, err = telemetry.NewService(cfg.TelemetryConfig(), log)
	if err != nil {
		a.cleanup()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}
	a.device.Subscribe(telemetry.Subscriber(a.recorder, log))

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	exporter, err := metrics.NewExporter(a.registry, a.device.Monitor())
	if err != nil {
		a.cleanup()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}
	a.device.Subscribe(exporter.Observe)

	if cfg.NATSURL != "" {
		a.publisher, err = publish.Connect(cfg.NATSURL, cfg.NATSSubject, log)
		if err != nil {
			a.cleanup()
			return nil, errFactory.Wrap(errors.ErrInitApp, err)
		}
		a.device.Subscribe(a.publisher.Observe)
	}

	return a, nil
}

// run opens the stream and then reacts to signals: SIGUSR1 toggles thermal
// compensation, SIGUSR2 closes or reopens the stream, SIGINT/SIGTERM exit.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, a.cfg.MetricsAddr, a.registry, a.log); err != nil {
				a.log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	a.device.SetCompensation(a.cfg.Enabled)
	if err := a.device.Open(); err != nil {
		return err
	}

	a.log.Info().
		Int("poll_interval_ms", a.cfg.PollInterval).
		Float64("threshold", a.cfg.Threshold).
		Str("source", a.cfg.Source).
		Bool("enabled", a.cfg.Enabled).
		Msg("Thermal monitor running")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigs:
			switch sig {
			case syscall.SIGUSR1:
				a.device.SetCompensation(!a.device.Compensation())
			case syscall.SIGUSR2:
				if a.device.Stream().IsOpen() {
					a.device.CloseStream()
				} else if err := a.device.Open(); err != nil {
					a.log.Error().Err(err).Msg("Failed to reopen stream")
				}
			default:
				a.log.Info().Msg("Received termination signal.")
				return nil
			}
		}
	}
}

func (a *app) cleanup() {
	if a.device != nil {
		if err := a.device.Close(); err != nil {
			a.log.Error().Err(err).Msg("Failed to close device")
		}
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.log.Error().Err(err).Msg("Failed to close telemetry")
		}
	}
	if err := pid.Remove(a.pidPath); err != nil {
		a.log.Error().Err(err).Msg("Failed to remove PID file")
	}
	a.log.Info().Msg("Exiting...")
}
