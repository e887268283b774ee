package device

import (
	"sync"

	"codeberg.org/mutker/thermloop/internal/errors"
	"codeberg.org/mutker/thermloop/internal/logger"
	"codeberg.org/mutker/thermloop/internal/ref"
	"codeberg.org/mutker/thermloop/internal/thermal"
)

type shutdowner interface {
	Shutdown() error
}

// Device owns a depth stream, its temperature and thermal-loop toggle
// options and the thermal monitor observing them. It plays the controller
// role: stream open/close and the user compensation switch drive the
// monitor.
type Device struct {
	stream      *Stream
	temperature *ref.Slot[thermal.Querier]
	toggle      *ref.Slot[thermal.Querier]
	owned       []Option
	monitor     *thermal.Monitor
	log         logger.Logger

	mu           sync.Mutex
	compensation bool
	closed       bool
}

// New builds a device around the given options. A nil toggle means the
// firmware gate is not available and sampling is never skipped for it.
// New owns the options from the call on: they are shut down on failure too.
func New(name string, cfg thermal.Config, temperature, toggle Option, log logger.Logger) (*Device, error) {
	errFactory := errors.New()

	if temperature == nil {
		_ = shutdownOptions(toggle)
		return nil, errFactory.WithData(errors.ErrInvalidArgument, "temperature option is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	d := &Device{
		stream:       NewStream(name),
		temperature:  ref.NewSlot[thermal.Querier](temperature),
		toggle:       &ref.Slot[thermal.Querier]{},
		owned:        []Option{temperature},
		log:          log.With("device"),
		compensation: true,
	}
	if toggle != nil {
		d.toggle.Set(toggle)
		d.owned = append(d.owned, toggle)
	}

	// The monitor observes the stream through a weak pointer; the device
	// alone keeps it alive.
	activation := ref.Map(ref.Weak(d.stream), func(s *Stream) thermal.ActivationTarget { return s })

	monitor, err := thermal.NewMonitor(cfg, activation, d.temperature.Ref(), d.toggle.Ref(), log)
	if err != nil {
		d.temperature.Release()
		d.toggle.Release()
		if shutdownErr := shutdownOptions(d.owned...); shutdownErr != nil {
			d.log.Warn().Err(shutdownErr).Msg("Failed to shut down options")
		}
		return nil, err
	}
	d.monitor = monitor

	return d, nil
}

func (d *Device) Monitor() *thermal.Monitor {
	return d.monitor
}

func (d *Device) Stream() *Stream {
	return d.stream
}

// Subscribe forwards to the monitor.
func (d *Device) Subscribe(cb thermal.Callback) {
	d.monitor.Subscribe(cb)
}

// Open opens the depth stream and starts thermal compensation if the user
// has it switched on.
func (d *Device) Open() error {
	errFactory := errors.New()

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.stream.Open(); err != nil {
		return errFactory.Wrap(errors.ErrOpenStream, err)
	}
	d.log.Info().Str("stream", d.stream.Name()).Msg("Stream opened")

	if d.compensation {
		d.monitor.Update(true)
	}
	return nil
}

// CloseStream stops thermal compensation and closes the depth stream.
func (d *Device) CloseStream() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.monitor.Stop()
	d.stream.Close()
	d.log.Info().Str("stream", d.stream.Name()).Msg("Stream closed")
}

// SetCompensation is the user-facing thermal compensation switch.
func (d *Device) SetCompensation(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.compensation = on
	d.monitor.Update(on)
	d.log.Info().Bool("enabled", on).Msg("Thermal compensation switched")
}

func (d *Device) Compensation() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.compensation
}

// Close stops the monitor, shuts the stream for good and withdraws the
// options. Option references held elsewhere resolve to nothing afterwards.
func (d *Device) Close() error {
	errFactory := errors.New()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	d.monitor.Close()
	d.temperature.Release()
	d.toggle.Release()
	d.stream.shutdown()

	if err := shutdownOptions(d.owned...); err != nil {
		return errFactory.Wrap(errors.ErrCloseDevice, err)
	}
	return nil
}

// shutdownOptions shuts down every option that holds a library handle and
// returns the first failure.
func shutdownOptions(opts ...Option) error {
	var firstErr error
	for _, o := range opts {
		s, ok := o.(shutdowner)
		if !ok {
			continue
		}
		if err := s.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
