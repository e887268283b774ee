// Package thermal watches a depth sensor's temperature and tells subscribers
// when it has drifted far enough from the last calibration point to warrant
// a thermal recalibration.
package thermal

import (
	"math"
	"sync"

	"codeberg.org/mutker/thermloop/internal/dispatcher"
	"codeberg.org/mutker/thermloop/internal/errors"
	"codeberg.org/mutker/thermloop/internal/logger"
	"codeberg.org/mutker/thermloop/internal/ref"
)

// Device options are single precision; anything closer to zero than one
// float32 ulp at 1.0 reads as "off".
const toggleEpsilon = 1.1920929e-07

// Monitor polls the temperature option while active and notifies
// subscribers about significant changes. It holds only non-owning
// references to the stream and the options it reads.
type Monitor struct {
	cfg Config
	log logger.Logger

	activation  ref.Ref[ActivationTarget]
	temperature ref.Ref[Querier]
	toggle      ref.Ref[Querier]

	loop *dispatcher.ActiveObject

	// transition serializes Start, Stop and Update.
	transition sync.Mutex

	mu       sync.Mutex
	baseline float64

	subsMu      sync.RWMutex
	subscribers []Callback
}

func NewMonitor(
	cfg Config,
	activation ref.Ref[ActivationTarget],
	temperature, toggle ref.Ref[Querier],
	log logger.Logger,
) (*Monitor, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}
	if activation == nil {
		activation = ref.None[ActivationTarget]()
	}
	if temperature == nil {
		temperature = ref.None[Querier]()
	}
	if toggle == nil {
		toggle = ref.None[Querier]()
	}
	if log == nil {
		log = logger.Nop()
	}

	m := &Monitor{
		cfg:         cfg,
		log:         log.With("thermal_monitor"),
		activation:  activation,
		temperature: temperature,
		toggle:      toggle,
	}
	m.loop = dispatcher.NewActiveObject(m.poll)

	return m, nil
}

// Start begins polling. No-op if already active.
func (m *Monitor) Start() {
	m.transition.Lock()
	defer m.transition.Unlock()
	m.start()
}

// Stop ends polling and waits for the polling goroutine to exit. The
// baseline is reset once the loop has stopped. No-op if inactive.
func (m *Monitor) Stop() {
	m.transition.Lock()
	defer m.transition.Unlock()
	m.stop()
}

// Close stops the monitor unconditionally.
func (m *Monitor) Close() {
	m.Stop()
}

// IsActive reports whether the polling loop is running.
func (m *Monitor) IsActive() bool {
	return m.loop.IsActive()
}

// Update switches thermal compensation on or off. Turning it off notifies
// subscribers with CompensationOff. Turning it on only starts polling if the
// activation target still exists and its stream is open.
//
// Subscribers must not call back into Start, Stop or Update.
func (m *Monitor) Update(enable bool) {
	m.transition.Lock()
	defer m.transition.Unlock()

	if enable == m.loop.IsActive() {
		return
	}

	target, ok := m.activation.Resolve()
	if !ok || target == nil {
		return
	}

	if !enable {
		m.stop()
		m.notify(CompensationOff)
		return
	}

	if !target.IsOpen() {
		m.log.Debug().Msg("Stream is not open, thermal compensation stays idle")
		return
	}
	m.start()
}

// Subscribe registers cb for change notifications. Callbacks run in
// registration order on the polling goroutine, or on the caller of Update
// for the disable signal.
func (m *Monitor) Subscribe(cb Callback) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	m.subscribers = append(m.subscribers, cb)
}

// Baseline returns the temperature of the last notified change.
func (m *Monitor) Baseline() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseline
}

func (m *Monitor) setBaseline(v float64) {
	m.mu.Lock()
	m.baseline = v
	m.mu.Unlock()
}

func (m *Monitor) start() {
	if m.loop.IsActive() {
		return
	}
	m.loop.Start()
	m.log.Debug().
		Dur("poll_interval", m.cfg.PollInterval).
		Float64("threshold", m.cfg.Threshold).
		Msg("Thermal compensation started")
}

func (m *Monitor) stop() {
	if m.loop.Stop() {
		m.setBaseline(0)
		m.log.Debug().Msg("Thermal compensation stopped")
	}
}

func (m *Monitor) notify(temperature float64) {
	m.subsMu.RLock()
	subscribers := make([]Callback, len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.subsMu.RUnlock()

	for _, cb := range subscribers {
		cb(temperature)
	}
}

func (m *Monitor) poll(timer dispatcher.CancellableTimer) {
	if !timer.TrySleep(m.cfg.PollInterval) {
		m.log.Debug().Msg("Thermal compensation is being shut down")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Str("error_code", string(ErrUnresolvedPollPanic)).
				Interface("panic", r).
				Msg("Unresolved error during thermal compensation handling")
		}
	}()

	if err := m.sample(); err != nil {
		m.log.Error().Err(err).Msg("Error during thermal compensation handling")
	}
}

func (m *Monitor) sample() error {
	errFactory := errors.New()

	// Firmware may have the thermal loop switched off.
	if toggle, ok := m.toggle.Resolve(); ok && toggle != nil {
		enabled, err := toggle.Query()
		if err != nil {
			return errFactory.Wrap(ErrToggleQuery, err)
		}
		if math.Abs(enabled) < toggleEpsilon {
			m.log.Debug().Msg("Thermal loop disabled in firmware, skipping sample")
			return nil
		}
	}

	temperature, ok := m.temperature.Resolve()
	if !ok || temperature == nil {
		m.log.ErrorWithCode(errFactory.New(ErrTemperatureMissing)).
			Msg("Thermal compensation: temperature option is not present")
		return nil
	}

	current, err := temperature.Query()
	if err != nil {
		return errFactory.Wrap(ErrTemperatureQuery, err)
	}

	baseline := m.Baseline()
	if math.Abs(baseline-current) < m.cfg.Threshold {
		return nil
	}

	m.log.Debug().
		Float64("from", baseline).
		Float64("to", current).
		Msg("Thermal calibration adjustment is triggered")

	m.notify(current)
	m.setBaseline(current)

	return nil
}
