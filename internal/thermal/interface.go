package thermal

// ActivationTarget is the sensor stream whose open state gates polling.
type ActivationTarget interface {
	IsOpen() bool
}

// Querier is a readable device option. The temperature option reports
// degrees Celsius; the thermal-loop toggle reports ~0 when the firmware has
// the feature disabled.
type Querier interface {
	Query() (float64, error)
}

// Callback receives temperature change notifications. A value equal to
// CompensationOff means compensation was switched off, not a reading.
type Callback func(temperature float64)

// CompensationOff is delivered to subscribers when monitoring is disabled.
const CompensationOff = 0.0

// IsCompensationOff reports whether a notified value is the disable signal.
func IsCompensationOff(temperature float64) bool {
	return temperature == CompensationOff
}
