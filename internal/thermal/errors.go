package thermal

import "codeberg.org/mutker/thermloop/internal/errors"

const (
	ErrInvalidConfig       = errors.ErrInvalidConfig
	ErrTemperatureMissing  = errors.ErrorCode("thermal_temperature_option_missing")
	ErrTemperatureQuery    = errors.ErrorCode("thermal_temperature_query_failed")
	ErrToggleQuery         = errors.ErrorCode("thermal_toggle_query_failed")
	ErrUnresolvedPollPanic = errors.ErrorCode("thermal_poll_panic")
)

func init() {
	errors.RegisterMessages(map[errors.ErrorCode]string{
		ErrTemperatureMissing:  "Temperature option is not present",
		ErrTemperatureQuery:    "Failed to query temperature",
		ErrToggleQuery:         "Failed to query thermal loop toggle",
		ErrUnresolvedPollPanic: "Unresolved error while polling temperature",
	})
}
