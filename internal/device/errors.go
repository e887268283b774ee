package device

import (
	"codeberg.org/mutker/thermloop/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const (
	// Initialization and Lifecycle Errors
	ErrNotInitialized = errors.ErrorCode("device_not_initialized")
	ErrInitFailed     = errors.ErrorCode("device_init_failed")
	ErrDeviceNotFound = errors.ErrorCode("device_not_found")
	ErrShutdownFailed = errors.ErrorCode("device_shutdown_failed")
	ErrDeviceClosed   = errors.ErrorCode("device_closed")

	// Option Errors
	ErrOptionRead    = errors.ErrorCode("device_option_read_failed")
	ErrOptionParse   = errors.ErrorCode("device_option_parse_failed")
	ErrUnknownSource = errors.ErrInvalidSource

	// Temperature Errors
	ErrTemperatureReadFailed = errors.ErrorCode("device_temperature_read_failed")
)

func init() {
	errors.RegisterMessages(map[errors.ErrorCode]string{
		ErrNotInitialized:        "NVML is not initialized",
		ErrInitFailed:            "Failed to initialize NVML",
		ErrDeviceNotFound:        "GPU not found",
		ErrShutdownFailed:        "Failed to shut down NVML",
		ErrDeviceClosed:          "Device stream is shut down",
		ErrOptionRead:            "Failed to read device option",
		ErrOptionParse:           "Failed to parse device option",
		ErrTemperatureReadFailed: "Failed to read GPU temperature",
	})
}

// nvmlError represents an NVML-specific error
type nvmlError struct {
	ret nvml.Return
}

func (e nvmlError) Error() string {
	return nvml.ErrorString(e.ret)
}

// newNVMLError creates an error from an NVML return code
func newNVMLError(ret nvml.Return) error {
	if ret == nvml.SUCCESS {
		return nil
	}
	return &nvmlError{ret: ret}
}

// IsNVMLSuccess checks if a Return value indicates success
func IsNVMLSuccess(ret nvml.Return) bool {
	return ret == nvml.SUCCESS
}
