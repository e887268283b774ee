package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"

	// Configuration errors
	ErrInvalidConfig    ErrorCode = "invalid_configuration"
	ErrBindFlags        ErrorCode = "bind_flags_failed"
	ErrReadConfig       ErrorCode = "read_config_failed"
	ErrInvalidInterval  ErrorCode = "invalid_interval"
	ErrInvalidThreshold ErrorCode = "invalid_threshold"
	ErrInvalidSource    ErrorCode = "invalid_source"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Application errors
	ErrInitApp     ErrorCode = "init_app_failed"
	ErrOpenStream  ErrorCode = "open_stream_failed"
	ErrCloseDevice ErrorCode = "close_device_failed"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrInvalidConfig:    "Invalid configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrReadConfig:       "Failed to read config file",
	ErrInvalidInterval:  "Invalid poll interval",
	ErrInvalidThreshold: "Invalid temperature threshold",
	ErrInvalidSource:    "Invalid temperature source",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrInitFailed:       "Initialization failed",
	ErrShutdownFailed:   "Shutdown failed",
	ErrAlreadyRunning:   "Another instance is already running",
	ErrInitApp:          "Failed to initialize application",
	ErrOpenStream:       "Failed to open stream",
	ErrCloseDevice:      "Failed to close device",
	ErrOperationFailed:  "Operation failed",
	ErrTimeout:          "Operation timed out",
}

// RegisterMessages adds messages for codes defined outside this package.
// Call it from package init only.
func RegisterMessages(messages map[ErrorCode]string) {
	for code, msg := range messages {
		errorMessages[code] = msg
	}
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
