package telemetry

import "codeberg.org/mutker/thermloop/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("telemetry_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("telemetry_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("telemetry_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("telemetry_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("telemetry_transaction_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("telemetry_storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed

	// Collection Errors
	ErrRecordFailed = errors.ErrorCode("telemetry_record_failed")
	ErrInvalidEvent = errors.ErrorCode("telemetry_invalid_event")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)

func init() {
	errors.RegisterMessages(map[errors.ErrorCode]string{
		ErrInvalidDBPath:          "Invalid telemetry database path",
		ErrSchemaInitFailed:       "Failed to initialize telemetry schema",
		ErrSchemaValidationFailed: "Failed to validate telemetry schema",
		ErrSchemaMigrationFailed:  "Failed to migrate telemetry schema",
		ErrTransactionFailed:      "Telemetry transaction failed",
		ErrStorageAccess:          "Failed to access telemetry storage",
		ErrRecordFailed:           "Failed to record telemetry event",
		ErrInvalidEvent:           "Invalid telemetry event",
	})
}
