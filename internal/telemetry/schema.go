package telemetry

import (
	"database/sql"

	"codeberg.org/mutker/thermloop/internal/errors"
	"codeberg.org/mutker/thermloop/internal/logger"
)

// SchemaVersion is bumped whenever thermal_events changes shape. Journals
// recorded under another version are backed up and started afresh.
const SchemaVersion = 1

const (
	createSchemaSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS thermal_events (
	       id           INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp    INTEGER NOT NULL CHECK (typeof(timestamp) = 'integer'),
	       kind         TEXT    NOT NULL CHECK (kind IN ('adjustment', 'disabled')),
	       temperature  REAL    NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS thermal_events_timestamp ON thermal_events (timestamp);`

	recordVersionSQL = `INSERT INTO schema_versions (version, applied_at) VALUES (?, datetime('now'))`

	versionsTableSQL = `SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'schema_versions')`

	latestVersionSQL = `SELECT MAX(version) FROM schema_versions`

	insertEventSQL = `
    INSERT INTO thermal_events (timestamp, kind, temperature)
    VALUES (?, ?, ?)`

	selectEventsSQL = `
    SELECT timestamp, kind, temperature
    FROM thermal_events
    ORDER BY id DESC
    LIMIT ?`
)

// createSchema lays out an empty journal stamped with SchemaVersion.
func createSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	if _, err := tx.Exec(createSchemaSQL); err != nil {
		_ = tx.Rollback()
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	if _, err := tx.Exec(recordVersionSQL, SchemaVersion); err != nil {
		_ = tx.Rollback()
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	log.Info().Int("version", SchemaVersion).Msg("Thermal event journal created")
	return nil
}

// schemaVersion returns the newest version recorded in db, or 0 for a file
// that has never held a journal.
func schemaVersion(db *sql.DB) (int, error) {
	var exists bool
	if err := db.QueryRow(versionsTableSQL).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var version sql.NullInt64
	if err := db.QueryRow(latestVersionSQL).Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}
