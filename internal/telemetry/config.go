package telemetry

import (
	"path/filepath"

	"codeberg.org/mutker/thermloop/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/thermloop/telemetry.db"
	backupDirName  = "backups"

	defaultBatchSize    = 16
	defaultBatchTimeout = 10
)

type Config struct {
	DBPath       string
	BatchSize    int
	BatchTimeout int // seconds
	Enabled      bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		Enabled:      false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if telemetry is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			BatchSize    int
			BatchTimeout int
		}{
			BatchSize:    c.BatchSize,
			BatchTimeout: c.BatchTimeout,
		})
	}
	return nil
}

func (c Config) backupDir() string {
	return filepath.Join(filepath.Dir(c.DBPath), backupDirName)
}
