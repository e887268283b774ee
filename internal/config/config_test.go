package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/thermloop/internal/config"
	"codeberg.org/mutker/thermloop/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thermloop.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
poll_interval_ms = 500
threshold_degrees = 1.5
enabled = false
log_level = "debug"
source = "static"
static_temperature = 37.5
toggle_path = "/sys/devices/depth/tl_enable"
telemetry = true
telemetry_db = "/path/to/telemetry.db"
metrics_addr = ":2112"
nats_url = "nats://localhost:4222"
`)
	t.Setenv("THERMLOOP_CONFIG", path)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.PollInterval)
	assert.InDelta(t, 1.5, cfg.Threshold, 0)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "static", cfg.Source)
	assert.InDelta(t, 37.5, cfg.StaticTemperature, 0)
	assert.Equal(t, "/sys/devices/depth/tl_enable", cfg.TogglePath)
	assert.True(t, cfg.Telemetry)
	assert.Equal(t, "/path/to/telemetry.db", cfg.TelemetryDB)
	assert.Equal(t, ":2112", cfg.MetricsAddr)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, "thermloop.compensation", cfg.NATSSubject)

	th := cfg.ThermalConfig()
	assert.Equal(t, 500*time.Millisecond, th.PollInterval)
	assert.InDelta(t, 1.5, th.Threshold, 0)

	tc := cfg.TelemetryConfig()
	assert.True(t, tc.Enabled)
	assert.Equal(t, "/path/to/telemetry.db", tc.DBPath)

	sc := cfg.SourceConfig()
	assert.Equal(t, "static", sc.Source)
	assert.Equal(t, "/sys/devices/depth/tl_enable", sc.TogglePath)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("THERMLOOP_CONFIG", "")

	cfg, err := config.Load(nil, config.WithSearchPaths(t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, 2000, cfg.PollInterval)
	assert.InDelta(t, 2.0, cfg.Threshold, 0)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, "hwmon", cfg.Source)
	assert.Equal(t, config.DefaultHwmonPath, cfg.HwmonPath)
	assert.Empty(t, cfg.TogglePath)
	assert.False(t, cfg.Telemetry)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Empty(t, cfg.NATSURL)

	assert.Equal(t, 2*time.Second, cfg.ThermalConfig().PollInterval)
}

func TestSearchPathFindsFile(t *testing.T) {
	t.Setenv("THERMLOOP_CONFIG", "")
	path := writeConfig(t, `threshold_degrees = 3.0`)

	cfg, err := config.Load(nil, config.WithSearchPaths(filepath.Dir(path)))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, cfg.Threshold, 0)
}

func TestPrecedence(t *testing.T) {
	path := writeConfig(t, `
poll_interval_ms = 500
threshold_degrees = 1.5
log_level = "error"
`)
	t.Setenv("THERMLOOP_THRESHOLD_DEGREES", "2.5")
	t.Setenv("THERMLOOP_LOG_LEVEL", "warning")

	cfg, err := config.Load([]string{"--log-level", "debug"}, config.WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.PollInterval, "file beats default")
	assert.InDelta(t, 2.5, cfg.Threshold, 0, "env beats file")
	assert.Equal(t, "debug", cfg.LogLevel, "flag beats env")
}

func TestConfigFlag(t *testing.T) {
	t.Setenv("THERMLOOP_CONFIG", "")
	path := writeConfig(t, `source = "nvml"`)

	cfg, err := config.Load([]string{"--config", path, "--nvml-index", "1", "--enabled=false"})
	require.NoError(t, err)
	assert.Equal(t, "nvml", cfg.Source)
	assert.Equal(t, 1, cfg.NVMLIndex)
	assert.False(t, cfg.Enabled)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	path := writeConfig(t, `
This is not a valid TOML file
`)

	_, err := config.Load(nil, config.WithConfigFile(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := config.Load(nil, config.WithConfigFile(filepath.Join(t.TempDir(), "absent.toml")))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestValidation(t *testing.T) {
	t.Setenv("THERMLOOP_CONFIG", "")
	empty := config.WithSearchPaths(t.TempDir())

	cases := map[string]struct {
		args []string
		code errors.ErrorCode
	}{
		"interval":  {[]string{"--poll-interval-ms", "0"}, errors.ErrInvalidInterval},
		"threshold": {[]string{"--threshold", "-1"}, errors.ErrInvalidThreshold},
		"log level": {[]string{"--log-level", "invalid"}, errors.ErrInvalidLogLevel},
		"source":    {[]string{"--source", "thermocouple"}, errors.ErrInvalidSource},
		"telemetry": {[]string{"--telemetry", "--telemetry-db", ""}, errors.ErrInvalidConfig},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(tc.args, empty)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tc.code), err.Error())
			assert.Contains(t, err.Error(), string(tc.code))
		})
	}
}

func TestUnknownFlag(t *testing.T) {
	_, err := config.Load([]string{"--fanspeed", "80"}, config.WithSearchPaths(t.TempDir()))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrBindFlags))
}

func TestLogLevelIsValid(t *testing.T) {
	assert.True(t, config.LogLevelWarning.IsValid())
	assert.False(t, config.LogLevel("verbose").IsValid())
	assert.Equal(t, "debug", config.LogLevelDebug.String())
}
