package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/thermloop/internal/device"
	"codeberg.org/mutker/thermloop/internal/errors"
	"codeberg.org/mutker/thermloop/internal/publish"
	"codeberg.org/mutker/thermloop/internal/telemetry"
	"codeberg.org/mutker/thermloop/internal/thermal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultPollInterval      = 2000
	DefaultThreshold         = 2.0
	DefaultLogLevel          = string(LogLevelInfo)
	DefaultSource            = device.SourceHwmon
	DefaultHwmonPath         = "/sys/class/thermal/thermal_zone0/temp"
	DefaultStaticTemperature = 40.0
	DefaultTelemetryDB       = "/var/lib/thermloop/telemetry.db"
	DefaultEnvPrefix         = "THERMLOOP"

	configName = "thermloop"
	configType = "toml"
)

var defaultSearchPaths = []string{"/etc", "/etc/thermloop"}

type Config struct {
	PollInterval      int     `mapstructure:"poll_interval_ms"`
	Threshold         float64 `mapstructure:"threshold_degrees"`
	Enabled           bool    `mapstructure:"enabled"`
	LogLevel          string  `mapstructure:"log_level"`
	Source            string  `mapstructure:"source"`
	HwmonPath         string  `mapstructure:"hwmon_path"`
	NVMLIndex         int     `mapstructure:"nvml_index"`
	StaticTemperature float64 `mapstructure:"static_temperature"`
	TogglePath        string  `mapstructure:"toggle_path"`
	Telemetry         bool    `mapstructure:"telemetry"`
	TelemetryDB       string  `mapstructure:"telemetry_db"`
	MetricsAddr       string  `mapstructure:"metrics_addr"`
	NATSURL           string  `mapstructure:"nats_url"`
	NATSSubject       string  `mapstructure:"nats_subject"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"poll-interval-ms":   "poll_interval_ms",
	"threshold":          "threshold_degrees",
	"enabled":            "enabled",
	"log-level":          "log_level",
	"source":             "source",
	"hwmon-path":         "hwmon_path",
	"nvml-index":         "nvml_index",
	"static-temperature": "static_temperature",
	"toggle-path":        "toggle_path",
	"telemetry":          "telemetry",
	"telemetry-db":       "telemetry_db",
	"metrics-addr":       "metrics_addr",
	"nats-url":           "nats_url",
	"nats-subject":       "nats_subject",
}

// Load reads configuration from defaults, the TOML file, environment and
// command line flags, in increasing order of precedence.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{envPrefix: DefaultEnvPrefix, searchPaths: defaultSearchPaths}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
		}
	}

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, fs, o); err != nil {
		return nil, err
	}

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	fs.String("config", "", "Path to the configuration file")
	fs.Int("poll-interval-ms", DefaultPollInterval, "Interval between temperature checks in milliseconds")
	fs.Float64("threshold", DefaultThreshold, "Temperature change in degrees that triggers recalibration")
	fs.Bool("enabled", true, "Enable thermal compensation at startup")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("source", DefaultSource, "Temperature source (static, hwmon, nvml)")
	fs.String("hwmon-path", DefaultHwmonPath, "Sysfs temperature attribute in millidegrees")
	fs.Int("nvml-index", 0, "NVML device index")
	fs.Float64("static-temperature", DefaultStaticTemperature, "Temperature reported by the static source")
	fs.String("toggle-path", "", "Sysfs attribute holding the firmware thermal loop toggle")
	fs.Bool("telemetry", false, "Record thermal events to SQLite")
	fs.String("telemetry-db", DefaultTelemetryDB, "Telemetry database path")
	fs.String("metrics-addr", "", "Listen address for Prometheus metrics, empty to disable")
	fs.String("nats-url", "", "NATS server URL, empty to disable publishing")
	fs.String("nats-subject", publish.DefaultSubject, "NATS subject for thermal notifications")
	return fs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("poll_interval_ms", DefaultPollInterval)
	v.SetDefault("threshold_degrees", DefaultThreshold)
	v.SetDefault("enabled", true)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("source", DefaultSource)
	v.SetDefault("hwmon_path", DefaultHwmonPath)
	v.SetDefault("nvml_index", 0)
	v.SetDefault("static_temperature", DefaultStaticTemperature)
	v.SetDefault("toggle_path", "")
	v.SetDefault("telemetry", false)
	v.SetDefault("telemetry_db", DefaultTelemetryDB)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("nats_url", "")
	v.SetDefault("nats_subject", publish.DefaultSubject)
}

// readConfigFile resolves the file from the option, the --config flag or
// <PREFIX>_CONFIG, and otherwise searches for thermloop.toml.
func readConfigFile(v *viper.Viper, fs *pflag.FlagSet, o options) error {
	errFactory := errors.New()

	path := o.configPath
	if path == "" {
		path, _ = fs.GetString("config")
	}
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(configType)
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	for _, dir := range o.searchPaths {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.PollInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.PollInterval)
	}
	if c.Threshold < 0 {
		return errFactory.WithData(errors.ErrInvalidThreshold, c.Threshold)
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	switch c.Source {
	case device.SourceStatic, device.SourceHwmon, device.SourceNVML:
	default:
		return errFactory.WithData(errors.ErrInvalidSource, c.Source)
	}
	if c.Telemetry && c.TelemetryDB == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, "telemetry_db is empty")
	}

	return nil
}

func (c *Config) ThermalConfig() thermal.Config {
	return thermal.Config{
		PollInterval: time.Duration(c.PollInterval) * time.Millisecond,
		Threshold:    c.Threshold,
	}
}

func (c *Config) SourceConfig() device.SourceConfig {
	return device.SourceConfig{
		Source:            c.Source,
		HwmonPath:         c.HwmonPath,
		NVMLIndex:         c.NVMLIndex,
		StaticTemperature: c.StaticTemperature,
		TogglePath:        c.TogglePath,
	}
}

func (c *Config) TelemetryConfig() telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.Enabled = c.Telemetry
	cfg.DBPath = c.TelemetryDB
	return cfg
}
