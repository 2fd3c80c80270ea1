// Package config resolves the helloserve configuration from flags, an
// optional YAML file and defaults, in that order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultListenAddr  = "127.0.0.1:7878"
	DefaultWorkers     = 4
	DefaultDocRoot     = "html"
	DefaultSleepDelay  = 5 * time.Second
	DefaultReadTimeout = 30 * time.Second
)

// Config is the full configuration of the helloserve binary.
type Config struct {
	// ListenAddr is the TCP address the demo server binds.
	ListenAddr string `yaml:"listen-addr"`

	// Workers is the fixed size of the connection-handling pool.
	// Must be at least 1; Validate rejects anything lower before the
	// pool constructor gets a chance to panic on it.
	Workers int `yaml:"workers"`

	// DocRoot is the directory the HTML files are served from.
	DocRoot string `yaml:"doc-root"`

	// SleepDelay is the artificial delay of the /sleep route.
	SleepDelay time.Duration `yaml:"sleep-delay"`

	// ReadTimeout bounds reading one request; 0 disables the deadline.
	ReadTimeout time.Duration `yaml:"read-timeout"`

	// MaxConns caps concurrently accepted connections; 0 means no cap.
	MaxConns int `yaml:"max-conns"`

	// PinWorkers pins pool workers to CPUs (Linux only).
	PinWorkers bool `yaml:"pin-workers"`

	// MetricsAddr is the address of the Prometheus /metrics endpoint;
	// empty disables it.
	MetricsAddr string `yaml:"metrics-addr"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls the binary's zap logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // console or json
	FilePath   string `yaml:"file-path"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the configuration the binary runs with when nothing
// is set: the classic demo shape, four workers on 127.0.0.1:7878.
func Default() *Config {
	return &Config{
		ListenAddr:  DefaultListenAddr,
		Workers:     DefaultWorkers,
		DocRoot:     DefaultDocRoot,
		SleepDelay:  DefaultSleepDelay,
		ReadTimeout: DefaultReadTimeout,
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// BindFlags declares every flag on fs and binds it into v. Flag names
// mirror the yaml keys; the nested logging keys get a log- prefix on
// the command line.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	d := Default()

	fs.String("listen-addr", d.ListenAddr, "TCP address to serve on.")
	fs.Int("workers", d.Workers, "Fixed number of pool workers handling connections.")
	fs.String("doc-root", d.DocRoot, "Directory the HTML files are served from.")
	fs.Duration("sleep-delay", d.SleepDelay, "Artificial delay of the /sleep route.")
	fs.Duration("read-timeout", d.ReadTimeout, "Per-request read deadline; 0 disables it.")
	fs.Int("max-conns", d.MaxConns, "Cap on concurrently accepted connections; 0 means no cap.")
	fs.Bool("pin-workers", d.PinWorkers, "Pin pool workers to CPUs (Linux only).")
	fs.String("metrics-addr", d.MetricsAddr, "Address of the Prometheus /metrics endpoint; empty disables it.")
	fs.String("log-level", d.Logging.Level, "Minimum log level: debug, info, warn or error.")
	fs.String("log-format", d.Logging.Format, "Log encoding: console or json.")
	fs.String("log-file", d.Logging.FilePath, "Log file path; empty logs to stderr.")
	fs.Int("log-rotate-max-size-mb", d.Logging.MaxSizeMB, "Log size that triggers rotation.")
	fs.Int("log-rotate-backups", d.Logging.MaxBackups, "Number of rotated log files kept.")
	fs.Int("log-rotate-max-age-days", d.Logging.MaxAgeDays, "Days rotated log files are kept.")
	fs.Bool("log-rotate-compress", d.Logging.Compress, "Compress rotated log files.")

	bindings := map[string]string{
		"listen-addr":          "listen-addr",
		"workers":              "workers",
		"doc-root":             "doc-root",
		"sleep-delay":          "sleep-delay",
		"read-timeout":         "read-timeout",
		"max-conns":            "max-conns",
		"pin-workers":          "pin-workers",
		"metrics-addr":         "metrics-addr",
		"logging.level":        "log-level",
		"logging.format":       "log-format",
		"logging.file-path":    "log-file",
		"logging.max-size-mb":  "log-rotate-max-size-mb",
		"logging.max-backups":  "log-rotate-backups",
		"logging.max-age-days": "log-rotate-max-age-days",
		"logging.compress":     "log-rotate-compress",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return fmt.Errorf("bind %q: %w", key, err)
		}
	}
	return nil
}

// DecodeHook converts the string forms viper produces into the typed
// fields of Config.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(), // default hook
		mapstructure.StringToSliceHookFunc(","),     // default hook
	)
}

// Load resolves and validates the configuration. BindFlags must have
// been called on the same viper beforehand; cfgFile may be empty.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var c Config
	err := v.Unmarshal(&c, viper.DecodeHook(DecodeHook()), func(decoderConfig *mapstructure.DecoderConfig) {
		decoderConfig.TagName = "yaml"
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects configurations the rest of the binary must never
// see.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen-addr must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers = %d; must be at least 1", c.Workers)
	}
	if c.DocRoot == "" {
		return fmt.Errorf("doc-root must not be empty")
	}
	if c.SleepDelay < 0 {
		return fmt.Errorf("sleep-delay must not be negative")
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("read-timeout must not be negative")
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("max-conns must not be negative")
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("logging format %q; must be console or json", c.Logging.Format)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging level %q: %w", c.Logging.Level, err)
	}
	return nil
}
