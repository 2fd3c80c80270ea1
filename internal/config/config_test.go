package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBoundViper(t *testing.T) (*viper.Viper, *pflag.FlagSet) {
	t.Helper()

	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(v, fs))
	return v, fs
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	v, _ := newBoundViper(t)

	got, err := Load(v, "")

	require.NoError(t, err)
	assert.Equal(t, Default(), got)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	t.Parallel()

	v, _ := newBoundViper(t)
	path := writeConfigFile(t, `
listen-addr: 127.0.0.1:9000
workers: 8
sleep-delay: 250ms
logging:
  level: debug
  format: json
`)

	got, err := Load(v, path)

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", got.ListenAddr)
	assert.Equal(t, 8, got.Workers)
	assert.Equal(t, 250*time.Millisecond, got.SleepDelay)
	assert.Equal(t, "debug", got.Logging.Level)
	assert.Equal(t, "json", got.Logging.Format)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultDocRoot, got.DocRoot)
	assert.Equal(t, DefaultReadTimeout, got.ReadTimeout)
}

func TestLoadFlagsOverrideConfigFile(t *testing.T) {
	t.Parallel()

	v, fs := newBoundViper(t)
	path := writeConfigFile(t, "workers: 2\n")
	require.NoError(t, fs.Set("workers", "9"))

	got, err := Load(v, path)

	require.NoError(t, err)
	assert.Equal(t, 9, got.Workers)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	t.Parallel()

	v, _ := newBoundViper(t)

	_, err := Load(v, filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	v, _ := newBoundViper(t)
	path := writeConfigFile(t, "workers: 0\n")

	_, err := Load(v, path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"negative workers", func(c *Config) { c.Workers = -3 }, "workers"},
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }, "listen-addr"},
		{"empty doc root", func(c *Config) { c.DocRoot = "" }, "doc-root"},
		{"negative sleep", func(c *Config) { c.SleepDelay = -time.Second }, "sleep-delay"},
		{"negative read timeout", func(c *Config) { c.ReadTimeout = -time.Second }, "read-timeout"},
		{"negative max conns", func(c *Config) { c.MaxConns = -1 }, "max-conns"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "format"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)

			err := c.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Default().Validate())
}
