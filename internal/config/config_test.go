package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, "http://localhost:5000", cfg.SimulationURL)
	assert.Equal(t, time.Second, cfg.TimeUnit)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("MEMVIZ_TIME_UNIT", "250ms")
	t.Setenv("MEMVIZ_ALLOWED_ORIGINS", "http://localhost:3000,http://lab.example")
	t.Setenv("MEMVIZ_REQUIRE_VIEWER_TOKEN", "true")
	t.Setenv("MEMVIZ_RATE_LIMIT", "2.5")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.TimeUnit)
	assert.Equal(t, []string{"http://localhost:3000", "http://lab.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.RequireViewerToken)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, "localhost:8080", cfg.ListenAddress)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memviz.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"listen_address: \":9090\"\n"+
			"simulation_url: http://sim.internal:5000\n"+
			"time_unit: 2s\n"+
			"simulation_rate_burst: 3\n",
	), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddress)
	assert.Equal(t, "http://sim.internal:5000", cfg.SimulationURL)
	assert.Equal(t, 2*time.Second, cfg.TimeUnit)
	assert.Equal(t, 3, cfg.SimulationRateBurst)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("MEMVIZ_SIMULATION_URL", "http://from-env:5000")
	t.Setenv("MEMVIZ_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.String("simulation-url", "http://flag-default:5000", "")
	flags.String("log-level", "info", "")
	flags.Duration("time-unit", 5*time.Second, "")
	flags.Bool("unrelated", false, "")
	require.NoError(t, flags.Parse([]string{"--simulation-url=http://from-flag:5000", "--unrelated"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "http://from-flag:5000", cfg.SimulationURL)
	// unset flags leave lower layers alone
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, time.Second, cfg.TimeUnit)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non-http url", "MEMVIZ_SIMULATION_URL", "ftp://sim:21"},
		{"url without host", "MEMVIZ_SIMULATION_URL", "http://"},
		{"zero time unit", "MEMVIZ_TIME_UNIT", "0s"},
		{"negative timeout", "MEMVIZ_REQUEST_TIMEOUT", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := Load("", nil)
			require.Error(t, err)
			assert.Equal(t, ErrInvalidConfig, errors.Cause(err))
		})
	}
}
