package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the dashboard server configuration
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	ListenAddress string `mapstructure:"listen_address"`

	// SimulationURL is the base URL of the simulation service
	SimulationURL  string        `mapstructure:"simulation_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// TimeUnit scales every transient highlight and notification lifetime
	TimeUnit time.Duration `mapstructure:"time_unit"`

	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedIPs     []string `mapstructure:"allowed_ips"`

	RequireViewerToken bool          `mapstructure:"require_viewer_token"`
	JWTSecret          string        `mapstructure:"jwt_secret"`
	TokenExpiry        time.Duration `mapstructure:"token_expiry"`

	OpenBrowser  bool   `mapstructure:"open_browser"`
	TemplatesDir string `mapstructure:"templates_dir"`

	HostCacheTTL      time.Duration `mapstructure:"host_cache_ttl"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`

	RateLimit           float64 `mapstructure:"rate_limit"`
	RateBurst           int     `mapstructure:"rate_burst"`
	SimulationRateLimit float64 `mapstructure:"simulation_rate_limit"`
	SimulationRateBurst int     `mapstructure:"simulation_rate_burst"`

	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

var defaultConfig = Config{
	LogLevel: "info",

	ListenAddress: "localhost:8080",

	SimulationURL:  "http://localhost:5000",
	RequestTimeout: 10 * time.Second,

	TimeUnit: time.Second,

	RequireViewerToken: false,
	TokenExpiry:        30 * 24 * time.Hour,

	HostCacheTTL:      2 * time.Second,
	HeartbeatInterval: 30 * time.Second,

	RateLimit:           100,
	RateBurst:           200,
	SimulationRateLimit: 10,
	SimulationRateBurst: 20,

	ShutdownGracePeriod: 5 * time.Second,
}

var keys = []string{
	"log_level",
	"listen_address",
	"simulation_url",
	"request_timeout",
	"time_unit",
	"allowed_origins",
	"allowed_ips",
	"require_viewer_token",
	"jwt_secret",
	"token_expiry",
	"open_browser",
	"templates_dir",
	"host_cache_ttl",
	"heartbeat_interval",
	"rate_limit",
	"rate_burst",
	"simulation_rate_limit",
	"simulation_rate_burst",
	"shutdown_grace_period",
}

// Default returns the built-in configuration
func Default() Config {
	return defaultConfig
}

// Load merges, lowest priority first: defaults, the optional config file,
// .env, MEMVIZ_* environment variables and flags that were explicitly set.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.Wrap(err, "failed to load .env")
		}
	}

	v := viper.New()
	for _, key := range keys {
		_ = v.BindEnv(key, "MEMVIZ_"+strings.ToUpper(key))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}

	if flags != nil {
		var bindErr error
		flags.Visit(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !contains(keys, key) {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = errors.Wrapf(err, "failed to bind flag %s", f.Name)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	cfg := defaultConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	u, err := url.Parse(c.SimulationURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(ErrInvalidConfig, "simulation_url %q must be an http(s) URL", c.SimulationURL)
	}
	if c.TimeUnit <= 0 {
		return errors.Wrap(ErrInvalidConfig, "time_unit must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.Wrap(ErrInvalidConfig, "request_timeout must be positive")
	}
	if c.ListenAddress == "" {
		return errors.Wrap(ErrInvalidConfig, "listen_address must be set")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
