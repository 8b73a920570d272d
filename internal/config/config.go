package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/nevala/sysprobe/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// DefaultServiceName is the fixed reverse-domain channel name. It must
	// match the exporter's registration exactly; a mismatch yields a
	// connection that never succeeds.
	DefaultServiceName = "com.sysprobe.metrics"

	DefaultServerURL      = "nats://127.0.0.1:4222"
	DefaultCacheInterval  = 500 * time.Millisecond
	DefaultRetryInterval  = 30 * time.Second
	DefaultRequestTimeout = 2 * time.Second
	DefaultPollInterval   = 2

	DefaultLogLevel = "info"

	configEnvVar    = "SYSPROBE_CONFIG"
	configName      = "sysprobe"
	configType      = "toml"
	systemConfigDir = "/etc"
)

// Config is the explicit configuration surface of the acquisition layer.
// The library consumes this struct as constructed; only Load reads files
// or the environment.
type Config struct {
	ServiceName     string        `mapstructure:"service_name"`
	ServerURL       string        `mapstructure:"server_url"`
	CacheInterval   time.Duration `mapstructure:"cache_interval"`
	RetryInterval   time.Duration `mapstructure:"retry_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	FallbackEnabled bool          `mapstructure:"fallback"`
	ForceFallback   bool          `mapstructure:"force_fallback"`
	Interval        int           `mapstructure:"interval"`
	LogLevel        string        `mapstructure:"log_level"`
	Debug           bool          `mapstructure:"debug"`
	Verbose         bool          `mapstructure:"verbose"`
}

// Default returns the configuration with all defaults applied
func Default() *Config {
	return &Config{
		ServiceName:     DefaultServiceName,
		ServerURL:       DefaultServerURL,
		CacheInterval:   DefaultCacheInterval,
		RetryInterval:   DefaultRetryInterval,
		RequestTimeout:  DefaultRequestTimeout,
		FallbackEnabled: true,
		ForceFallback:   false,
		Interval:        DefaultPollInterval,
		LogLevel:        DefaultLogLevel,
	}
}

// Load loads configuration from flags and an optional TOML file. The file
// is taken from SYSPROBE_CONFIG when set, otherwise searched in /etc.
// Flags set on the command line override file values.
func Load() (*Config, error) {
	errFactory := errors.New()

	fs := pflag.NewFlagSet("sysprobe", pflag.ContinueOnError)
	fs.String("service-name", DefaultServiceName, "Service channel name")
	fs.String("server-url", DefaultServerURL, "Metrics service URL")
	fs.Duration("cache-interval", DefaultCacheInterval, "Per-kind snapshot cache interval")
	fs.Duration("retry-interval", DefaultRetryInterval, "Remote retry interval after fallback")
	fs.Duration("request-timeout", DefaultRequestTimeout, "Remote request timeout")
	fs.Bool("fallback", true, "Fall back to the local sampling engine when the service is unreachable")
	fs.Bool("force-fallback", false, "Always use the local sampling engine")
	fs.Int("interval", DefaultPollInterval, "Interval between updates in seconds")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(configEnvVar); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(systemConfigDir)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	// Command line flags override file values
	fs.Visit(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		switch f.Value.Type() {
		case "bool":
			val, _ := fs.GetBool(f.Name)
			v.Set(key, val)
		case "int":
			val, _ := fs.GetInt(f.Name)
			v.Set(key, val)
		case "duration":
			val, _ := fs.GetDuration(f.Name)
			v.Set(key, val)
		default:
			v.Set(key, f.Value.String())
		}
	})

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration invariants
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.ServiceName == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "service_name must not be empty")
	}
	if c.CacheInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.CacheInterval.String())
	}
	if c.RetryInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.RetryInterval.String())
	}
	if c.RequestTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.RequestTimeout.String())
	}
	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if !isValidLogLevel(c.LogLevel) {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", DefaultServiceName)
	v.SetDefault("server_url", DefaultServerURL)
	v.SetDefault("cache_interval", DefaultCacheInterval)
	v.SetDefault("retry_interval", DefaultRetryInterval)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("fallback", true)
	v.SetDefault("force_fallback", false)
	v.SetDefault("interval", DefaultPollInterval)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warning", "error":
		return true
	default:
		return false
	}
}
