// Package telemetry builds the ambient runtime of a world from the environment: configuration,
// the zerolog logger and the statsd client that receives system timings.
package telemetry

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config holds the runtime configuration of a world host.
// Configuration can be set via environment variables with the specified defaults.
type Config struct {
	// Minimum log level: trace, debug, info, warn or error.
	LogLevel string `env:"ECS_LOG_LEVEL" envDefault:"info"`

	// Log output format: json or pretty.
	LogFormat string `env:"ECS_LOG_FORMAT" envDefault:"pretty"`

	// host:port of the statsd agent. Metrics are discarded when empty.
	StatsdAddress string `env:"ECS_STATSD_ADDRESS"`

	// Prefix of every metric name.
	StatsdNamespace string `env:"ECS_STATSD_NAMESPACE" envDefault:"famecs."`

	// Tags added to every metric.
	StatsdTags []string `env:"ECS_STATSD_TAGS"`

	// Names of the systems to add, in order.
	Systems []string `env:"ECS_SYSTEMS"`

	// Run non-conflicting systems concurrently.
	ParallelUpdate bool `env:"ECS_PARALLEL_UPDATE" envDefault:"false"`

	// Number of frames per second.
	TickRate float64 `env:"ECS_TICK_RATE" envDefault:"60"`
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (Config, error) {
	return parse(env.Options{})
}

// LoadConfigFrom loads the configuration from the given variables instead of the process
// environment.
func LoadConfigFrom(environment map[string]string) (Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (Config, error) {
	cfg := Config{}

	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, eris.Wrap(err, "failed to parse config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate config")
	}

	return cfg, nil
}

// validate performs validation on the loaded configuration.
func (cfg *Config) validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return eris.Errorf("invalid log level: %s (must be 'trace', 'debug', 'info', 'warn', or 'error')", cfg.LogLevel)
	}
	if ParseLogFormat(cfg.LogFormat) == LogFormatUndefined {
		return eris.Errorf("invalid log format: %s (must be 'json' or 'pretty')", cfg.LogFormat)
	}
	if cfg.TickRate <= 0 {
		return eris.Errorf("tick rate must be positive, got %v", cfg.TickRate)
	}
	for _, name := range cfg.Systems {
		if strings.TrimSpace(name) == "" {
			return eris.New("system names cannot be empty")
		}
	}
	return nil
}

// TickInterval returns the duration of one frame.
func (cfg *Config) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / cfg.TickRate)
}

// LogFormat represents the log output format.
type LogFormat uint8

const (
	LogFormatUndefined LogFormat = iota // Used as the zero value
	LogFormatJSON                       // Outputs structured JSON logs
	LogFormatPretty                     // Outputs human-readable console logs
)

const (
	jsonFormatString      = "json"
	prettyFormatString    = "pretty"
	undefinedFormatString = "undefined"
)

func (f LogFormat) String() string {
	switch f {
	case LogFormatJSON:
		return jsonFormatString
	case LogFormatPretty:
		return prettyFormatString
	default:
		return undefinedFormatString
	}
}

// ParseLogFormat converts a string to LogFormat enum.
func ParseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case jsonFormatString:
		return LogFormatJSON
	case prettyFormatString:
		return LogFormatPretty
	default:
		return LogFormatUndefined
	}
}
