package telemetry

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/plus3/famecs/ecs"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// NewLogger creates a logger with the configured level and format writing to out, or to stdout
// when out is nil.
func NewLogger(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	writer := out
	if ParseLogFormat(cfg.LogFormat) == LogFormatPretty {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewMetrics creates the statsd client. Without an address a no-op client is returned.
func NewMetrics(cfg Config) (statsd.ClientInterface, error) {
	if cfg.StatsdAddress == "" {
		return &statsd.NoOpClient{}, nil
	}

	opts := []statsd.Option{
		// The statsd namespace is the prefix of all metrics
		statsd.WithNamespace(cfg.StatsdNamespace),
	}
	if len(cfg.StatsdTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.StatsdTags))
	}

	client, err := statsd.New(cfg.StatsdAddress, opts...)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to create statsd client for %s", cfg.StatsdAddress)
	}
	return client, nil
}

// Runtime bundles what a world host needs from the environment.
type Runtime struct {
	Config  Config
	Logger  zerolog.Logger
	Metrics statsd.ClientInterface
	API     *ecs.API
}

// New builds the logger, metrics client and API bundle for cfg.
func New(cfg Config, out io.Writer) (*Runtime, error) {
	logger := NewLogger(cfg, out)
	metrics, err := NewMetrics(cfg)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		API:     ecs.NewAPI(logger, metrics),
	}, nil
}

// WorldOptions returns the options that wire the runtime into a new world.
func (r *Runtime) WorldOptions() []ecs.WorldOption {
	return []ecs.WorldOption{
		ecs.WithLogger(r.Logger),
		ecs.WithMetrics(r.Metrics),
		ecs.WithAPI(r.API),
		ecs.WithParallelUpdate(r.Config.ParallelUpdate),
	}
}

// NewWorld creates a world wired to the runtime and adds the configured systems from factory.
func (r *Runtime) NewWorld(registry *ecs.ComponentRegistry, factory *ecs.SystemFactory) (*ecs.World, error) {
	w := ecs.NewWorld(registry, r.WorldOptions()...)
	if err := w.AddSystemsFromConfig(factory, r.Config.Systems); err != nil {
		return nil, eris.Wrap(err, "failed to assemble world")
	}
	r.Logger.Info().
		Strs("systems", r.Config.Systems).
		Bool("parallel", r.Config.ParallelUpdate).
		Msg("world assembled")
	return w, nil
}

// Close flushes and closes the metrics client.
func (r *Runtime) Close() error {
	if err := r.Metrics.Close(); err != nil {
		return eris.Wrap(err, "failed to close statsd client")
	}
	return nil
}
