package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/profile"
	"github.com/plus3/famecs/telemetry"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	duration       time.Duration
	frames         int
	entities       int
	seed           uint64
	delta          float64
	format         string
	profileMode    string
	profilePath    string
	gcPauseMetrics bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	flags := rootFlags{}
	cmd := &cobra.Command{
		Use:   "ecs-stress",
		Short: "Run a world under load and report system timings",
		Long: `Builds a world from the ECS_* environment (systems, parallel update, logging, statsd),
populates it with random entities and steps it until the duration or frame limit is reached.`,
		Example:      "ECS_PARALLEL_UPDATE=true ecs-stress --duration 5s --entities 50000 --format json",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd.Context(), cmd.ErrOrStderr(), out, flags)
		},
	}

	cmd.Flags().DurationVar(&flags.duration, "duration", 10*time.Second, "The total duration the test should run for.")
	cmd.Flags().IntVar(&flags.frames, "frames", 0, "Stop after this many frames (0 for no limit).")
	cmd.Flags().IntVar(&flags.entities, "entities", 10000, "The initial number of entities to create.")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 1, "Seed of the entity generator.")
	cmd.Flags().Float64Var(&flags.delta, "delta", 0, "Fixed frame delta in seconds (0 uses wall-clock time).")
	cmd.Flags().StringVar(&flags.format, "format", "text", "Report format: text or json.")
	cmd.Flags().StringVar(&flags.profileMode, "profile", "", "Profile the run: cpu, mem or trace.")
	cmd.Flags().StringVar(&flags.profilePath, "profile-path", ".", "Directory profiles are written to.")
	cmd.Flags().BoolVar(&flags.gcPauseMetrics, "gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	return cmd
}

func runRoot(ctx context.Context, logOut, out io.Writer, flags rootFlags) error {
	if flags.format != "text" && flags.format != "json" {
		return eris.Errorf("unknown report format %q", flags.format)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg, err := telemetry.LoadConfig()
	if err != nil {
		return err
	}
	rt, err := telemetry.New(cfg, logOut)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.Logger.Warn().Err(err).Msg("failed to close metrics client")
		}
	}()

	opts := stressOptions{
		Duration:       flags.duration,
		MaxFrames:      flags.frames,
		Entities:       flags.entities,
		Seed:           flags.seed,
		Delta:          flags.delta,
		GCPauseMetrics: flags.gcPauseMetrics,
	}

	rt.Logger.Info().Int("entities", opts.Entities).Msg("populating world")
	w, err := buildWorld(rt, opts)
	if err != nil {
		return err
	}
	defer w.Close()

	stopProfile, err := startProfile(flags.profileMode, flags.profilePath)
	if err != nil {
		return err
	}
	rt.Logger.Info().
		Dur("duration", opts.Duration).
		Int("frames", opts.MaxFrames).
		Strs("systems", rt.Config.Systems).
		Msg("running simulation")
	report, err := runStress(ctx, w, opts)
	stopProfile()
	if err != nil {
		return err
	}
	rt.Logger.Info().Int64("updates", report.TotalUpdates).Msg("simulation finished")

	if flags.format == "json" {
		return report.GenerateJSON(out)
	}
	return report.Generate(out)
}

// startProfile starts the requested profiler and returns its stop function.
func startProfile(mode, path string) (func(), error) {
	var kind func(*profile.Profile)
	switch mode {
	case "":
		return func() {}, nil
	case "cpu":
		kind = profile.CPUProfile
	case "mem":
		kind = profile.MemProfileAllocs
	case "trace":
		kind = profile.TraceProfile
	default:
		return nil, eris.Errorf("unknown profile mode %q", mode)
	}
	p := profile.Start(kind, profile.ProfilePath(path), profile.NoShutdownHook, profile.Quiet)
	return p.Stop, nil
}
