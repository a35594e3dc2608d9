package main

import (
	"context"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/snowflake/featureflag"
	"github.com/aukilabs/snowflake/flake"
	snowflakehttp "github.com/aukilabs/snowflake/http"
	"github.com/aukilabs/snowflake/index"
	"github.com/aukilabs/snowflake/models"
	"github.com/aukilabs/snowflake/simulation"
	"github.com/aukilabs/snowflake/websocket"
	"github.com/google/uuid"
)

type generateConfig struct {
	FlakeFile            string        `cli:""        env:"SNOWFLAKE_FLAKE_FILE"            help:"The file where the flake points are stored."`
	NumParticles         int           `cli:""        env:"SNOWFLAKE_NUM_PARTICLES"         help:"The number of particles to stick. 0 runs until interrupted."`
	RotationalSymmetry   int           `cli:""        env:"SNOWFLAKE_ROTATIONAL_SYMMETRY"   help:"The order of the rotational symmetry."`
	ReflectionalSymmetry int           `cli:""        env:"SNOWFLAKE_REFLECTIONAL_SYMMETRY" help:"The order of the reflectional symmetry."`
	Seed                 uint64        `cli:""        env:"SNOWFLAKE_SEED"                  help:"The random seed. 0 picks a random one."`
	Index                string        `cli:""        env:"SNOWFLAKE_INDEX"                 help:"The nearest-neighbor index (quadtree|linear|kdtree|orb)."`
	AdminAddr            string        `cli:""        env:"SNOWFLAKE_ADMIN_ADDR"            help:"Admin listening address. Empty disables the admin server."`
	LogLevel             string        `cli:""        env:"SNOWFLAKE_LOG_LEVEL"             help:"Log level (debug|info|warning|error)."`
	LogIndent            bool          `cli:""        env:"SNOWFLAKE_LOG_INDENT"            help:"Indent logs."`
	LogInterval          int           `cli:",hidden" env:"SNOWFLAKE_LOG_INTERVAL"          help:"The number of particles between each progress log."`
	LogSummaryInterval   time.Duration `cli:",hidden" env:"SNOWFLAKE_LOG_SUMMARY_INTERVAL"  help:"The duration between each point feed log summary."`
	FlushEvery           int           `cli:",hidden" env:"SNOWFLAKE_FLUSH_EVERY"           help:"The number of particles between each flake file flush."`
	FeatureFlags         []string      `cli:",hidden" env:"SNOWFLAKE_FEATURE_FLAGS"         help:"Comma separated feature flags"`
	Events               eventsConfig  `cli:",hidden" env:"-"                               help:"Event pusher configuration."`
}

func validateGenerateConfig(conf generateConfig) error {
	if conf.FlakeFile == "" {
		return errors.New("flake file is required")
	}

	if conf.NumParticles < 0 {
		return errors.New("number of particles is negative").
			WithTag("num_particles", conf.NumParticles)
	}

	if conf.RotationalSymmetry < 0 || conf.ReflectionalSymmetry < 0 {
		return errors.New("symmetry order is negative").
			WithTag("rotational_symmetry", conf.RotationalSymmetry).
			WithTag("reflectional_symmetry", conf.ReflectionalSymmetry)
	}

	if conf.RotationalSymmetry > 0 && conf.ReflectionalSymmetry > 0 {
		return errors.New("have to specify either rotational or reflectional symmetry, not both")
	}

	if _, err := index.ParseKind(conf.Index); err != nil {
		return err
	}

	return featureflag.New(conf.FeatureFlags).Validate()
}

// progress tracks a running simulation for the admin server.
type progress struct {
	mutex sync.Mutex
	stats progressStats
}

type progressStats struct {
	RunID            string               `json:"run_id"`
	Running          bool                 `json:"running"`
	Points           int                  `json:"points"`
	FarthestDistance float64              `json:"farthest_distance"`
	Feed             *websocket.FeedStats `json:"feed,omitempty"`
}

func (p *progress) add(point models.Point, total int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.stats.Points = total
	if d := point.Norm(); d > p.stats.FarthestDistance {
		p.stats.FarthestDistance = d
	}
}

func (p *progress) setRunning(v bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.stats.Running = v
}

func (p *progress) isRunning() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.stats.Running
}

func (p *progress) snapshot() progressStats {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.stats
}

func runGenerate(ctx context.Context, conf generateConfig) error {
	if err := validateGenerateConfig(conf); err != nil {
		return err
	}

	flags := featureflag.New(conf.FeatureFlags)
	kind, _ := index.ParseKind(conf.Index)
	symmetry := simulation.ParseSymmetry(conf.RotationalSymmetry, conf.ReflectionalSymmetry)

	seed := conf.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	runID := uuid.NewString()

	store := flake.New(conf.FlakeFile,
		flake.WithStrict(flags.IsSet(featureflag.FlagStrictFlake)),
	)
	points, err := store.Points()
	if err != nil {
		return errors.New("loading flake failed").Wrap(err)
	}

	idx, err := simulation.NewIndex(kind, points, simulation.IndexOptions{
		AutoResize: flags.IsSet(featureflag.FlagAutoResize),
	})
	if err != nil {
		return err
	}

	logs.WithTag("run_id", runID).
		WithTag("flake_file", conf.FlakeFile).
		WithTag("index", kind).
		WithTag("seed", seed).
		WithTag("symmetry", symmetry.String()).
		WithTag("num_particles", conf.NumParticles).
		WithTag("points", len(points)).
		WithTag("version", version).
		Info("generating snowflake")

	prog := &progress{
		stats: progressStats{
			RunID:            runID,
			Running:          true,
			Points:           idx.Len(),
			FarthestDistance: idx.FarthestDistance(),
		},
	}

	var feed *websocket.Feed
	observer := func(p models.Point) {
		prog.add(p, idx.Len())
		if feed != nil {
			feed.Publish(websocket.NewMessage(p, idx.Len()))
		}
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	stopAdmin := func() error { return nil }
	if conf.AdminAddr != "" {
		flags.IfNotSet(featureflag.FlagDisableFeed, func() {
			feed = websocket.NewFeed(conf.LogSummaryInterval)
		})
		stopAdmin = startAdmin(runCtx, cancelRun, conf.AdminAddr, prog, feed)
	}

	stats, err := simulation.Generate(runCtx, idx, store, simulation.Options{
		NumParticles: conf.NumParticles,
		Symmetry:     symmetry,
		FlushEvery:   conf.FlushEvery,
		LogInterval:  conf.LogInterval,
		IndexLabel:   string(kind),
		Rand:         rand.New(rand.NewPCG(seed, seed)),
		Observer:     observer,
	})
	adminErr := stopAdmin()
	prog.setRunning(false)

	entry := logs.WithTag("run_id", runID).
		WithTag("flake_file", conf.FlakeFile).
		WithTag("particles", stats.Particles).
		WithTag("points", stats.Points).
		WithTag("steps", stats.Steps).
		WithTag("respawns", stats.Respawns).
		WithTag("farthest_distance", stats.FarthestDistance).
		WithTag("duration", stats.Duration.String())

	switch {
	case adminErr != nil:
		entry.Info("snowflake generation stopped")
		return errors.New("admin server failed").
			WithTag("run_id", runID).
			WithTag("admin_addr", conf.AdminAddr).
			Wrap(adminErr)

	case err == nil:
		entry.Info("snowflake generated")
		return nil

	case errors.Is(err, context.Canceled):
		entry.Info("snowflake generation interrupted")
		return nil

	default:
		return errors.New("generating snowflake failed").
			WithTag("run_id", runID).
			Wrap(err)
	}
}

// startAdmin serves the admin routes until the returned function is called.
// When the server fails, cancelRun is called and the returned function
// reports the failure.
func startAdmin(ctx context.Context, cancelRun func(), addr string, prog *progress, feed *websocket.Feed) func() error {
	ctx, cancel := context.WithCancel(ctx)

	opts := snowflakehttp.AdminOptions{
		Version:        version,
		ReadinessCheck: prog.isRunning,
		Stats: func() any {
			stats := prog.snapshot()
			if feed != nil {
				feedStats := feed.Stats()
				stats.Feed = &feedStats
			}
			return stats
		},
	}
	if feed != nil {
		opts.Feed = feed.Handler()
	}

	errs := make(chan error, 1)
	go func() {
		err := snowflakehttp.ListenAndServe(ctx, &http.Server{
			Addr:    addr,
			Handler: snowflakehttp.NewAdminHandler(opts),
		})
		if err != nil {
			logs.Error(err)
			cancelRun()
		}
		errs <- err
	}()

	return func() error {
		if feed != nil {
			feed.Close()
		}
		cancel()
		return <-errs
	}
}
