package main

import (
	"context"
	"math/rand/v2"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/snowflake/flake"
	"github.com/aukilabs/snowflake/grid"
)

type gridConfig struct {
	FlakeFile    string `cli:""        env:"SNOWFLAKE_FLAKE_FILE"    help:"The file where the lattice points are stored."`
	NumParticles int    `cli:""        env:"SNOWFLAKE_NUM_PARTICLES" help:"The number of particles to stick."`
	Seed         uint64 `cli:""        env:"SNOWFLAKE_SEED"          help:"The random seed. 0 picks a random one."`
	LogLevel     string `cli:""        env:"SNOWFLAKE_LOG_LEVEL"     help:"Log level (debug|info|warning|error)."`
	LogIndent    bool   `cli:""        env:"SNOWFLAKE_LOG_INDENT"    help:"Indent logs."`
	LogInterval  int    `cli:",hidden" env:"SNOWFLAKE_LOG_INTERVAL"  help:"The number of particles between each progress log."`
}

func runGrid(ctx context.Context, conf gridConfig) error {
	if conf.FlakeFile == "" {
		return errors.New("flake file is required")
	}
	if conf.NumParticles < 0 {
		return errors.New("number of particles is negative").
			WithTag("num_particles", conf.NumParticles)
	}

	store := flake.New(conf.FlakeFile)
	existing, err := store.Points()
	if err != nil {
		return errors.New("loading flake failed").Wrap(err)
	}
	if len(existing) != 0 {
		return errors.New("flake file already holds points").
			WithTag("flake_file", conf.FlakeFile).
			WithTag("points", len(existing))
	}

	seed := conf.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	logs.WithTag("flake_file", conf.FlakeFile).
		WithTag("seed", seed).
		WithTag("num_particles", conf.NumParticles).
		WithTag("width", grid.Width).
		Info("growing lattice snowflake")

	g := grid.New(rand.New(rand.NewPCG(seed, seed)))
	for i := 1; i <= conf.NumParticles && ctx.Err() == nil; i++ {
		g.AddPoint()

		if conf.LogInterval > 0 && i%conf.LogInterval == 0 {
			logs.WithTag("particles", i).
				WithTag("points", g.Len()).
				Info("lattice progress")
		}
	}

	for _, p := range g.Points() {
		if err := store.Add(p); err != nil {
			return errors.New("storing lattice point failed").Wrap(err)
		}
	}
	if err := store.Flush(); err != nil {
		return errors.New("storing lattice points failed").Wrap(err)
	}

	logs.WithTag("flake_file", conf.FlakeFile).
		WithTag("points", g.Len()).
		Info("lattice snowflake stored")
	return nil
}
