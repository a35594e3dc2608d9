// Package simulation grows a snowflake by diffusion-limited aggregation.
//
// Particles spawn on a circle around the flake and random walk until they
// come within the stick distance of a point already in the flake. Walk steps
// are as long as the distance to the nearest point allows, which keeps
// the number of nearest-neighbor queries low far away from the flake.
package simulation

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/snowflake/index"
	"github.com/aukilabs/snowflake/models"
)

const (
	DefaultStickDistance = 1.0
	DefaultStepSize      = 1.0
	DefaultSpawnMargin   = 10.0
	DefaultKillFactor    = 2.0
	DefaultIndexLabel    = "default"

	ErrTypeBoundExceeded  = "index_bound_exceeded"
	ErrTypeInvalidOptions = "invalid_simulation_options"
	ErrTypeStore          = "flake_store_failed"
)

// Store persists the points added to the flake.
type Store interface {
	Add(p models.Point) error
	Flush() error
}

// Options configures a simulation run. Zero values are replaced by defaults,
// except Rand which is required.
type Options struct {
	// The number of particles to stick. 0 runs until the context is done.
	NumParticles int

	Symmetry Symmetry

	// The distance under which a walking particle sticks to the flake.
	StickDistance float64

	// The minimum length of a walk step.
	StepSize float64

	// The distance between the farthest point and the spawn circle.
	SpawnMargin float64

	// Particles farther than KillFactor times the spawn radius are respawned.
	KillFactor float64

	// Flushes the store every FlushEvery particles. 0 relies on the store
	// buffering.
	FlushEvery int

	// Logs progress every LogInterval particles. 0 disables progress logs.
	LogInterval int

	// The label used to tag metrics.
	IndexLabel string

	Rand *rand.Rand

	// Called for every point added to the flake.
	Observer func(models.Point)
}

func (o Options) withDefaults() Options {
	if o.StickDistance <= 0 {
		o.StickDistance = DefaultStickDistance
	}
	if o.StepSize <= 0 {
		o.StepSize = DefaultStepSize
	}
	if o.SpawnMargin <= 0 {
		o.SpawnMargin = DefaultSpawnMargin
	}
	if o.KillFactor <= 1 {
		o.KillFactor = DefaultKillFactor
	}
	if o.IndexLabel == "" {
		o.IndexLabel = DefaultIndexLabel
	}
	return o
}

// Stats summarizes a simulation run.
type Stats struct {
	Particles        int           `json:"particles"`
	Points           int           `json:"points"`
	Steps            int           `json:"steps"`
	Respawns         int           `json:"respawns"`
	FarthestDistance float64       `json:"farthest_distance"`
	Duration         time.Duration `json:"duration"`
}

// Generate sticks particles to the flake held by idx and persists every added
// point to store.
//
// When idx is empty the origin is added first. The store is flushed before
// returning, including when ctx is done, in which case ctx.Err() is returned
// with the stats of the particles stuck so far.
//
// Points are appended to store before being added to idx, so a point the
// store rejects never reaches idx.
func Generate(ctx context.Context, idx index.Index, store Store, opts Options) (Stats, error) {
	if opts.Rand == nil {
		return Stats{}, errors.New("simulation requires a random source").
			WithType(ErrTypeInvalidOptions)
	}
	if opts.NumParticles < 0 {
		return Stats{}, errors.New("negative number of particles").
			WithType(ErrTypeInvalidOptions).
			WithTag("num_particles", opts.NumParticles)
	}

	g := generator{
		idx:   idx,
		store: store,
		opts:  opts.withDefaults(),
		start: time.Now(),
	}

	err := g.run(ctx)
	if flushErr := g.flush(); err == nil {
		err = flushErr
	}

	g.stats.FarthestDistance = idx.FarthestDistance()
	g.stats.Duration = time.Since(g.start)
	return g.stats, err
}

type generator struct {
	idx   index.Index
	store Store
	opts  Options
	start time.Time
	stats Stats
}

func (g *generator) run(ctx context.Context) error {
	if g.idx.IsEmpty() {
		if err := g.add(models.Zero); err != nil {
			return err
		}
		instrumentSeed(g.opts.IndexLabel)
		logs.Debug("flake seeded at the origin")
	}

	for i := 0; g.opts.NumParticles == 0 || i < g.opts.NumParticles; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		spawnRadius := g.idx.FarthestDistance() + g.opts.SpawnMargin
		killRadius := spawnRadius * g.opts.KillFactor
		if err := g.checkBound(killRadius); err != nil {
			return err
		}

		p, steps, respawns := g.walk(spawnRadius, killRadius)
		images := g.opts.Symmetry.Images(p)
		for _, img := range images {
			if err := g.add(img); err != nil {
				return err
			}
		}

		g.stats.Particles++
		g.stats.Steps += steps
		g.stats.Respawns += respawns
		instrumentParticle(g.opts.IndexLabel, steps, respawns, len(images), g.idx.FarthestDistance())

		if g.opts.FlushEvery > 0 && g.stats.Particles%g.opts.FlushEvery == 0 {
			if err := g.flush(); err != nil {
				return err
			}
		}

		if g.opts.LogInterval > 0 && g.stats.Particles%g.opts.LogInterval == 0 {
			logs.WithTag("particles", g.stats.Particles).
				WithTag("points", g.idx.Len()).
				WithTag("farthest_distance", g.idx.FarthestDistance()).
				WithTag("steps", g.stats.Steps).
				WithTag("respawns", g.stats.Respawns).
				WithTag("elapsed", time.Since(g.start).String()).
				Info("simulation progress")
		}
	}
	return nil
}

// walk moves a particle from the spawn circle until it sticks and returns its
// final position.
func (g *generator) walk(spawnRadius, killRadius float64) (models.Point, int, int) {
	var steps, respawns int

	w := g.spawn(spawnRadius)
	for {
		steps++

		_, d, ok := g.idx.Nearest(w)
		if ok && d <= g.opts.StickDistance {
			return w, steps, respawns
		}

		// No point is closer than d so the walker can jump to the stick
		// distance without crossing the flake.
		step := g.opts.StepSize
		if ok {
			step = math.Max(step, d-g.opts.StickDistance)
		}

		sin, cos := math.Sincos(g.opts.Rand.Float64() * 2 * math.Pi)
		w = models.NewPoint(w.X+step*cos, w.Y+step*sin)

		if w.Norm() > killRadius {
			respawns++
			w = g.spawn(spawnRadius)
		}
	}
}

func (g *generator) spawn(radius float64) models.Point {
	sin, cos := math.Sincos(g.opts.Rand.Float64() * 2 * math.Pi)
	return models.NewPoint(radius*cos, radius*sin)
}

func (g *generator) add(p models.Point) error {
	if err := g.store.Add(p); err != nil {
		return errors.New("adding point to store failed").
			WithType(ErrTypeStore).
			WithTag("point", p.String()).
			Wrap(err)
	}
	g.idx.AddPoint(p)

	g.stats.Points++
	if g.opts.Observer != nil {
		g.opts.Observer(p)
	}
	return nil
}

func (g *generator) flush() error {
	if err := g.store.Flush(); err != nil {
		return errors.New("flushing store failed").
			WithType(ErrTypeStore).
			Wrap(err)
	}
	return nil
}

func (g *generator) checkBound(killRadius float64) error {
	bounded, ok := g.idx.(index.Bounded)
	if !ok || bounded.CanGrow() || killRadius <= bounded.Radius() {
		return nil
	}

	return errors.New("walk region exceeds the index bound").
		WithType(ErrTypeBoundExceeded).
		WithTag("kill_radius", killRadius).
		WithTag("index_radius", bounded.Radius()).
		WithTag("farthest_distance", g.idx.FarthestDistance())
}
