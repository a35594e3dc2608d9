// Package quadtree implements a recursive quad partition of the plane used to
// answer nearest-neighbor queries while a snowflake grows.
//
// Leaves (buckets) hold up to a fixed number of points. When a bucket would
// overflow it is turned into a split node with four empty quadrant children
// and its points are redistributed. Nearest-neighbor queries visit the
// quadrant containing the query first, then skip every other quadrant whose
// region cannot hold a closer point.
package quadtree

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/snowflake/index"
	"github.com/aukilabs/snowflake/models"
)

const (
	// Capacity is the default maximum number of points held by a bucket.
	Capacity = 50

	// DefaultMinRadius is the smallest working radius a tree is sized for.
	DefaultMinRadius = 500.0

	// MaxRadius is the largest root radius auto resize grows a tree to.
	MaxRadius = 1 << 50

	ErrTypeOutOfBounds = "point_out_of_bounds"
	ErrTypeLoad        = "index_load_failed"
)

// PointSource provides the points a tree is bulk loaded with.
type PointSource interface {
	Points() ([]models.Point, error)
}

// Option configures a QuadTree.
type Option func(*QuadTree)

// WithRadius sets the half side of the root region. Non-positive values are
// ignored.
func WithRadius(r float64) Option {
	return func(t *QuadTree) {
		if r > 0 {
			t.root = newSplit(models.Zero, r)
		}
	}
}

// WithCapacity sets the maximum number of points held by a bucket.
func WithCapacity(n int) Option {
	return func(t *QuadTree) {
		if n > 0 {
			t.capacity = n
		}
	}
}

// WithAutoResize makes the tree double its root region until an inserted
// point fits instead of panicking.
func WithAutoResize(v bool) Option {
	return func(t *QuadTree) {
		t.autoResize = v
	}
}

// QuadTree is a quad partition tree over points. It is not safe for
// concurrent use.
type QuadTree struct {
	root             node
	capacity         int
	autoResize       bool
	farthestDistance float64
	count            int
}

// New returns an empty tree centered on the origin.
func New(opts ...Option) *QuadTree {
	t := &QuadTree{
		root:     newSplit(models.Zero, DefaultMinRadius*2),
		capacity: Capacity,
	}

	for _, o := range opts {
		o(t)
	}
	return t
}

// FromPoints returns a tree sized to cover the origin and the given points,
// with every point inserted in order.
func FromPoints(points []models.Point, opts ...Option) *QuadTree {
	farthest := DefaultMinRadius
	for _, p := range points {
		farthest = math.Max(farthest, p.Distance(models.Zero))
	}

	t := New(append([]Option{WithRadius(farthest * 2)}, opts...)...)
	if t.root.radius < farthest*2 {
		t.root = newSplit(models.Zero, farthest*2)
	}

	for _, p := range points {
		t.AddPoint(p)
	}
	return t
}

// Load reads the points of src and returns a tree holding them.
func Load(src PointSource, opts ...Option) (*QuadTree, error) {
	points, err := src.Points()
	if err != nil {
		return nil, errors.New("reading index points failed").
			WithType(ErrTypeLoad).
			Wrap(err)
	}

	t := FromPoints(points, opts...)
	logs.WithTag("points", t.count).
		WithTag("radius", t.root.radius).
		WithTag("farthest_distance", t.farthestDistance).
		Debug("quadtree loaded")
	return t, nil
}

// IsEmpty reports whether no point has been inserted.
func (t *QuadTree) IsEmpty() bool {
	return t.root.isEmpty()
}

// AddPoint inserts p.
//
// p must be within the root region. Inserting a point outside of it is a
// programming error and panics with an ErrTypeOutOfBounds error, unless
// the tree was created with auto resize and p fits within MaxRadius.
func (t *QuadTree) AddPoint(p models.Point) {
	if !t.root.contains(p) {
		if !t.autoResize || !isFinite(p) {
			panic(outOfBoundsError(p, &t.root))
		}
		t.grow(p)
	}

	t.root.add(p, t.capacity)
	t.count++
	t.farthestDistance = math.Max(t.farthestDistance, p.Distance(models.Zero))
}

// Nearest returns the stored point closest to q and its distance. ok is false
// when the tree is empty.
func (t *QuadTree) Nearest(q models.Point) (models.Point, float64, bool) {
	var best candidate
	t.root.nearest(q, &best)
	return best.point, best.distance, best.ok
}

// FarthestDistance returns the largest distance from the origin over every
// inserted point.
func (t *QuadTree) FarthestDistance() float64 {
	return t.farthestDistance
}

// Len returns the number of stored points.
func (t *QuadTree) Len() int {
	return t.count
}

// Radius returns the half side of the root region.
func (t *QuadTree) Radius() float64 {
	return t.root.radius
}

// CanGrow reports whether the tree was created with auto resize.
func (t *QuadTree) CanGrow() bool {
	return t.autoResize
}

// Points returns every stored point.
func (t *QuadTree) Points() []models.Point {
	return t.root.collect(make([]models.Point, 0, t.count))
}

// DebugInfo returns the current shape of the tree.
func (t *QuadTree) DebugInfo() index.DebugInfo {
	info := index.DebugInfo{
		Radius: t.root.radius,
	}
	t.root.debugInfo(&info, 0)
	return info
}

// grow doubles the root region until p fits and re-inserts every point. It
// panics when p does not fit within MaxRadius.
func (t *QuadTree) grow(p models.Point) {
	radius := t.root.radius
	for math.Abs(p.X) >= radius || math.Abs(p.Y) >= radius {
		if radius*2 > MaxRadius {
			panic(errors.New("point is beyond the maximum tree radius").
				WithType(ErrTypeOutOfBounds).
				WithTag("point", p.String()).
				WithTag("radius", t.root.radius).
				WithTag("max_radius", float64(MaxRadius)))
		}
		radius *= 2
	}

	points := t.Points()
	t.root = newSplit(models.Zero, radius)
	for _, p := range points {
		t.root.add(p, t.capacity)
	}

	logs.WithTag("radius", radius).
		WithTag("points", len(points)).
		Info("quadtree root region grown")
}

func isFinite(p models.Point) bool {
	return !math.IsInf(p.X, 0) && !math.IsNaN(p.X) &&
		!math.IsInf(p.Y, 0) && !math.IsNaN(p.Y)
}
