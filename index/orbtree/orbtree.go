// Package orbtree provides an index backed by the orb quadtree.
package orbtree

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/snowflake/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"
)

const (
	ErrTypeOutOfBounds = "point_out_of_bounds"
)

// Index is a nearest-neighbor index over a fixed square region centered on
// the origin.
type Index struct {
	tree             *quadtree.Quadtree
	radius           float64
	count            int
	farthestDistance float64
}

// New returns an empty index accepting points within radius of the origin on
// both axes.
func New(radius float64) *Index {
	return &Index{
		tree: quadtree.New(orb.Bound{
			Min: orb.Point{-radius, -radius},
			Max: orb.Point{radius, radius},
		}),
		radius: radius,
	}
}

// AddPoint inserts p. It panics when p is outside of the index region.
func (idx *Index) AddPoint(p models.Point) {
	if err := idx.tree.Add(orb.Point{p.X, p.Y}); err != nil {
		panic(errors.New("point is outside of index boundaries").
			WithType(ErrTypeOutOfBounds).
			WithTag("point", p.String()).
			WithTag("radius", idx.radius).
			Wrap(err))
	}

	idx.count++
	idx.farthestDistance = math.Max(idx.farthestDistance, p.Distance(models.Zero))
}

func (idx *Index) Nearest(q models.Point) (models.Point, float64, bool) {
	query := orb.Point{q.X, q.Y}

	found := idx.tree.Find(query)
	if found == nil {
		return models.Point{}, 0, false
	}

	p := found.Point()
	return models.NewPoint(p[0], p[1]), planar.Distance(p, query), true
}

func (idx *Index) FarthestDistance() float64 {
	return idx.farthestDistance
}

func (idx *Index) IsEmpty() bool {
	return idx.count == 0
}

func (idx *Index) Len() int {
	return idx.count
}

func (idx *Index) Radius() float64 {
	return idx.radius
}

func (idx *Index) CanGrow() bool {
	return false
}
