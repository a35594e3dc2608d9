// Package kdtree provides an index backed by the gonum k-d tree.
package kdtree

import (
	"math"

	"github.com/aukilabs/snowflake/models"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Index is a nearest-neighbor index over a 2-d tree.
//
// Points inserted after construction are added without rebalancing, so bulk
// loading through New gives the best query times.
type Index struct {
	tree             kdtree.Tree
	farthestDistance float64
}

// New returns an index holding the given points in a balanced tree.
func New(points ...models.Point) *Index {
	idx := &Index{}
	if len(points) == 0 {
		return idx
	}

	kdPoints := make(kdtree.Points, len(points))
	for i, p := range points {
		kdPoints[i] = kdtree.Point{p.X, p.Y}
		idx.farthestDistance = math.Max(idx.farthestDistance, p.Distance(models.Zero))
	}
	idx.tree = *kdtree.New(kdPoints, false)
	return idx
}

func (idx *Index) AddPoint(p models.Point) {
	idx.tree.Insert(kdtree.Point{p.X, p.Y}, false)
	idx.farthestDistance = math.Max(idx.farthestDistance, p.Distance(models.Zero))
}

func (idx *Index) Nearest(q models.Point) (models.Point, float64, bool) {
	if idx.tree.Count == 0 {
		return models.Point{}, 0, false
	}

	// kdtree.Point distances are squared.
	c, d2 := idx.tree.Nearest(kdtree.Point{q.X, q.Y})
	p, ok := c.(kdtree.Point)
	if !ok {
		return models.Point{}, 0, false
	}
	return models.NewPoint(p[0], p[1]), math.Sqrt(d2), true
}

func (idx *Index) FarthestDistance() float64 {
	return idx.farthestDistance
}

func (idx *Index) IsEmpty() bool {
	return idx.tree.Count == 0
}

func (idx *Index) Len() int {
	return idx.tree.Count
}
