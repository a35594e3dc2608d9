// Package linear provides an index answering nearest-neighbor queries by
// scanning every stored point. It is the baseline the partition trees are
// checked against.
package linear

import (
	"math"

	"github.com/aukilabs/snowflake/models"
)

// Index is a brute-force nearest-neighbor index.
type Index struct {
	points           []models.Point
	farthestDistance float64
}

// New returns an index holding the given points.
func New(points ...models.Point) *Index {
	var idx Index
	for _, p := range points {
		idx.AddPoint(p)
	}
	return &idx
}

func (idx *Index) AddPoint(p models.Point) {
	idx.points = append(idx.points, p)
	idx.farthestDistance = math.Max(idx.farthestDistance, p.Distance(models.Zero))
}

// Nearest returns the first stored point at the minimum distance from q.
func (idx *Index) Nearest(q models.Point) (models.Point, float64, bool) {
	if len(idx.points) == 0 {
		return models.Point{}, 0, false
	}

	nearest := idx.points[0]
	nearestDistance2 := q.Distance2(nearest)
	for _, p := range idx.points[1:] {
		if d2 := q.Distance2(p); d2 < nearestDistance2 {
			nearest = p
			nearestDistance2 = d2
		}
	}
	return nearest, math.Sqrt(nearestDistance2), true
}

func (idx *Index) FarthestDistance() float64 {
	return idx.farthestDistance
}

func (idx *Index) IsEmpty() bool {
	return len(idx.points) == 0
}

func (idx *Index) Len() int {
	return len(idx.points)
}

// Points returns the stored points in insertion order.
func (idx *Index) Points() []models.Point {
	return append([]models.Point(nil), idx.points...)
}
