package quadtree

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/snowflake/index"
	"github.com/aukilabs/snowflake/models"
)

const (
	northWest = iota
	northEast
	southWest
	southEast
)

// minSplitRadius is the smallest radius a bucket can be split into. Buckets
// at that size keep growing past capacity, which only happens when more than
// capacity points share (almost) the same coordinates.
const minSplitRadius = 1e-9

// node is either a bucket (children == nil) holding at most capacity points,
// or a split node owning four quadrant children.
type node struct {
	center   models.Point
	radius   float64
	points   []models.Point
	children *[4]node
}

func newBucket(center models.Point, radius float64) node {
	return node{
		center: center,
		radius: radius,
	}
}

func newSplit(center models.Point, radius float64) node {
	n := newBucket(center, radius)
	n.children = quadrants(center, radius)
	return n
}

func quadrants(center models.Point, radius float64) *[4]node {
	half := radius / 2
	return &[4]node{
		northWest: newBucket(models.NewPoint(center.X-half, center.Y+half), half),
		northEast: newBucket(models.NewPoint(center.X+half, center.Y+half), half),
		southWest: newBucket(models.NewPoint(center.X-half, center.Y-half), half),
		southEast: newBucket(models.NewPoint(center.X+half, center.Y-half), half),
	}
}

func (n *node) isSplit() bool {
	return n.children != nil
}

// contains reports whether p lies in [cx-r, cx+r) x [cy-r, cy+r).
func (n *node) contains(p models.Point) bool {
	return p.X >= n.center.X-n.radius &&
		p.X < n.center.X+n.radius &&
		p.Y >= n.center.Y-n.radius &&
		p.Y < n.center.Y+n.radius
}

// quadrant returns the child a point routes to. Ties on the x boundary go
// east and ties on the y boundary go north.
func (n *node) quadrant(p models.Point) int {
	switch {
	case p.X < n.center.X && p.Y >= n.center.Y:
		return northWest
	case p.X >= n.center.X && p.Y >= n.center.Y:
		return northEast
	case p.X < n.center.X && p.Y < n.center.Y:
		return southWest
	default:
		return southEast
	}
}

// add routes p to its leaf. The caller guarantees that p is within the node
// bound.
func (n *node) add(p models.Point, capacity int) {
	switch {
	case n.isSplit():
		n.children[n.quadrant(p)].add(p, capacity)

	case len(n.points) < capacity || n.radius/2 < minSplitRadius:
		n.points = append(n.points, p)

	default:
		n.split(capacity)
		n.children[n.quadrant(p)].add(p, capacity)
	}
}

// split turns a full bucket into a split node and redistributes every point it
// held.
func (n *node) split(capacity int) {
	points := n.points
	n.points = nil
	n.children = quadrants(n.center, n.radius)

	for _, p := range points {
		n.children[n.quadrant(p)].add(p, capacity)
	}
}

func (n *node) isEmpty() bool {
	if !n.isSplit() {
		return len(n.points) == 0
	}

	for i := range n.children {
		if !n.children[i].isEmpty() {
			return false
		}
	}
	return true
}

type candidate struct {
	point    models.Point
	distance float64
	ok       bool
}

func (n *node) nearest(q models.Point, best *candidate) {
	if !n.isSplit() {
		n.scan(q, best)
		return
	}

	inside := -1
	if quadrant := n.quadrant(q); n.children[quadrant].contains(q) {
		inside = quadrant
		n.children[quadrant].nearest(q, best)
	}

	for i := range n.children {
		if i == inside {
			continue
		}

		child := &n.children[i]
		if !best.ok || child.lowerBound(q) < best.distance {
			child.nearest(q, best)
		}
	}
}

func (n *node) scan(q models.Point, best *candidate) {
	if len(n.points) == 0 {
		return
	}

	nearest := n.points[0]
	nearestDistance2 := q.Distance2(nearest)
	for _, p := range n.points[1:] {
		if d2 := q.Distance2(p); d2 < nearestDistance2 {
			nearest = p
			nearestDistance2 = d2
		}
	}

	if distance := math.Sqrt(nearestDistance2); !best.ok || distance < best.distance {
		best.point = nearest
		best.distance = distance
		best.ok = true
	}
}

// lowerBound returns the smallest possible distance between q and a point
// inside the node region. It is 0 when q is inside or on the region edge.
func (n *node) lowerBound(q models.Point) float64 {
	dx := math.Abs(n.center.X - q.X)
	dy := math.Abs(n.center.Y - q.Y)
	r := n.radius

	switch {
	case dx <= r && dy <= r:
		return 0
	case dx <= r:
		return dy - r
	case dy <= r:
		return dx - r
	default:
		return math.Sqrt((dx-r)*(dx-r) + (dy-r)*(dy-r))
	}
}

func (n *node) collect(points []models.Point) []models.Point {
	if !n.isSplit() {
		return append(points, n.points...)
	}

	for i := range n.children {
		points = n.children[i].collect(points)
	}
	return points
}

func (n *node) debugInfo(info *index.DebugInfo, depth int) {
	if depth > info.Depth {
		info.Depth = depth
	}

	if !n.isSplit() {
		info.BucketCount++
		info.PointCount += len(n.points)
		if len(n.points) > info.MaxBucket {
			info.MaxBucket = len(n.points)
		}
		return
	}

	info.SplitCount++
	for i := range n.children {
		n.children[i].debugInfo(info, depth+1)
	}
}

func outOfBoundsError(p models.Point, n *node) error {
	return errors.New("point is outside of node boundaries").
		WithType(ErrTypeOutOfBounds).
		WithTag("point", p.String()).
		WithTag("center", n.center.String()).
		WithTag("radius", n.radius)
}
