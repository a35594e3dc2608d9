// Package index defines the nearest-neighbor abstraction used by the
// snowflake simulation. The quad-partition tree in index/quadtree is the
// default implementation; the other subpackages are alternative backends.
package index

import (
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/snowflake/models"
)

const (
	ErrTypeUnknownKind = "unknown_index_kind"
)

// Index is a growing set of points answering nearest-neighbor queries.
type Index interface {
	// Adds a point. Points are never removed.
	AddPoint(p models.Point)

	// Returns the stored point closest to q and its distance. ok is false when
	// the index is empty.
	Nearest(q models.Point) (p models.Point, distance float64, ok bool)

	// Returns the largest distance from the origin over every inserted point.
	FarthestDistance() float64

	// Reports whether no point has been inserted.
	IsEmpty() bool

	// Returns the number of stored points.
	Len() int
}

// Bounded is implemented by indexes that only accept points within a square
// region centered on the origin.
type Bounded interface {
	// Returns the half side of the accepted region.
	Radius() float64

	// Reports whether the index grows its region instead of rejecting points.
	CanGrow() bool
}

// DebugInfo describes the shape of a partition tree.
type DebugInfo struct {
	Depth       int     `json:"depth"`
	BucketCount int     `json:"bucket_count"`
	SplitCount  int     `json:"split_count"`
	PointCount  int     `json:"point_count"`
	Radius      float64 `json:"radius"`
	MaxBucket   int     `json:"max_bucket"`
}

// Kind names an index backend.
type Kind string

const (
	KindQuadTree Kind = "quadtree"
	KindLinear   Kind = "linear"
	KindKDTree   Kind = "kdtree"
	KindOrb      Kind = "orb"
)

// Kinds returns every known backend.
func Kinds() []Kind {
	return []Kind{KindQuadTree, KindLinear, KindKDTree, KindOrb}
}

// ParseKind returns the kind matching s.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", errors.New("unknown index kind").
		WithType(ErrTypeUnknownKind).
		WithTag("kind", s)
}
