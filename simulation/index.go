package simulation

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/snowflake/index"
	"github.com/aukilabs/snowflake/index/kdtree"
	"github.com/aukilabs/snowflake/index/linear"
	"github.com/aukilabs/snowflake/index/orbtree"
	"github.com/aukilabs/snowflake/index/quadtree"
	"github.com/aukilabs/snowflake/models"
)

// IndexOptions configures the index built by NewIndex.
type IndexOptions struct {
	// Lets bounded indexes grow their region instead of rejecting points.
	AutoResize bool

	// Leaves room for the flake to grow to this many times its current
	// farthest distance before a bounded index is exhausted.
	Headroom float64
}

const defaultHeadroom = 4.0

type indexBuilder func(points []models.Point, radius float64, opts IndexOptions) index.Index

var indexBuilders = map[index.Kind]indexBuilder{
	index.KindQuadTree: func(points []models.Point, radius float64, opts IndexOptions) index.Index {
		return quadtree.FromPoints(points,
			quadtree.WithRadius(radius),
			quadtree.WithAutoResize(opts.AutoResize),
		)
	},
	index.KindLinear: func(points []models.Point, radius float64, opts IndexOptions) index.Index {
		return linear.New(points...)
	},
	index.KindKDTree: func(points []models.Point, radius float64, opts IndexOptions) index.Index {
		return kdtree.New(points...)
	},
	index.KindOrb: func(points []models.Point, radius float64, opts IndexOptions) index.Index {
		idx := orbtree.New(radius)
		for _, p := range points {
			idx.AddPoint(p)
		}
		return idx
	},
}

// NewIndex builds an index of the given kind holding points.
func NewIndex(kind index.Kind, points []models.Point, opts IndexOptions) (index.Index, error) {
	build, ok := indexBuilders[kind]
	if !ok {
		return nil, errors.New("unknown index kind").
			WithType(index.ErrTypeUnknownKind).
			WithTag("kind", kind)
	}

	if opts.Headroom <= 1 {
		opts.Headroom = defaultHeadroom
	}

	farthest := quadtree.DefaultMinRadius
	for _, p := range points {
		farthest = math.Max(farthest, p.Norm())
	}
	return build(points, farthest*opts.Headroom, opts), nil
}
