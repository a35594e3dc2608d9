package quadtree

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/snowflake/index"
	"github.com/aukilabs/snowflake/index/linear"
	"github.com/aukilabs/snowflake/models"
	"github.com/stretchr/testify/require"
)

var (
	_ index.Index   = (*QuadTree)(nil)
	_ index.Bounded = (*QuadTree)(nil)
)

type pointSource struct {
	points []models.Point
	err    error
}

func (s pointSource) Points() ([]models.Point, error) {
	return s.points, s.err
}

func randomPoints(rnd *rand.Rand, n int, extent float64) []models.Point {
	points := make([]models.Point, n)
	for i := range points {
		points[i] = models.NewPoint(
			(rnd.Float64()*2-1)*extent,
			(rnd.Float64()*2-1)*extent,
		)
	}
	return points
}

func requireNearest(t *testing.T, tree *QuadTree, q models.Point, want models.Point, distance float64) {
	t.Helper()

	p, d, ok := tree.Nearest(q)
	require.True(t, ok)
	require.Equal(t, want, p)
	require.InDelta(t, distance, d, 1e-9)
}

func TestQuadTreeScenario(t *testing.T) {
	tree := New()

	_, _, ok := tree.Nearest(models.Zero)
	require.False(t, ok)

	tree.AddPoint(models.NewPoint(0, 0))
	requireNearest(t, tree, models.Zero, models.Zero, 0)
	requireNearest(t, tree, models.NewPoint(1, 0), models.Zero, 1)
	requireNearest(t, tree, models.NewPoint(0, 4), models.Zero, 4)

	tree.AddPoint(models.NewPoint(0, 1))
	requireNearest(t, tree, models.Zero, models.Zero, 0)
	requireNearest(t, tree, models.NewPoint(5, 1), models.NewPoint(0, 1), 5)
	requireNearest(t, tree, models.NewPoint(6, 0), models.Zero, 6)

	tree.AddPoint(models.NewPoint(10, 0))
	requireNearest(t, tree, models.Zero, models.Zero, 0)
	requireNearest(t, tree, models.NewPoint(5, 1), models.NewPoint(0, 1), 5)
	requireNearest(t, tree, models.NewPoint(6, 0), models.NewPoint(10, 0), 4)
	require.Equal(t, 10.0, tree.FarthestDistance())
}

func TestQuadTreeIsEmpty(t *testing.T) {
	tree := New()
	require.True(t, tree.IsEmpty())
	require.Zero(t, tree.Len())

	tree.AddPoint(models.Zero)
	require.False(t, tree.IsEmpty())
	require.Equal(t, 1, tree.Len())
}

func TestQuadTreeFarthestDistance(t *testing.T) {
	t.Run("grows with inserted points", func(t *testing.T) {
		tree := New()

		tree.AddPoint(models.Zero)
		require.Equal(t, 0.0, tree.FarthestDistance())

		tree.AddPoint(models.NewPoint(0, 1))
		require.Equal(t, 1.0, tree.FarthestDistance())

		tree.AddPoint(models.NewPoint(10, 0))
		require.Equal(t, 10.0, tree.FarthestDistance())

		tree.AddPoint(models.NewPoint(-2, 2))
		require.Equal(t, 10.0, tree.FarthestDistance())
	})

	t.Run("matches the maximum over random insertions", func(t *testing.T) {
		rnd := rand.New(rand.NewPCG(7, 11))
		tree := New()

		var farthest float64
		for _, p := range randomPoints(rnd, 3000, 990) {
			tree.AddPoint(p)
			farthest = math.Max(farthest, p.Distance(models.Zero))
			require.Equal(t, farthest, tree.FarthestDistance())
		}
	})
}

func TestQuadTreeNearestMatchesLinearScan(t *testing.T) {
	rnd := rand.New(rand.NewPCG(17, 42))

	tests := []struct {
		scenario string
		capacity int
		points   int
		extent   float64
	}{
		{
			scenario: "default capacity",
			capacity: Capacity,
			points:   5000,
			extent:   990,
		},
		{
			scenario: "small buckets",
			capacity: 2,
			points:   2000,
			extent:   500,
		},
		{
			scenario: "clustered points",
			capacity: 8,
			points:   2000,
			extent:   3,
		},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			tree := New(WithCapacity(test.capacity))
			oracle := linear.New()
			for _, p := range randomPoints(rnd, test.points, test.extent) {
				tree.AddPoint(p)
				oracle.AddPoint(p)
			}
			require.Equal(t, oracle.Len(), tree.Len())

			for _, q := range randomPoints(rnd, 2000, 1200) {
				_, want, _ := oracle.Nearest(q)
				p, got, ok := tree.Nearest(q)
				require.True(t, ok)
				require.Equal(t, want, got)
				require.Equal(t, got, p.Distance(q))
			}
		})
	}
}

func TestQuadTreeNearestOnGrid(t *testing.T) {
	tree := New()
	for x := -100; x < 100; x++ {
		for y := -100; y < 100; y++ {
			tree.AddPoint(models.NewPoint(float64(x), float64(y)))
		}
	}

	for x := -100; x < 100; x++ {
		for y := -100; y < 100; y++ {
			p, d, ok := tree.Nearest(models.NewPoint(float64(x)+0.25, float64(y)+0.25))
			require.True(t, ok)
			require.Equal(t, models.NewPoint(float64(x), float64(y)), p)
			require.InDelta(t, math.Sqrt(0.125), d, 1e-9)
		}
	}
}

func TestQuadTreeSplitPreservesAnswers(t *testing.T) {
	const capacity = 4

	points := []models.Point{
		models.NewPoint(100, 100),
		models.NewPoint(700, 120),
		models.NewPoint(120, 700),
		models.NewPoint(800, 800),
	}
	trigger := models.NewPoint(260, 260)

	tree := New(WithCapacity(capacity))
	for _, p := range points {
		tree.AddPoint(p)
	}
	before := tree.DebugInfo()

	tree.AddPoint(trigger)
	after := tree.DebugInfo()
	require.Equal(t, before.SplitCount+1, after.SplitCount)
	require.Equal(t, before.BucketCount+3, after.BucketCount)
	require.Equal(t, before.PointCount+1, after.PointCount)

	reference := New(WithCapacity(100))
	for _, p := range append(points, trigger) {
		reference.AddPoint(p)
	}
	require.Equal(t, 1, reference.DebugInfo().SplitCount)

	rnd := rand.New(rand.NewPCG(3, 5))
	for _, q := range randomPoints(rnd, 1000, 999) {
		_, want, _ := reference.Nearest(q)
		_, got, _ := tree.Nearest(q)
		require.Equal(t, want, got)
	}
	require.ElementsMatch(t, reference.Points(), tree.Points())
}

func TestQuadTreeBoundaryRouting(t *testing.T) {
	tests := []struct {
		scenario string
		point    models.Point
		quadrant int
	}{
		{
			scenario: "center goes north east",
			point:    models.Zero,
			quadrant: northEast,
		},
		{
			scenario: "x on boundary goes east",
			point:    models.NewPoint(0, -5),
			quadrant: southEast,
		},
		{
			scenario: "y on boundary goes north",
			point:    models.NewPoint(-5, 0),
			quadrant: northWest,
		},
		{
			scenario: "south west",
			point:    models.NewPoint(-1, -1),
			quadrant: southWest,
		},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			n := newSplit(models.Zero, 10)
			for i := 0; i < 3; i++ {
				n.add(test.point, Capacity)
			}
			require.Len(t, n.children[test.quadrant].points, 3)
			for i := range n.children {
				if i != test.quadrant {
					require.Empty(t, n.children[i].points)
				}
			}
		})
	}
}

func TestQuadTreeAddPointOutOfBounds(t *testing.T) {
	t.Run("panics with diagnostics", func(t *testing.T) {
		tree := New(WithRadius(10))

		var recovered any
		func() {
			defer func() {
				recovered = recover()
			}()
			tree.AddPoint(models.NewPoint(10, 0))
		}()

		err, ok := recovered.(error)
		require.True(t, ok)
		require.True(t, errors.IsType(err, ErrTypeOutOfBounds))
		require.True(t, tree.IsEmpty())
	})

	t.Run("lower bound is inclusive", func(t *testing.T) {
		tree := New(WithRadius(10))
		require.NotPanics(t, func() {
			tree.AddPoint(models.NewPoint(-10, -10))
		})
		require.Panics(t, func() {
			tree.AddPoint(models.NewPoint(0, 10))
		})
	})
}

func TestQuadTreeAutoResize(t *testing.T) {
	tree := New(WithRadius(10), WithCapacity(4), WithAutoResize(true))
	require.True(t, tree.CanGrow())

	oracle := linear.New()
	for _, p := range []models.Point{
		models.NewPoint(1, 1),
		models.NewPoint(-3, 2),
		models.NewPoint(5, -5),
		models.NewPoint(7, 7),
		models.NewPoint(-9, -9),
	} {
		tree.AddPoint(p)
		oracle.AddPoint(p)
	}
	require.Equal(t, 10.0, tree.Radius())

	far := models.NewPoint(35, -1)
	tree.AddPoint(far)
	oracle.AddPoint(far)
	require.Equal(t, 40.0, tree.Radius())
	require.Equal(t, 6, tree.Len())
	require.Equal(t, 6, tree.DebugInfo().PointCount)
	require.Equal(t, far.Distance(models.Zero), tree.FarthestDistance())

	for _, q := range []models.Point{
		models.NewPoint(30, 0),
		models.NewPoint(0, 0),
		models.NewPoint(-8, -8),
	} {
		_, want, _ := oracle.Nearest(q)
		_, got, _ := tree.Nearest(q)
		require.Equal(t, want, got)
	}

	require.Panics(t, func() {
		tree.AddPoint(models.NewPoint(math.Inf(1), 0))
	})
}

func TestQuadTreeAutoResizeLimit(t *testing.T) {
	t.Run("grows up to the maximum radius", func(t *testing.T) {
		tree := New(WithRadius(1), WithAutoResize(true))
		tree.AddPoint(models.NewPoint(MaxRadius/2, 0))
		require.Equal(t, float64(MaxRadius), tree.Radius())
		require.Equal(t, 1, tree.Len())
	})

	t.Run("panics beyond the maximum radius", func(t *testing.T) {
		tree := New(WithRadius(10), WithAutoResize(true))
		tree.AddPoint(models.NewPoint(1, 1))

		var recovered any
		func() {
			defer func() {
				recovered = recover()
			}()
			tree.AddPoint(models.NewPoint(1e308, 0))
		}()

		err, ok := recovered.(error)
		require.True(t, ok)
		require.True(t, errors.IsType(err, ErrTypeOutOfBounds))
		require.Equal(t, 10.0, tree.Radius())
		require.Equal(t, 1, tree.Len())
		require.Less(t, tree.DebugInfo().Depth, 10)
	})
}

func TestQuadTreeDuplicatePoints(t *testing.T) {
	tree := New(WithCapacity(4))
	p := models.NewPoint(12.5, -3)

	for i := 0; i < 20; i++ {
		tree.AddPoint(p)
	}
	require.Equal(t, 20, tree.Len())
	requireNearest(t, tree, models.NewPoint(12.5, 0), p, 3)

	info := tree.DebugInfo()
	require.Equal(t, 20, info.PointCount)
	require.GreaterOrEqual(t, info.MaxBucket, 20)
}

func TestFromPoints(t *testing.T) {
	t.Run("default radius", func(t *testing.T) {
		tree := FromPoints(nil)
		require.Equal(t, DefaultMinRadius*2, tree.Radius())
		require.True(t, tree.IsEmpty())
	})

	t.Run("radius covers points", func(t *testing.T) {
		points := []models.Point{
			models.NewPoint(0, 0),
			models.NewPoint(1500, 0),
			models.NewPoint(-20, 900),
		}

		tree := FromPoints(points)
		require.Equal(t, 3000.0, tree.Radius())
		require.Equal(t, 3, tree.Len())
		require.Equal(t, 1500.0, tree.FarthestDistance())
	})

	t.Run("small radius option is raised", func(t *testing.T) {
		tree := FromPoints([]models.Point{models.NewPoint(0, 600)}, WithRadius(50))
		require.Equal(t, 1200.0, tree.Radius())
	})

	t.Run("large radius option is kept", func(t *testing.T) {
		tree := FromPoints([]models.Point{models.NewPoint(0, 600)}, WithRadius(5000))
		require.Equal(t, 5000.0, tree.Radius())
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads points", func(t *testing.T) {
		tree, err := Load(pointSource{points: []models.Point{
			models.NewPoint(1, 2),
			models.NewPoint(3, 4),
		}})
		require.NoError(t, err)
		require.Equal(t, 2, tree.Len())
		require.Equal(t, 5.0, tree.FarthestDistance())
	})

	t.Run("propagates read errors", func(t *testing.T) {
		tree, err := Load(pointSource{err: errors.New("disk on fire")})
		require.Error(t, err)
		require.Nil(t, tree)
		require.True(t, errors.IsType(err, ErrTypeLoad))
	})
}

func TestNodeContains(t *testing.T) {
	n := newBucket(models.Zero, 10)

	require.True(t, n.contains(models.Zero))
	require.True(t, n.contains(models.NewPoint(5, 5)))

	require.False(t, n.contains(models.NewPoint(100, 0)))
	require.False(t, n.contains(models.NewPoint(0, 50)))
	require.False(t, n.contains(models.NewPoint(20, 20)))

	require.False(t, n.contains(models.NewPoint(10, 0)))
	require.True(t, n.contains(models.NewPoint(-10, 0)))
	require.False(t, n.contains(models.NewPoint(0, 10)))
	require.True(t, n.contains(models.NewPoint(0, -10)))
}

func TestNodeLowerBound(t *testing.T) {
	n := newBucket(models.Zero, 10)

	require.Equal(t, 0.0, n.lowerBound(models.Zero))
	require.Equal(t, 0.0, n.lowerBound(models.NewPoint(10, 0)))
	require.Equal(t, 0.0, n.lowerBound(models.NewPoint(10, 10)))

	require.Equal(t, 10.0, n.lowerBound(models.NewPoint(20, 0)))
	require.Equal(t, 10.0, n.lowerBound(models.NewPoint(20, 10)))
	require.Equal(t, 10.0, n.lowerBound(models.NewPoint(0, -20)))
	require.InDelta(t, math.Sqrt(200), n.lowerBound(models.NewPoint(20, 20)), 1e-9)
	require.InDelta(t, math.Sqrt(200), n.lowerBound(models.NewPoint(-20, -20)), 1e-9)
}

func TestNodeIsEmpty(t *testing.T) {
	bucket := newBucket(models.Zero, 10)
	require.True(t, bucket.isEmpty())
	bucket.add(models.Zero, Capacity)
	require.False(t, bucket.isEmpty())

	split := newSplit(models.Zero, 10)
	require.True(t, split.isEmpty())
	split.add(models.Zero, Capacity)
	require.False(t, split.isEmpty())
}

func TestNodeNearest(t *testing.T) {
	nearest := func(n *node, q models.Point) float64 {
		var best candidate
		n.nearest(q, &best)
		require.True(t, best.ok)
		return best.distance
	}

	t.Run("bucket", func(t *testing.T) {
		n := newBucket(models.Zero, 10)

		var best candidate
		n.nearest(models.Zero, &best)
		require.False(t, best.ok)

		n.add(models.Zero, Capacity)
		require.Equal(t, 0.0, nearest(&n, models.Zero))
		require.Equal(t, 1.0, nearest(&n, models.NewPoint(1, 0)))

		n.add(models.NewPoint(8, 0), Capacity)
		require.Equal(t, 1.0, nearest(&n, models.NewPoint(1, 0)))
		require.Equal(t, 2.0, nearest(&n, models.NewPoint(6, 0)))
		require.Equal(t, 2.0, nearest(&n, models.NewPoint(10, 0)))
	})

	t.Run("one zone", func(t *testing.T) {
		n := newSplit(models.Zero, 10)
		n.add(models.NewPoint(1, 0), Capacity)

		require.Equal(t, 1.0, nearest(&n, models.NewPoint(1, 1)))
		require.Equal(t, 3.0, nearest(&n, models.NewPoint(4, 0)))
		require.Equal(t, 5.0, nearest(&n, models.NewPoint(-4, 0)))
	})

	t.Run("two zones", func(t *testing.T) {
		n := newSplit(models.Zero, 10)
		n.add(models.NewPoint(4, 0), Capacity)
		n.add(models.NewPoint(-8, 0), Capacity)

		require.Equal(t, 1.0, nearest(&n, models.NewPoint(5, 0)))
		require.Equal(t, 2.0, nearest(&n, models.NewPoint(2, 0)))
		require.Equal(t, 5.0, nearest(&n, models.NewPoint(-1, 0)))
		require.Equal(t, 3.0, nearest(&n, models.NewPoint(-5, 0)))
		require.Equal(t, 6.0, nearest(&n, models.NewPoint(4, 6)))
		require.Equal(t, 6.0, nearest(&n, models.NewPoint(4, -6)))
	})

	t.Run("all zones", func(t *testing.T) {
		n := newSplit(models.Zero, 10)
		n.add(models.NewPoint(5, 5), Capacity)
		n.add(models.NewPoint(5, -5), Capacity)
		n.add(models.NewPoint(-5, -5), Capacity)
		n.add(models.NewPoint(-5, 5), Capacity)

		require.Equal(t, 1.0, nearest(&n, models.NewPoint(6, 5)))
		require.Equal(t, 1.0, nearest(&n, models.NewPoint(6, -5)))
		require.Equal(t, 1.0, nearest(&n, models.NewPoint(-6, -5)))
		require.Equal(t, 1.0, nearest(&n, models.NewPoint(-6, 5)))

		require.InDelta(t, math.Sqrt(50), nearest(&n, models.Zero), 1e-9)
		require.InDelta(t, math.Sqrt(32), nearest(&n, models.NewPoint(1, 1)), 1e-9)
		require.InDelta(t, math.Sqrt(32), nearest(&n, models.NewPoint(1, -1)), 1e-9)
		require.InDelta(t, math.Sqrt(32), nearest(&n, models.NewPoint(-1, -1)), 1e-9)
		require.InDelta(t, math.Sqrt(32), nearest(&n, models.NewPoint(-1, 1)), 1e-9)
	})

	t.Run("query outside of node", func(t *testing.T) {
		n := newSplit(models.Zero, 10)
		n.add(models.NewPoint(9, 9), Capacity)
		n.add(models.NewPoint(-9, -9), Capacity)

		require.InDelta(t, math.Sqrt(2), nearest(&n, models.NewPoint(10, 10)), 1e-9)
		require.Equal(t, 11.0, nearest(&n, models.NewPoint(-20, -9)))
	})
}

func TestDebugInfo(t *testing.T) {
	tree := New(WithCapacity(1))
	require.Equal(t, index.DebugInfo{
		Depth:       1,
		BucketCount: 4,
		SplitCount:  1,
		Radius:      DefaultMinRadius * 2,
	}, tree.DebugInfo())

	tree.AddPoint(models.NewPoint(100, 100))
	tree.AddPoint(models.NewPoint(600, 600))

	info := tree.DebugInfo()
	require.Equal(t, 2, info.SplitCount)
	require.Equal(t, 7, info.BucketCount)
	require.Equal(t, 2, info.Depth)
	require.Equal(t, 2, info.PointCount)
	require.Equal(t, 1, info.MaxBucket)
}

func BenchmarkQuadTreeNearest(b *testing.B) {
	rnd := rand.New(rand.NewPCG(17, 17))
	tree := New()
	for _, p := range randomPoints(rnd, 100000, 990) {
		tree.AddPoint(p)
	}
	queries := randomPoints(rnd, 1024, 990)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Nearest(queries[i%len(queries)])
	}
}

func BenchmarkQuadTreeAddPoint(b *testing.B) {
	rnd := rand.New(rand.NewPCG(17, 17))
	points := randomPoints(rnd, 100000, 990)

	b.ResetTimer()
	tree := New()
	for i := 0; i < b.N; i++ {
		if i%len(points) == 0 {
			tree = New()
		}
		tree.AddPoint(points[i%len(points)])
	}
}
