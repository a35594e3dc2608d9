package orbtree

import (
	"math/rand/v2"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/snowflake/index"
	"github.com/aukilabs/snowflake/index/linear"
	"github.com/aukilabs/snowflake/models"
	"github.com/stretchr/testify/require"
)

var (
	_ index.Index   = (*Index)(nil)
	_ index.Bounded = (*Index)(nil)
)

func TestIndexScenario(t *testing.T) {
	idx := New(1000)
	require.True(t, idx.IsEmpty())

	_, _, ok := idx.Nearest(models.Zero)
	require.False(t, ok)

	idx.AddPoint(models.NewPoint(0, 0))
	idx.AddPoint(models.NewPoint(0, 1))

	p, d, ok := idx.Nearest(models.NewPoint(6, 0))
	require.True(t, ok)
	require.Equal(t, models.Zero, p)
	require.Equal(t, 6.0, d)

	idx.AddPoint(models.NewPoint(10, 0))
	p, d, _ = idx.Nearest(models.NewPoint(6, 0))
	require.Equal(t, models.NewPoint(10, 0), p)
	require.Equal(t, 4.0, d)
	require.Equal(t, 10.0, idx.FarthestDistance())
	require.Equal(t, 3, idx.Len())
	require.Equal(t, 1000.0, idx.Radius())
	require.False(t, idx.CanGrow())
}

func TestIndexAddPointOutOfBounds(t *testing.T) {
	idx := New(10)

	var recovered any
	func() {
		defer func() {
			recovered = recover()
		}()
		idx.AddPoint(models.NewPoint(11, 0))
	}()

	err, ok := recovered.(error)
	require.True(t, ok)
	require.True(t, errors.IsType(err, ErrTypeOutOfBounds))
	require.True(t, idx.IsEmpty())
}

func TestIndexMatchesLinearScan(t *testing.T) {
	rnd := rand.New(rand.NewPCG(5, 8))
	idx := New(1000)
	oracle := linear.New()

	for i := 0; i < 3000; i++ {
		p := models.NewPoint(rnd.Float64()*1800-900, rnd.Float64()*1800-900)
		idx.AddPoint(p)
		oracle.AddPoint(p)
	}

	for i := 0; i < 500; i++ {
		q := models.NewPoint(rnd.Float64()*2000-1000, rnd.Float64()*2000-1000)
		_, want, _ := oracle.Nearest(q)
		_, got, ok := idx.Nearest(q)
		require.True(t, ok)
		require.InDelta(t, want, got, 1e-9)
	}
}
