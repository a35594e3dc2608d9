// Package grid grows a snowflake by diffusion-limited aggregation on a square
// lattice.
//
// Particles enter from a random edge of the lattice and walk one cell at a
// time in one of the four axis directions until they touch an occupied cell.
package grid

import (
	"math/rand/v2"

	"github.com/aukilabs/snowflake/models"
)

// Width is the number of cells on each side of the lattice.
const Width = 500

type cell struct {
	x, y int
}

// Grid is a square lattice seeded with a single occupied cell at its center.
// It is not safe for concurrent use.
type Grid struct {
	cells    [Width][Width]bool
	count    int
	rnd      *rand.Rand
	observer func(models.Point)
}

// New returns a lattice whose walks draw from rnd.
func New(rnd *rand.Rand) *Grid {
	g := &Grid{rnd: rnd}
	g.cells[Width/2][Width/2] = true
	g.count = 1
	return g
}

// OnPoint registers a function called with every newly occupied cell.
func (g *Grid) OnPoint(f func(models.Point)) {
	g.observer = f
}

// AddPoint walks a particle until it sticks and returns the cell it occupies.
func (g *Grid) AddPoint() models.Point {
	c := g.start()
	for !g.touchesFlake(c) {
		c = g.next(c)
	}

	p := models.NewPoint(float64(c.x), float64(c.y))
	if !g.cells[c.x][c.y] {
		g.cells[c.x][c.y] = true
		g.count++

		if g.observer != nil {
			g.observer(p)
		}
	}
	return p
}

// AddPoints sticks n particles.
func (g *Grid) AddPoints(n int) {
	for i := 0; i < n; i++ {
		g.AddPoint()
	}
}

// Points returns the occupied cells ordered by row then column.
func (g *Grid) Points() []models.Point {
	points := make([]models.Point, 0, g.count)
	for y := 0; y < Width; y++ {
		for x := 0; x < Width; x++ {
			if g.cells[x][y] {
				points = append(points, models.NewPoint(float64(x), float64(y)))
			}
		}
	}
	return points
}

// Len returns the number of occupied cells.
func (g *Grid) Len() int {
	return g.count
}

func (g *Grid) start() cell {
	switch g.rnd.IntN(4) {
	case 0:
		return cell{x: g.rnd.IntN(Width), y: 0}
	case 1:
		return cell{x: Width - 1, y: g.rnd.IntN(Width)}
	case 2:
		return cell{x: g.rnd.IntN(Width), y: Width - 1}
	default:
		return cell{x: 0, y: g.rnd.IntN(Width)}
	}
}

func (g *Grid) next(c cell) cell {
	switch g.rnd.IntN(4) {
	case 0:
		c.y = max(c.y-1, 0)
	case 1:
		c.x = min(c.x+1, Width-1)
	case 2:
		c.y = min(c.y+1, Width-1)
	default:
		c.x = max(c.x-1, 0)
	}
	return c
}

func (g *Grid) touchesFlake(c cell) bool {
	return (c.y > 0 && g.cells[c.x][c.y-1]) ||
		(c.x < Width-1 && g.cells[c.x+1][c.y]) ||
		(c.y < Width-1 && g.cells[c.x][c.y+1]) ||
		(c.x > 0 && g.cells[c.x-1][c.y])
}
