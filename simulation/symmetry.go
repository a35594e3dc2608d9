package simulation

import (
	"math"
	"strconv"

	"github.com/aukilabs/snowflake/models"
)

// SymmetryType is the kind of symmetry applied to accepted particles.
type SymmetryType int

const (
	SymmetryNone SymmetryType = iota
	SymmetryRotational
	SymmetryReflectional
)

// Symmetry describes the images added to the flake for every particle that
// sticks.
type Symmetry struct {
	Type  SymmetryType
	Order int
}

// NoSymmetry adds particles as they stick.
func NoSymmetry() Symmetry {
	return Symmetry{}
}

// Rotational adds n copies of every particle, rotated by multiples of 2π/n
// around the origin.
func Rotational(n int) Symmetry {
	return Symmetry{Type: SymmetryRotational, Order: n}
}

// Reflectional adds the n rotations of every particle and the mirror image
// of each across the x-axis.
func Reflectional(n int) Symmetry {
	return Symmetry{Type: SymmetryReflectional, Order: n}
}

// ParseSymmetry returns the symmetry selected by the given orders. Rotational
// takes precedence when both are set. Zero for both means no symmetry.
func ParseSymmetry(rotational, reflectional int) Symmetry {
	if rotational > 0 {
		return Rotational(rotational)
	}
	if reflectional > 0 {
		return Reflectional(reflectional)
	}
	return NoSymmetry()
}

func (s Symmetry) String() string {
	switch s.Type {
	case SymmetryRotational:
		return "rotational(" + strconv.Itoa(s.Order) + ")"
	case SymmetryReflectional:
		return "reflectional(" + strconv.Itoa(s.Order) + ")"
	default:
		return "none"
	}
}

// Images returns p followed by its distinct symmetric images.
func (s Symmetry) Images(p models.Point) []models.Point {
	order := s.Order
	if s.Type == SymmetryNone || order < 1 {
		order = 1
	}

	images := make([]models.Point, 0, order*2)
	add := func(img models.Point) {
		for _, existing := range images {
			if existing == img {
				return
			}
		}
		images = append(images, img)
	}

	for k := 0; k < order; k++ {
		img := p
		if k > 0 {
			img = p.Rotate(2 * math.Pi * float64(k) / float64(order))
		}
		add(img)

		if s.Type == SymmetryReflectional {
			add(img.MirrorX())
		}
	}
	return images
}
