package models

import (
	"math"
	"strconv"
)

// Zero is the origin.
var Zero = Point{}

// Point is an immutable 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint returns the point at the given coordinates.
func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Distance returns the Euclidean distance between p and other.
func (p Point) Distance(other Point) float64 {
	return math.Sqrt(p.Distance2(other))
}

// Distance2 returns the squared Euclidean distance between p and other.
func (p Point) Distance2(other Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return dx*dx + dy*dy
}

// Norm returns the distance from the origin.
func (p Point) Norm() float64 {
	return p.Distance(Zero)
}

// Rotate returns p rotated counterclockwise around the origin.
func (p Point) Rotate(angle float64) Point {
	sin, cos := math.Sincos(angle)
	return Point{
		X: p.X*cos - p.Y*sin,
		Y: p.X*sin + p.Y*cos,
	}
}

// MirrorX returns p mirrored across the x-axis.
func (p Point) MirrorX() Point {
	return Point{X: p.X, Y: -p.Y}
}

func (p Point) String() string {
	return "(" + strconv.FormatFloat(p.X, 'g', -1, 64) + ", " + strconv.FormatFloat(p.Y, 'g', -1, 64) + ")"
}
