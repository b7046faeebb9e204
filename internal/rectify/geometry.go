package rectify

import (
	"fmt"
	"math"
)

// Point is a 2-D image coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Mid returns the midpoint of p and q.
func (p Point) Mid(q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

func (p Point) String() string {
	return fmt.Sprintf("(%g,%g)", p.X, p.Y)
}

// Corner indexes into a Quad.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// Quad is a quadrilateral ordered top-left, top-right, bottom-right,
// bottom-left.
type Quad [4]Point

// Rect returns the upright quad covering a w x h image, matching pixel centers
// at the extreme rows and columns.
func Rect(w, h int) Quad {
	return Quad{
		Pt(0, 0),
		Pt(float64(w-1), 0),
		Pt(float64(w-1), float64(h-1)),
		Pt(0, float64(h-1)),
	}
}

// hasZeroCoordinate reports whether any corner lies on the top or left image edge.
func (q Quad) hasZeroCoordinate() bool {
	for _, p := range q {
		if p.X == 0 || p.Y == 0 {
			return true
		}
	}
	return false
}
