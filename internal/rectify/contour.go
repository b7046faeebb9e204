package rectify

import (
	"errors"
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrNoContour is returned when a binary image has no foreground pixel.
var ErrNoContour = errors.New("no contour found")

// Contour is an outer border as an ordered list of pixel positions.
type Contour []image.Point

// Area returns the polygon area enclosed by the contour.
func (c Contour) Area() float64 {
	if len(c) < 3 {
		return 0
	}
	ring := make(orb.Ring, 0, len(c)+1)
	for _, p := range c {
		ring = append(ring, orb.Point{float64(p.X), float64(p.Y)})
	}
	ring = append(ring, ring[0])
	return math.Abs(planar.Area(ring))
}

// Neighbor offsets, clockwise on screen starting east.
var neighbors = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

const west = 4

// OuterContours returns the outer border of every 8-connected foreground
// component of bin, in raster order of each component's first pixel.
//
// Each border starts at its component's top-most, left-most pixel and runs
// down the left side first, the way border following reports outer borders.
func OuterContours(bin *image.Gray) []Contour {
	b := bin.Bounds()
	w, h := b.Dx(), b.Dy()
	fg := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h &&
			bin.Pix[bin.PixOffset(b.Min.X+x, b.Min.Y+y)] != Background
	}

	labels := make([]int32, w*h)
	var (
		contours []Contour
		next     int32
		queue    []image.Point
	)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !fg(x, y) || labels[y*w+x] != 0 {
				continue
			}
			next++
			labels[y*w+x] = next
			queue = append(queue[:0], image.Pt(x, y))
			for len(queue) > 0 {
				p := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				for _, d := range neighbors {
					q := p.Add(d)
					if fg(q.X, q.Y) && labels[q.Y*w+q.X] == 0 {
						labels[q.Y*w+q.X] = next
						queue = append(queue, q)
					}
				}
			}
			contours = append(contours, traceBorder(fg, image.Pt(x, y)))
		}
	}
	return contours
}

// traceBorder follows the outer border starting at start, whose west
// neighbor is known to be background.
func traceBorder(fg func(x, y int) bool, start image.Point) Contour {
	isFg := func(p image.Point) bool { return fg(p.X, p.Y) }

	first := -1
	for k := 0; k < 8; k++ {
		d := (west + k) % 8
		if isFg(start.Add(neighbors[d])) {
			first = d
			break
		}
	}
	if first < 0 {
		return Contour{start}
	}

	second := start.Add(neighbors[first])
	contour := Contour{}
	cur, back := start, first
	for {
		var nextDir int
		for k := 1; k <= 8; k++ {
			d := (back - k + 16) % 8
			if isFg(cur.Add(neighbors[d])) {
				nextDir = d
				break
			}
		}
		next := cur.Add(neighbors[nextDir])
		contour = append(contour, cur)
		if next == start && cur == second {
			return contour
		}
		back = (nextDir + 4) % 8
		cur = next
	}
}

// LargestContour returns the contour with the largest enclosed area. The
// earliest contour wins ties.
func LargestContour(contours []Contour) (Contour, error) {
	if len(contours) == 0 {
		return nil, ErrNoContour
	}
	best, bestArea := contours[0], contours[0].Area()
	for _, c := range contours[1:] {
		if a := c.Area(); a > bestArea {
			best, bestArea = c, a
		}
	}
	return best, nil
}

// ExtremeCorners picks the four diagonal extremes of c. The first point
// reaching an extreme is kept on ties.
func ExtremeCorners(c Contour) Quad {
	p0 := c[0]
	tl, tr, br, bl := p0, p0, p0, p0
	sumMin, sumMax := p0.X+p0.Y, p0.X+p0.Y
	diffMin, diffMax := p0.X-p0.Y, p0.X-p0.Y

	for _, p := range c[1:] {
		sum, diff := p.X+p.Y, p.X-p.Y
		if sum > sumMax {
			sumMax, br = sum, p
		}
		if sum < sumMin {
			sumMin, tl = sum, p
		}
		if diff < diffMin {
			diffMin, bl = diff, p
		}
		if diff > diffMax {
			diffMax, tr = diff, p
		}
	}

	toPt := func(p image.Point) Point { return Pt(float64(p.X), float64(p.Y)) }
	return Quad{toPt(tl), toPt(tr), toPt(br), toPt(bl)}
}

// FindCorners returns the extreme corners of the largest outer contour of bin.
func FindCorners(bin *image.Gray) (Quad, error) {
	largest, err := LargestContour(OuterContours(bin))
	if err != nil {
		return Quad{}, err
	}
	return ExtremeCorners(largest), nil
}
