package rectify

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// ErrDegenerateQuad is returned when four points do not define a projective
// mapping, for example when three of them are collinear.
var ErrDegenerateQuad = errors.New("degenerate quadrilateral")

// Matrix3 is a row-major 3x3 homography.
type Matrix3 [9]float64

// Apply maps p through m.
func (m Matrix3) Apply(p Point) Point {
	w := m[6]*p.X + m[7]*p.Y + m[8]
	return Point{
		X: (m[0]*p.X + m[1]*p.Y + m[2]) / w,
		Y: (m[3]*p.X + m[4]*p.Y + m[5]) / w,
	}
}

// Inverse returns the inverse of m.
func (m Matrix3) Inverse() (Matrix3, error) {
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[3], m[4], m[5]
	g, h, i := m[6], m[7], m[8]

	A := e*i - f*h
	B := -(d*i - f*g)
	C := d*h - e*g
	det := a*A + b*B + c*C
	if math.Abs(det) < 1e-12 {
		return Matrix3{}, ErrDegenerateQuad
	}
	inv := Matrix3{
		A, -(b*i - c*h), b*f - c*e,
		B, a*i - c*g, -(a*f - c*d),
		C, -(a*h - b*g), a*e - b*d,
	}
	for k := range inv {
		inv[k] /= det
	}
	return inv, nil
}

// PerspectiveTransform returns the homography mapping each src corner onto
// the matching dst corner.
func PerspectiveTransform(src, dst Quad) (Matrix3, error) {
	// Unknowns h0..h7 with h8 fixed at 1; two equations per correspondence.
	var a [8][9]float64
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a[2*i] = [9]float64{x, y, 1, 0, 0, 0, -u * x, -u * y, u}
		a[2*i+1] = [9]float64{0, 0, 0, x, y, 1, -v * x, -v * y, v}
	}

	for col := 0; col < 8; col++ {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-10 {
			return Matrix3{}, ErrDegenerateQuad
		}
		a[col], a[pivot] = a[pivot], a[col]

		for r := 0; r < 8; r++ {
			if r == col {
				continue
			}
			f := a[r][col] / a[col][col]
			for k := col; k < 9; k++ {
				a[r][k] -= f * a[col][k]
			}
		}
	}

	var m Matrix3
	for i := 0; i < 8; i++ {
		m[i] = a[i][8] / a[i][i]
	}
	m[8] = 1
	return m, nil
}

// Warp renders the w x h output of mapping img through m. Each output pixel
// is sampled bilinearly from the inverse-mapped source position; samples
// falling outside img are black.
func Warp(img image.Image, m Matrix3, w, h int) (*image.NRGBA, error) {
	inv, err := m.Inverse()
	if err != nil {
		return nil, err
	}

	src := imaging.Clone(img)
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	at := func(x, y int) color.NRGBA {
		if x < 0 || y < 0 || x >= sw || y >= sh {
			return color.NRGBA{A: 255}
		}
		return src.NRGBAAt(x, y)
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := inv.Apply(Pt(float64(x), float64(y)))
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
				out.SetNRGBA(x, y, color.NRGBA{A: 255})
				continue
			}
			x0, y0 := math.Floor(p.X), math.Floor(p.Y)
			fx, fy := p.X-x0, p.Y-y0
			ix, iy := int(x0), int(y0)

			c00, c10 := at(ix, iy), at(ix+1, iy)
			c01, c11 := at(ix, iy+1), at(ix+1, iy+1)
			lerp := func(v00, v10, v01, v11 uint8) uint8 {
				top := float64(v00)*(1-fx) + float64(v10)*fx
				bottom := float64(v01)*(1-fx) + float64(v11)*fx
				return uint8(math.Round(top*(1-fy) + bottom*fy))
			}
			out.SetNRGBA(x, y, color.NRGBA{
				R: lerp(c00.R, c10.R, c01.R, c11.R),
				G: lerp(c00.G, c10.G, c01.G, c11.G),
				B: lerp(c00.B, c10.B, c01.B, c11.B),
				A: lerp(c00.A, c10.A, c01.A, c11.A),
			})
		}
	}
	return out, nil
}
