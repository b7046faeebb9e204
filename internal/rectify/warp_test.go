package rectify

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerspectiveTransform_MapsCorners(t *testing.T) {
	src := Quad{Pt(40, 30), Pt(260, 45), Pt(250, 190), Pt(50, 180)}
	dst := Rect(800, 600)

	m, err := PerspectiveTransform(src, dst)
	require.NoError(t, err)

	for i := range src {
		got := m.Apply(src[i])
		assert.InDelta(t, dst[i].X, got.X, 1e-6, "corner %d x", i)
		assert.InDelta(t, dst[i].Y, got.Y, 1e-6, "corner %d y", i)
	}

	inv, err := m.Inverse()
	require.NoError(t, err)
	back := inv.Apply(m.Apply(Pt(120, 100)))
	assert.InDelta(t, 120, back.X, 1e-6)
	assert.InDelta(t, 100, back.Y, 1e-6)
}

func TestPerspectiveTransform_Identity(t *testing.T) {
	q := Rect(100, 50)
	m, err := PerspectiveTransform(q, q)
	require.NoError(t, err)

	want := Matrix3{1, 0, 0, 0, 1, 0, 0, 0, 1}
	for i := range want {
		assert.InDelta(t, want[i], m[i], 1e-9, "element %d", i)
	}
}

func TestPerspectiveTransform_Degenerate(t *testing.T) {
	collinear := Quad{Pt(0, 0), Pt(10, 0), Pt(20, 0), Pt(30, 0)}
	_, err := PerspectiveTransform(collinear, Rect(10, 10))
	assert.ErrorIs(t, err, ErrDegenerateQuad)

	_, err = Matrix3{}.Inverse()
	assert.ErrorIs(t, err, ErrDegenerateQuad)
}

func TestWarp_IdentityCopiesPixels(t *testing.T) {
	img := scene(30, 20, Quad{Pt(5, 5), Pt(25, 5), Pt(25, 15), Pt(5, 15)})

	out, err := Warp(img, Matrix3{1, 0, 0, 0, 1, 0, 0, 0, 1}, 30, 20)
	require.NoError(t, err)

	for _, p := range []image.Point{{0, 0}, {10, 10}, {25, 15}, {29, 19}} {
		want := img.RGBAAt(p.X, p.Y)
		got := out.NRGBAAt(p.X, p.Y)
		assert.Equal(t, color.NRGBA{want.R, want.G, want.B, want.A}, got, "pixel %v", p)
	}
}

func TestWarp_OutsideSourceIsBlack(t *testing.T) {
	img := scene(10, 10, Quad{Pt(0, 0), Pt(9, 0), Pt(9, 9), Pt(0, 9)})

	// Shift right by 20: the left of the output maps outside the source.
	out, err := Warp(img, Matrix3{1, 0, 20, 0, 1, 0, 0, 0, 1}, 40, 10)
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(5, 5))
	got := out.NRGBAAt(25, 5)
	assert.Equal(t, slideColor.R, got.R)
}
