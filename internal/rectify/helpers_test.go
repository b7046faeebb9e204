package rectify

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

var (
	slideColor = color.RGBA{235, 235, 230, 255}
	wallColor  = color.RGBA{30, 32, 35, 255}
)

// scene draws the convex quad q filled with slideColor on a wallColor
// background, approximating a photographed slide.
func scene(w, h int, q Quad) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := wallColor
			if insideConvex(q, Pt(float64(x), float64(y))) {
				c = slideColor
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func insideConvex(q Quad, p Point) bool {
	for i := 0; i < 4; i++ {
		a, b := q[i], q[(i+1)%4]
		if (b.X-a.X)*(p.Y-a.Y)-(b.Y-a.Y)*(p.X-a.X) < 0 {
			return false
		}
	}
	return true
}

// binary builds a *image.Gray from rows of '#' (foreground) and '.'.
func binary(rows ...string) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, len(rows[0]), len(rows)))
	for y, row := range rows {
		for x, ch := range row {
			if ch == '#' {
				img.Pix[y*img.Stride+x] = Foreground
			}
		}
	}
	return img
}

func writeScene(t *testing.T, dir, name string, q Quad) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, scene(300, 220, q)))
	return path
}

var approxQuad = cmpopts.EquateApprox(0, 1e-9)

func assertQuadNear(t *testing.T, want, got Quad, tol float64) {
	t.Helper()
	for i := range want {
		if want[i].Dist(got[i]) > tol {
			t.Errorf("corner %d: got %v, want %v (tolerance %g)\nall: %v", i, got[i], want[i], tol, got)
		}
	}
}

func quadDiff(want, got Quad) string {
	return cmp.Diff(want, got, approxQuad)
}
