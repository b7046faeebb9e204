package rectify

import (
	"errors"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOuterContours_Block(t *testing.T) {
	bin := binary(
		".....",
		".###.",
		".###.",
		".###.",
		".....",
	)

	contours := OuterContours(bin)
	require.Len(t, contours, 1)

	want := Contour{
		{1, 1}, {1, 2}, {1, 3}, {2, 3}, {3, 3}, {3, 2}, {3, 1}, {2, 1},
	}
	if diff := cmp.Diff(want, contours[0]); diff != "" {
		t.Errorf("contour mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 4.0, contours[0].Area(), 1e-9)
}

func TestOuterContours_DegenerateShapes(t *testing.T) {
	bin := binary(
		"#.....",
		"......",
		"..##..",
		"......",
	)

	contours := OuterContours(bin)
	require.Len(t, contours, 2)
	assert.Equal(t, Contour{{0, 0}}, contours[0])
	assert.Equal(t, Contour{{2, 2}, {3, 2}}, contours[1])
	assert.Zero(t, contours[0].Area())
	assert.Zero(t, contours[1].Area())
}

func TestOuterContours_DiagonalIsConnected(t *testing.T) {
	bin := binary(
		"#...",
		".#..",
		"..#.",
	)
	assert.Len(t, OuterContours(bin), 1, "8-connectivity joins diagonal pixels")
}

func TestLargestContour_FrameBeatsInnerDot(t *testing.T) {
	bin := binary(
		".........",
		".#######.",
		".#.....#.",
		".#.....#.",
		".#..#..#.",
		".#.....#.",
		".#.....#.",
		".#######.",
		".........",
	)

	contours := OuterContours(bin)
	require.Len(t, contours, 2)

	largest, err := LargestContour(contours)
	require.NoError(t, err)
	assert.InDelta(t, 36.0, largest.Area(), 1e-9)
	assert.Equal(t, image.Pt(1, 1), largest[0])
}

func TestLargestContour_Empty(t *testing.T) {
	_, err := LargestContour(nil)
	assert.True(t, errors.Is(err, ErrNoContour))

	_, err = FindCorners(binary("...", "..."))
	assert.ErrorIs(t, err, ErrNoContour)
}

func TestExtremeCorners_FirstPointWinsTies(t *testing.T) {
	// (2,0), (0,2) and (1,1) all have x+y == 2; the first one is kept.
	c := Contour{{2, 0}, {0, 2}, {1, 1}, {4, 4}, {6, 0}, {0, 6}}
	q := ExtremeCorners(c)

	assert.Equal(t, Pt(2, 0), q[TopLeft])
	assert.Equal(t, Pt(6, 0), q[TopRight])
	assert.Equal(t, Pt(4, 4), q[BottomRight])
	assert.Equal(t, Pt(0, 6), q[BottomLeft])
}

func TestExtremeCorners_Block(t *testing.T) {
	bin := binary(
		".....",
		".###.",
		".###.",
		".###.",
		".....",
	)
	q, err := FindCorners(bin)
	require.NoError(t, err)
	assert.Equal(t, Quad{Pt(1, 1), Pt(3, 1), Pt(3, 3), Pt(1, 3)}, q)
}

func TestFindCorners_SkewedSlide(t *testing.T) {
	want := Quad{Pt(40, 30), Pt(260, 45), Pt(250, 190), Pt(50, 180)}
	q, err := FindCorners(BinarizeOtsu(scene(300, 220, want)))
	require.NoError(t, err)
	assertQuadNear(t, want, q, 3)
}
