package rectify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeCorners(t *testing.T) {
	const threshold = 10

	tests := []struct {
		name     string
		otsu     Quad
		adaptive Quad
		want     Quad
		strategy MergeStrategy
	}{
		{
			name:     "all corners agree",
			otsu:     Quad{Pt(100, 100), Pt(300, 100), Pt(300, 250), Pt(100, 250)},
			adaptive: Quad{Pt(104, 102), Pt(296, 100), Pt(302, 254), Pt(100, 246)},
			want:     Quad{Pt(102, 101), Pt(298, 100), Pt(301, 252), Pt(100, 248)},
			strategy: MergeAgreed,
		},
		{
			name:     "top edges agree, otsu bottom edge matches",
			otsu:     Quad{Pt(100, 100), Pt(300, 100), Pt(300, 250), Pt(100, 250)},
			adaptive: Quad{Pt(102, 100), Pt(298, 100), Pt(302, 252), Pt(100, 280)},
			want:     Quad{Pt(101, 100), Pt(299, 100), Pt(301, 251), Pt(100, 250)},
			strategy: MergeTopEdge,
		},
		{
			name:     "top edges agree, adaptive bottom edge matches",
			otsu:     Quad{Pt(100, 100), Pt(300, 100), Pt(300, 250), Pt(160, 250)},
			adaptive: Quad{Pt(102, 100), Pt(298, 100), Pt(302, 252), Pt(100, 250)},
			want:     Quad{Pt(101, 100), Pt(299, 100), Pt(301, 251), Pt(100, 250)},
			strategy: MergeTopEdge,
		},
		{
			name:     "bottom edges agree, otsu top edge matches",
			otsu:     Quad{Pt(100, 100), Pt(300, 100), Pt(300, 250), Pt(100, 250)},
			adaptive: Quad{Pt(140, 100), Pt(301, 101), Pt(301, 251), Pt(101, 251)},
			want:     Quad{Pt(100, 100), Pt(300.5, 100.5), Pt(300.5, 250.5), Pt(100.5, 250.5)},
			strategy: MergeBottomEdge,
		},
		{
			name:     "bottom edges agree, adaptive top edge matches",
			otsu:     Quad{Pt(140, 100), Pt(300, 100), Pt(300, 250), Pt(100, 250)},
			adaptive: Quad{Pt(100, 100), Pt(301, 101), Pt(301, 251), Pt(101, 251)},
			want:     Quad{Pt(100, 100), Pt(300.5, 100.5), Pt(300.5, 250.5), Pt(100.5, 250.5)},
			strategy: MergeBottomEdge,
		},
		{
			name:     "three agree but no bottom edge matches",
			otsu:     Quad{Pt(100, 100), Pt(300, 100), Pt(330, 250), Pt(100, 250)},
			adaptive: Quad{Pt(101, 100), Pt(301, 100), Pt(331, 250), Pt(160, 250)},
			want:     Quad{Pt(101, 100), Pt(301, 100), Pt(331, 250), Pt(160, 250)},
			strategy: MergeAdaptive,
		},
		{
			name:     "adaptive hugs the border",
			otsu:     Quad{Pt(40, 30), Pt(260, 45), Pt(250, 190), Pt(50, 180)},
			adaptive: Quad{Pt(0, 0), Pt(299, 0), Pt(299, 219), Pt(0, 219)},
			want:     Quad{Pt(40, 30), Pt(260, 45), Pt(250, 190), Pt(50, 180)},
			strategy: MergeOtsu,
		},
		{
			name:     "estimates disagree, adaptive inside the frame",
			otsu:     Quad{Pt(40, 30), Pt(260, 45), Pt(250, 190), Pt(50, 180)},
			adaptive: Quad{Pt(10, 12), Pt(280, 14), Pt(281, 200), Pt(11, 205)},
			want:     Quad{Pt(10, 12), Pt(280, 14), Pt(281, 200), Pt(11, 205)},
			strategy: MergeAdaptive,
		},
		{
			name:     "two agree falls back",
			otsu:     Quad{Pt(100, 100), Pt(300, 100), Pt(300, 250), Pt(100, 250)},
			adaptive: Quad{Pt(101, 100), Pt(301, 100), Pt(340, 250), Pt(60, 250)},
			want:     Quad{Pt(101, 100), Pt(301, 100), Pt(340, 250), Pt(60, 250)},
			strategy: MergeAdaptive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, strategy := MergeCorners(tt.otsu, tt.adaptive, threshold)
			assert.Equal(t, tt.strategy, strategy)
			if diff := quadDiff(tt.want, got); diff != "" {
				t.Errorf("MergeCorners mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeCorners_ThresholdIsStrict(t *testing.T) {
	a := Quad{Pt(100, 100), Pt(300, 100), Pt(300, 250), Pt(100, 250)}
	b := Quad{Pt(110, 100), Pt(310, 100), Pt(310, 250), Pt(110, 250)}

	// Every pair is exactly 10 apart: none agree at threshold 10.
	_, strategy := MergeCorners(a, b, 10)
	assert.Equal(t, MergeAdaptive, strategy)

	got, strategy := MergeCorners(a, b, 10.001)
	assert.Equal(t, MergeAgreed, strategy)
	assert.Equal(t, Pt(105, 100), got[TopLeft])
}

func TestPick(t *testing.T) {
	p, q := Pt(0, 0), Pt(6, 8)
	assert.Equal(t, Pt(3, 4), pick(p, q, 10), "distance equal to the threshold averages")
	assert.Equal(t, p, pick(p, q, 9.99))
}
