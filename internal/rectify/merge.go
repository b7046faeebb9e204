package rectify

// MergeStrategy names the branch MergeCorners took.
type MergeStrategy string

const (
	// MergeAgreed means all four corner pairs agreed and were averaged.
	MergeAgreed MergeStrategy = "agreed"
	// MergeTopEdge means three corners agreed and the top edges matched.
	MergeTopEdge MergeStrategy = "top-edge"
	// MergeBottomEdge means three corners agreed and the bottom edges matched.
	MergeBottomEdge MergeStrategy = "bottom-edge"
	// MergeOtsu means the Otsu estimate was used whole.
	MergeOtsu MergeStrategy = "otsu"
	// MergeAdaptive means the adaptive estimate was used whole.
	MergeAdaptive MergeStrategy = "adaptive"
)

// pick returns p when it is farther than t from q, else their midpoint.
func pick(p, q Point, t float64) Point {
	if p.Dist(q) > t {
		return p
	}
	return p.Mid(q)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// MergeCorners reconciles the Otsu estimate a with the adaptive estimate b.
//
// Corner pairs closer than t are averaged; four such pairs are returned as is.
// With exactly three, the top edge (corners 0-1) and bottom edge (corners
// 2-3) lengths of both estimates are compared. If the top edges agree their
// corners are averaged and the bottom pair comes from whichever estimate's
// bottom edge matches the averaged top length. Otherwise, if the bottom edges
// agree, the roles are swapped. Any outcome short of four points falls back
// to a whole estimate: a when some corner of b has a zero coordinate (a
// border-hugging adaptive contour), b otherwise.
func MergeCorners(a, b Quad, t float64) (Quad, MergeStrategy) {
	var merged []Point
	for i := range a {
		if a[i].Dist(b[i]) < t {
			merged = append(merged, a[i].Mid(b[i]))
		}
	}
	if len(merged) == 4 {
		return Quad{merged[0], merged[1], merged[2], merged[3]}, MergeAgreed
	}

	var strategy MergeStrategy
	if len(merged) == 3 {
		merged = merged[:0]
		ab1, ab2 := a[0].Dist(a[1]), b[0].Dist(b[1])
		cd1, cd2 := a[2].Dist(a[3]), b[2].Dist(b[3])

		switch {
		case abs(ab1-ab2) < t:
			strategy = MergeTopEdge
			merged = append(merged, a[0].Mid(b[0]), a[1].Mid(b[1]))
			basic := (ab1 + ab2) / 2
			if abs(cd1-basic) < t {
				merged = append(merged, pick(a[2], b[2], t), pick(a[3], b[3], t))
			} else if abs(cd2-basic) < t {
				merged = append(merged, pick(b[2], a[2], t), pick(b[3], a[3], t))
			}
		case abs(cd1-cd2) < t:
			strategy = MergeBottomEdge
			basic := (cd1 + cd2) / 2
			if abs(ab1-basic) < t {
				merged = append(merged, pick(a[0], b[0], t), pick(a[1], b[1], t))
			} else if abs(ab2-basic) < t {
				merged = append(merged, pick(b[0], a[0], t), pick(b[1], a[1], t))
			}
			merged = append(merged, a[2].Mid(b[2]), a[3].Mid(b[3]))
		}
	}

	if len(merged) == 4 {
		return Quad{merged[0], merged[1], merged[2], merged[3]}, strategy
	}
	if b.hasZeroCoordinate() {
		return a, MergeOtsu
	}
	return b, MergeAdaptive
}
