package timeline

import "math"

// DefaultSnapTolerance bounds how far (in seconds) a dragged clip may jump to
// reach a legal snap point before the move is refused outright.
const DefaultSnapTolerance = 2.0

// ResolveSnap computes where a clip of the given duration may land on a track
// already occupied by others. Snap candidates are the track origin and the end
// time of every other clip; a candidate is legal when the dragged clip placed
// there overlaps nothing. Among legal candidates within tolerance of rawStart
// the nearest wins, ties going to the smaller value so the result is stable.
//
// The second return is false when no legal candidate is close enough: the
// caller must keep the clip where it was. A clip either lands exactly on a
// legal snap point or does not move at all; overlapping positions are never
// produced, even transiently.
func ResolveSnap(duration, rawStart, tolerance float64, others []Span) (float64, bool) {
	candidates := make([]float64, 0, len(others)+1)
	candidates = append(candidates, 0)
	for _, o := range others {
		candidates = append(candidates, o.End)
	}

	best := 0.0
	bestDist := math.Inf(1)
	found := false

	for _, cand := range candidates {
		if cand < 0 {
			continue
		}
		placed := Span{Start: cand, End: cand + duration}
		legal := true
		for _, o := range others {
			if placed.Overlaps(o) {
				legal = false
				break
			}
		}
		if !legal {
			continue
		}

		dist := math.Abs(cand - rawStart)
		if dist > tolerance {
			continue
		}
		if dist < bestDist || (dist == bestDist && cand < best) {
			best = cand
			bestDist = dist
			found = true
		}
	}

	return best, found
}
