package plan

import "github.com/jamesainslie/multifocus/pkg/multifocus/sweep"

// Select reduces peak candidates to at most n focus positions.
//
// When n covers every candidate, all of them are kept in ascending index
// order. Otherwise the n sharpest candidates win, one at a time, the lowest
// index breaking ties; each candidate is used once. scores is indexed by
// sample index. The returned count is the number of positions selected,
// which is lower than n when fewer peaks were observed.
func Select(candidates []int, scores []int64, n int, geom sweep.Geometry) (List, int) {
	var out List

	if n > MaxPlans {
		n = MaxPlans
	}
	if n <= 0 {
		return out, 0
	}

	if n >= len(candidates) {
		for _, idx := range candidates {
			if err := out.Append(geom.PositionOf(idx)); err != nil {
				break
			}
		}
		return out, out.Len()
	}

	consumed := make([]bool, len(candidates))
	for round := 0; round < n; round++ {
		best := -1
		for j, idx := range candidates {
			if consumed[j] {
				continue
			}
			if best < 0 || scoreAt(scores, idx) > scoreAt(scores, candidates[best]) {
				best = j
			}
		}
		if best < 0 {
			break
		}
		consumed[best] = true
		_ = out.Append(geom.PositionOf(candidates[best]))
	}
	return out, out.Len()
}

func scoreAt(scores []int64, i int) int64 {
	if i < 0 || i >= len(scores) {
		return 0
	}
	return scores[i]
}
