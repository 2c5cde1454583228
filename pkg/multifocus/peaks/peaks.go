// Package peaks finds local sharpness maxima in a sweep's sample curve.
package peaks

// MaxCandidates bounds the number of peaks reported by Detect.
const MaxCandidates = 50

// Detect returns the indices of strict local maxima, in increasing order.
//
// With d[i] = s[i+1] - s[i], a rise followed by a fall (d[i] > 0 and
// d[i+1] < 0) marks a peak at sample i+1. Plateaus are not peaks. At most
// MaxCandidates indices are returned.
func Detect(samples []int64) []int {
	var out []int
	for i := 0; i+2 < len(samples); i++ {
		rising := samples[i+1]-samples[i] > 0
		falling := samples[i+2]-samples[i+1] < 0
		if rising && falling {
			out = append(out, i+1)
			if len(out) == MaxCandidates {
				break
			}
		}
	}
	return out
}

// GlobalMax returns the index of the largest of the first n samples, the
// lowest index on ties. It returns -1 when there is nothing to look at.
func GlobalMax(samples []int64, n int) int {
	if n > len(samples) {
		n = len(samples)
	}
	best := -1
	for i := 0; i < n; i++ {
		if best < 0 || samples[i] > samples[best] {
			best = i
		}
	}
	return best
}
