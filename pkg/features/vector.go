package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Column-wide helpers. Masks select rows; assignment never changes length.

func where(values []float64, pred func(float64) bool) []bool {
	mask := make([]bool, len(values))
	for i, v := range values {
		mask[i] = pred(v)
	}
	return mask
}

func assign(values []float64, mask []bool, v float64) {
	for i, m := range mask {
		if m {
			values[i] = v
		}
	}
}

func indicator(mask []bool) []float64 {
	out := make([]float64, len(mask))
	for i, m := range mask {
		if m {
			out[i] = 1
		}
	}
	return out
}

func anyWithin(mask, within []bool) bool {
	for i, m := range mask {
		if m && within[i] {
			return true
		}
	}
	return false
}

func isMissing(v float64) bool { return math.IsNaN(v) }

// observed returns the non-missing values of the rows selected by mask
func observed(values []float64, mask []bool) []float64 {
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if mask[i] && !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// meanStdDev returns the mean and sample standard deviation of the
// non-missing values selected by mask. The standard deviation is NaN with
// fewer than two values.
func meanStdDev(values []float64, mask []bool) (mean, sd float64) {
	x := observed(values, mask)
	switch len(x) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return x[0], math.NaN()
	}
	return stat.MeanStdDev(x, nil)
}

// quantile returns the q quantile of the non-missing values selected by mask,
// interpolating linearly between the closest ranks: position (n-1)*q in the
// sorted values.
func quantile(values []float64, mask []bool, q float64) float64 {
	x := observed(values, mask)
	if len(x) == 0 {
		return math.NaN()
	}
	sort.Float64s(x)
	h := float64(len(x)-1) * q
	lo := int(math.Floor(h))
	if lo >= len(x)-1 {
		return x[len(x)-1]
	}
	if lo < 0 {
		return x[0]
	}
	return x[lo] + (h-float64(lo))*(x[lo+1]-x[lo])
}

// constantOver reports whether the rows selected by mask hold exactly one
// distinct value. Missing counts as a value of its own.
func constantOver(values []float64, mask []bool) bool {
	seen := false
	var first float64
	for i, v := range values {
		if !mask[i] {
			continue
		}
		if !seen {
			first, seen = v, true
			continue
		}
		if !sameValue(first, v) {
			return false
		}
	}
	return seen
}

// identical reports whether a and b agree on every row, treating missing as
// equal to missing
func identical(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameValue(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sameValue(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

// multiply stores the element-wise product of a and b in dst
func multiply(dst, a, b []float64) {
	for i := range a {
		dst[i] = a[i] * b[i]
	}
}
