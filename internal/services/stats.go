package services

import (
	"math"
	"slices"
)

// madScale makes the median absolute deviation comparable to a standard
// deviation for normally distributed data.
const madScale = 1.4826

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := slices.Clone(values)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// robustSpread returns the median and a spread estimate: the scaled MAD,
// or the mean absolute deviation from the median when more than half of
// the values are identical and the MAD collapses to zero.
func robustSpread(values []float64) (float64, float64) {
	m := median(values)
	dev := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		dev[i] = math.Abs(v - m)
		sum += dev[i]
	}
	if mad := median(dev) * madScale; mad > 0 {
		return m, mad
	}
	if len(values) == 0 {
		return m, 0
	}
	return m, sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
