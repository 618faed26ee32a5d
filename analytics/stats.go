package analytics

import "math"

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleVariance is the unbiased (n-1) variance. Fewer than two values give 0.
func SampleVariance(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return ss / float64(n-1)
}

func SampleStdDev(values []float64) float64 {
	return math.Sqrt(SampleVariance(values))
}

// NormalCDF is the standard normal cumulative distribution function.
func NormalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// safeRatio returns num/den, or fallback when den is zero.
func safeRatio(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	return num / den
}

func floatPtr(v float64) *float64 {
	return &v
}
