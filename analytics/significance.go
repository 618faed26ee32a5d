package analytics

import "math"

// SignificanceResult is the outcome of a two-sample z-test. Every field is nil
// when the samples were too small (or degenerate) to test.
type SignificanceResult struct {
	Z            *float64 `json:"z"`
	PValue       *float64 `json:"p_value"`
	Confidence   *float64 `json:"confidence"`
	MeanCurrent  *float64 `json:"mean_current"`
	MeanBaseline *float64 `json:"mean_baseline"`
}

// Sufficient reports whether the test produced a result.
func (r SignificanceResult) Sufficient() bool {
	return r.Z != nil
}

// Label turns the confidence into a qualitative word for display.
func (r SignificanceResult) Label() string {
	if !r.Sufficient() {
		return "insufficient sample"
	}
	switch c := *r.Confidence; {
	case c >= 0.99:
		return "very high"
	case c >= 0.95:
		return "high"
	case c >= 0.80:
		return "moderate"
	default:
		return "low"
	}
}

// TwoSampleZTest compares the mean of current against baseline assuming
// independent samples:
//
//	z = (mean_c - mean_b) / sqrt(var_c/n_c + var_b/n_b)
//	p = 2 * (1 - Phi(|z|))
//
// Both samples need at least two observations. A zero standard error also
// yields the empty result since z would be undefined.
func TwoSampleZTest(current, baseline []float64) SignificanceResult {
	n1, n2 := len(current), len(baseline)
	if n1 < 2 || n2 < 2 {
		return SignificanceResult{}
	}

	m1, m2 := Mean(current), Mean(baseline)
	se := math.Sqrt(SampleVariance(current)/float64(n1) + SampleVariance(baseline)/float64(n2))
	if se == 0 || math.IsNaN(se) {
		return SignificanceResult{}
	}

	z := (m1 - m2) / se
	p := 2 * (1 - NormalCDF(math.Abs(z)))
	p = clamp(p, 0, 1)
	return SignificanceResult{
		Z:            floatPtr(z),
		PValue:       floatPtr(p),
		Confidence:   floatPtr(1 - p),
		MeanCurrent:  floatPtr(m1),
		MeanBaseline: floatPtr(m2),
	}
}
