package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoSampleZTestSignificantLift(t *testing.T) {
	res := TwoSampleZTest([]float64{100, 102, 98, 101}, []float64{80, 82, 78, 81})
	require.True(t, res.Sufficient())
	assert.Greater(t, *res.Z, 0.0)
	assert.Less(t, *res.PValue, 0.01)
	assert.InDelta(t, 1-*res.PValue, *res.Confidence, 1e-12)
	assert.InDelta(t, 100.25, *res.MeanCurrent, 1e-9)
	assert.InDelta(t, 80.25, *res.MeanBaseline, 1e-9)
	assert.Equal(t, "very high", res.Label())
}

func TestTwoSampleZTestInsufficient(t *testing.T) {
	cases := map[string][2][]float64{
		"empty current":   {nil, {1, 2, 3}},
		"single current":  {{5}, {1, 2, 3}},
		"single baseline": {{1, 2, 3}, {5}},
		"zero variance":   {{4, 4, 4}, {4, 4}},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			res := TwoSampleZTest(c[0], c[1])
			assert.False(t, res.Sufficient())
			assert.Nil(t, res.PValue)
			assert.Nil(t, res.Confidence)
			assert.Equal(t, "insufficient sample", res.Label())
		})
	}
}

func TestTwoSampleZTestIdenticalMeans(t *testing.T) {
	res := TwoSampleZTest([]float64{9, 11, 10}, []float64{8, 12, 10})
	require.True(t, res.Sufficient())
	assert.InDelta(t, 0.0, *res.Z, 1e-12)
	assert.InDelta(t, 1.0, *res.PValue, 1e-12)
	assert.Equal(t, "low", res.Label())
}

func TestTwoSampleZTestBounds(t *testing.T) {
	samples := [][]float64{
		{1, 2},
		{10, 12, 14, 9},
		{1000, 1, 500, 250, 750},
		{-3, 3, -3, 3},
	}
	for _, a := range samples {
		for _, b := range samples {
			res := TwoSampleZTest(a, b)
			if !res.Sufficient() {
				continue
			}
			assert.GreaterOrEqual(t, *res.PValue, 0.0)
			assert.LessOrEqual(t, *res.PValue, 1.0)
			assert.InDelta(t, 1.0, *res.PValue+*res.Confidence, 1e-12)
		}
	}
}

func TestStats(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-12)
	assert.Zero(t, SampleVariance([]float64{7}))
	assert.InDelta(t, 1.6666666667, SampleVariance([]float64{1, 2, 3, 4}), 1e-9)
	assert.InDelta(t, 0.5, NormalCDF(0), 1e-12)
	assert.InDelta(t, 0.975, NormalCDF(1.959964), 1e-6)
}
