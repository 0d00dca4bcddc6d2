package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitroute/splitroute/internal/model"
)

func TestAnalyzeABTest_SignificantWinner(t *testing.T) {
	t.Parallel()

	stats := []model.VariantStats{
		{Label: "A", Clicks: 1000, Conversions: 50},
		{Label: "B", Clicks: 1000, Conversions: 80},
	}

	results := AnalyzeABTest(stats)
	require.Len(t, results, 2)

	control := results[0]
	assert.True(t, control.IsControl)
	assert.Equal(t, "A", control.Label)
	assert.InDelta(t, 0.05, control.ConversionRate, 1e-9)

	variant := results[1]
	assert.False(t, variant.IsControl)
	assert.InDelta(t, 0.08, variant.ConversionRate, 1e-9)
	assert.Greater(t, variant.ZScore, 2.0)
	assert.Less(t, variant.PValue, 0.05)
	assert.True(t, variant.IsSignificant)
	assert.InDelta(t, 60.0, variant.Lift, 1e-6)
	assert.Greater(t, variant.Confidence, 95.0)
}

func TestAnalyzeABTest_IdenticalVariants(t *testing.T) {
	t.Parallel()

	stats := []model.VariantStats{
		{Label: "A", Clicks: 500, Conversions: 25},
		{Label: "B", Clicks: 500, Conversions: 25},
	}

	results := AnalyzeABTest(stats)
	require.Len(t, results, 2)

	variant := results[1]
	assert.InDelta(t, 0, variant.ZScore, 1e-9)
	assert.InDelta(t, 1, variant.PValue, 1e-6)
	assert.False(t, variant.IsSignificant)
	assert.InDelta(t, 0, variant.Lift, 1e-9)
}

func TestAnalyzeABTest_SmallSampleNotSignificant(t *testing.T) {
	t.Parallel()

	// Same rates as the significant case, a hundredth of the volume.
	stats := []model.VariantStats{
		{Label: "A", Clicks: 10, Conversions: 1},
		{Label: "B", Clicks: 10, Conversions: 2},
	}

	results := AnalyzeABTest(stats)
	require.Len(t, results, 2)
	assert.False(t, results[1].IsSignificant)
	assert.GreaterOrEqual(t, results[1].PValue, 0.05)
}

func TestAnalyzeABTest_ZeroClicksDegradeGracefully(t *testing.T) {
	t.Parallel()

	stats := []model.VariantStats{
		{Label: "A", Clicks: 0, Conversions: 0},
		{Label: "B", Clicks: 100, Conversions: 10},
	}

	results := AnalyzeABTest(stats)
	require.Len(t, results, 2)

	assert.Zero(t, results[0].ConversionRate)
	assert.Zero(t, results[1].ZScore)
	// Zero control rate: lift is undefined and reported as zero.
	assert.Zero(t, results[1].Lift)
}

func TestAnalyzeABTest_Empty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, AnalyzeABTest(nil))
}

func TestAnalyzeABTest_ControlOnly(t *testing.T) {
	t.Parallel()

	results := AnalyzeABTest([]model.VariantStats{{Label: "A", Clicks: 100, Conversions: 10}})
	require.Len(t, results, 1)
	assert.True(t, results[0].IsControl)
}

func TestErfApprox(t *testing.T) {
	t.Parallel()

	// Against math.Erf; the approximation is good to ~1.5e-7.
	for _, x := range []float64{-3, -1.5, -0.5, 0, 0.5, 1, 1.96, 3} {
		assert.InDelta(t, math.Erf(x), erfApprox(x), 2e-7, "x = %v", x)
	}
}

func TestNormalCDF(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.5, normalCDF(0), 1e-7)
	assert.InDelta(t, 0.975, normalCDF(1.96), 1e-4)
	assert.InDelta(t, 0.025, normalCDF(-1.96), 1e-4)
}
