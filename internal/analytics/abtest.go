package analytics

import (
	"math"

	"github.com/splitroute/splitroute/internal/model"
)

// significanceLevel is the two-tailed p-value below which a variant is
// reported significant.
const significanceLevel = 0.05

// AnalyzeABTest computes statistical significance for each variant
// against the control (the first entry) using a two-proportion z-test.
// Division-by-zero cases degrade to zero rates and zero z-scores
// rather than erroring.
func AnalyzeABTest(stats []model.VariantStats) []model.ABTestResult {
	if len(stats) == 0 {
		return nil
	}

	control := stats[0]
	controlRate := conversionRate(control)

	results := make([]model.ABTestResult, 0, len(stats))
	results = append(results, model.ABTestResult{
		Label:          control.Label,
		Clicks:         control.Clicks,
		Conversions:    control.Conversions,
		ConversionRate: controlRate,
		IsControl:      true,
	})

	for _, variant := range stats[1:] {
		results = append(results, compareToControl(control, variant))
	}

	return results
}

// compareToControl runs the z-test for one variant.
func compareToControl(control, variant model.VariantStats) model.ABTestResult {
	controlRate := conversionRate(control)
	variantRate := conversionRate(variant)

	z := zScore(control, variant)
	p := pValue(z)

	lift := 0.0
	if controlRate != 0 {
		lift = (variantRate - controlRate) / controlRate * 100
	}

	return model.ABTestResult{
		Label:          variant.Label,
		Clicks:         variant.Clicks,
		Conversions:    variant.Conversions,
		ConversionRate: variantRate,
		ZScore:         z,
		PValue:         p,
		Confidence:     (1 - p) * 100,
		IsSignificant:  p < significanceLevel,
		Lift:           lift,
	}
}

// zScore computes (rateVariant - rateControl) / pooledSE, where the
// pooled standard error is sqrt(p*(1-p)*(1/n1+1/n2)) over the pooled
// conversion rate. A zero standard error yields a zero z-score.
func zScore(control, variant model.VariantStats) float64 {
	n1 := float64(control.Clicks)
	n2 := float64(variant.Clicks)
	if n1 == 0 || n2 == 0 {
		return 0
	}

	pooled := float64(control.Conversions+variant.Conversions) / (n1 + n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))
	if se == 0 {
		return 0
	}

	return (conversionRate(variant) - conversionRate(control)) / se
}

// pValue computes the two-tailed p-value 2*(1 - Phi(|z|)).
func pValue(z float64) float64 {
	return 2 * (1 - normalCDF(math.Abs(z)))
}

// normalCDF evaluates the standard normal CDF via the
// Abramowitz-Stegun erf approximation (7.1.26).
func normalCDF(x float64) float64 {
	return 0.5 * (1 + erfApprox(x/math.Sqrt2))
}

// erfApprox is the Abramowitz-Stegun rational approximation to erf,
// accurate to ~1.5e-7.
func erfApprox(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}

	t := 1 / (1 + p*x)
	y := 1 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return sign * y
}

// conversionRate guards the zero-clicks case.
func conversionRate(s model.VariantStats) float64 {
	if s.Clicks == 0 {
		return 0
	}
	return float64(s.Conversions) / float64(s.Clicks)
}
