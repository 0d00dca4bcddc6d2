// Package service provides the redirect decision engine.
package service

import (
	"errors"
	"fmt"

	"github.com/splitroute/splitroute/internal/model"
)

// ErrOverAllocated is returned when explicitly assigned weights exceed
// 100. The caller must reject the save and surface the message.
var ErrOverAllocated = errors.New("over-allocated weights")

// totalWeight is the invariant sum all variant weights normalize to.
const totalWeight = 100

// NormalizeWeights distributes unassigned variant weights so the total
// is exactly 100. It is pure: the input slice is never mutated.
//
// Explicit weights are kept as-is; the remainder is floor-divided
// across unassigned variants with leftover units going one-by-one to
// the first unassigned variants in order. A residual that survives
// rounding (degenerate single-variant or all-zero cases) lands on the
// first variant with non-zero weight, or the first variant if none.
func NormalizeWeights(variants []model.Variant) ([]model.Variant, error) {
	if len(variants) == 0 {
		return variants, nil
	}

	out := make([]model.Variant, len(variants))
	copy(out, variants)

	sumDefined := 0
	var unassigned []int
	for i, v := range out {
		if v.HasWeight() {
			sumDefined += v.WeightValue()
		} else {
			unassigned = append(unassigned, i)
		}
	}

	if sumDefined > totalWeight {
		return nil, fmt.Errorf("%w: assigned weights sum to %d", ErrOverAllocated, sumDefined)
	}

	remaining := totalWeight - sumDefined
	if n := len(unassigned); n > 0 {
		base := remaining / n
		leftover := remaining % n
		for pos, i := range unassigned {
			w := base
			if pos < leftover {
				w++
			}
			out[i].Weight = intPtr(w)
		}
	}

	// Degenerate cases (e.g. a single variant with weight 0) can still
	// leave the total off 100; push the residual onto one variant.
	total := 0
	for _, v := range out {
		total += v.WeightValue()
	}
	if residual := totalWeight - total; residual != 0 {
		target := 0
		for i, v := range out {
			if v.WeightValue() > 0 {
				target = i
				break
			}
		}
		out[target].Weight = intPtr(out[target].WeightValue() + residual)
	}

	return out, nil
}

func intPtr(v int) *int {
	return &v
}
