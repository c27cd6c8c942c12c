package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/satset/internal/ir"
)

// Predictor estimates a future value from an observation's history.
//
// history is newest-first and never empty. horizon is the prediction range
// of the trend condition being evaluated, in reading steps.
type Predictor func(history []ir.Value, horizon int64) (ir.Value, error)

// LastValue predicts that nothing changes. This is what an observation
// without a predictor does.
func LastValue(history []ir.Value, _ int64) (ir.Value, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("empty history")
	}
	return history[0], nil
}

// LinearTrend fits a least-squares line through the history (readings one
// step apart) and extrapolates horizon steps past the newest reading.
// With a single reading it degrades to LastValue. Bool histories are
// rejected.
func LinearTrend(history []ir.Value, horizon int64) (ir.Value, error) {
	n := len(history)
	if n == 0 {
		return nil, fmt.Errorf("empty history")
	}

	ys := make([]float64, n)
	for i, v := range history {
		f, err := ir.Coerce(v, ir.KindFloat)
		if err != nil {
			return nil, fmt.Errorf("linear trend: %w", err)
		}
		// Oldest first, x = 0 .. n-1
		ys[n-1-i] = float64(f.(ir.Float))
	}
	if n == 1 {
		return ir.Float(ys[0]), nil
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	slope := (fn*sumXY - sumX*sumY) / (fn*sumXX - sumX*sumX)
	intercept := (sumY - slope*sumX) / fn

	x := float64(n-1) + float64(horizon)
	return ir.Float(intercept + slope*x), nil
}

// ParsePredictor resolves a predictor by name: "last" (or empty) for
// LastValue, "linear" for LinearTrend.
func ParsePredictor(name string) (Predictor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "last":
		return LastValue, nil
	case "linear":
		return LinearTrend, nil
	default:
		return nil, fmt.Errorf("unknown predictor %q: must be last or linear", name)
	}
}
