package calculator

import (
	"fmt"
	"sort"

	"IvyRanker/internal/model"
)

// Lags in trading days, counting five sessions per week.
const (
	TradingDaysPerWeek = 5
	ThreeMonthLag      = 13 * TradingDaysPerWeek
	SixMonthLag        = 26 * TradingDaysPerWeek
	OneYearLag         = 52 * TradingDaysPerWeek
)

// ComputePerformance measures the 13, 26 and 52 week fractional change of a
// smoothed price series and averages them into a relative-strength score.
// newestFirst tells whether today's value sits at index 0 or at the end.
func ComputePerformance(smoothed []float64, newestFirst bool) (model.PerformanceMetrics, error) {
	if need := OneYearLag + 1; len(smoothed) < need {
		return model.PerformanceMetrics{}, fmt.Errorf("%w: performance needs %d smoothed values, have %d",
			model.ErrInsufficientData, need, len(smoothed))
	}

	at := func(lag int) float64 {
		if newestFirst {
			return smoothed[lag]
		}
		return smoothed[len(smoothed)-1-lag]
	}
	today := at(0)

	change := func(lag int) (float64, error) {
		prior := at(lag)
		if prior == 0 {
			return 0, fmt.Errorf("%w: smoothed value %d days back is zero", model.ErrInvalidData, lag)
		}
		return (today - prior) / prior, nil
	}

	var m model.PerformanceMetrics
	var err error
	if m.ThreeMonth, err = change(ThreeMonthLag); err != nil {
		return model.PerformanceMetrics{}, err
	}
	if m.SixMonth, err = change(SixMonthLag); err != nil {
		return model.PerformanceMetrics{}, err
	}
	if m.OneYear, err = change(OneYearLag); err != nil {
		return model.PerformanceMetrics{}, err
	}
	m.RelativeStrength = (m.ThreeMonth + m.SixMonth + m.OneYear) / 3.0
	return m, nil
}

// Rank orders symbols by descending relative strength. Symbols without metrics
// are left out; equal scores keep their input order.
func Rank(symbols []string, metrics map[string]model.PerformanceMetrics) []string {
	ranked := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := metrics[s]; ok {
			ranked = append(ranked, s)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return metrics[ranked[i]].RelativeStrength > metrics[ranked[j]].RelativeStrength
	})
	return ranked
}
