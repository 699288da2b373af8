package calculator

import (
	"fmt"
	"math"

	"IvyRanker/internal/model"
)

// SessionsPerYear approximates one year of trading sessions.
const SessionsPerYear = 252

// Calculate52WeekRange returns the high and low close over the newest SessionsPerYear closes.
// Shorter histories use everything available.
func Calculate52WeekRange(closes []float64) (high, low float64, err error) {
	if len(closes) == 0 {
		return 0, 0, fmt.Errorf("%w: no closes", model.ErrInsufficientData)
	}
	n := min(len(closes), SessionsPerYear)
	high, low = math.Inf(-1), math.Inf(1)
	for _, c := range closes[:n] {
		high = math.Max(high, c)
		low = math.Min(low, c)
	}
	return high, low, nil
}

// Calculate52WeekPosition places current inside [low, high], clamped to 0.0~1.0.
// A flat range yields 0.5.
func Calculate52WeekPosition(current, high, low float64) (float64, error) {
	switch {
	case high < low:
		return 0, fmt.Errorf("%w: high %.2f below low %.2f", model.ErrInvalidData, high, low)
	case high == low:
		return 0.5, nil
	}
	pos := (current - low) / (high - low)
	return math.Min(1, math.Max(0, pos)), nil
}
