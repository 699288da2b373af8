package calculator

import (
	"fmt"

	"IvyRanker/internal/model"
)

// CalculateRSI computes the Wilder-smoothed RSI of newest-first closes.
// Requires at least period+1 closes.
func CalculateRSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("%w: %d", model.ErrInvalidWindow, period)
	}
	if len(closes) < period+1 {
		return 0, fmt.Errorf("%w: %d-day RSI needs %d closes, have %d",
			model.ErrInsufficientData, period, period+1, len(closes))
	}

	// Walk from the oldest close toward today.
	oldest := len(closes) - 1
	change := func(step int) float64 {
		i := oldest - step
		return closes[i] - closes[i+1]
	}

	var avgGain, avgLoss float64
	for step := 1; step <= period; step++ {
		if c := change(step); c > 0 {
			avgGain += c
		} else {
			avgLoss -= c
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for step := period + 1; step <= oldest; step++ {
		gain, loss := 0.0, 0.0
		if c := change(step); c > 0 {
			gain = c
		} else {
			loss = -c
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}
