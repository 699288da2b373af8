package calculator

import (
	"fmt"
	"math"

	"IvyRanker/internal/model"
)

// BollingerWindow is the classic 20-day band window.
const BollingerWindow = 20

// BollingerBands computes the middle band and a twice-smoothed standard deviation.
//
// The squared deviation at index i pairs prices[i] with middle[i], i.e. it is
// measured at the leading edge of each window. The deviations are then averaged
// over a second window before the square root, so StdDev has window-1 fewer values
// than Middle. Upper and Lower are Middle[:len(StdDev)] ± 2·StdDev.
func BollingerBands(prices []float64, window int) (*model.BollingerBand, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidWindow, window)
	}
	if need := 2*window - 1; len(prices) < need {
		return nil, fmt.Errorf("%w: %d-day bands need %d prices, have %d",
			model.ErrInsufficientData, window, need, len(prices))
	}

	middle, err := SimpleMovingAverage(prices, window)
	if err != nil {
		return nil, err
	}

	sqDev := make([]float64, len(middle))
	for i, m := range middle {
		d := prices[i] - m
		sqDev[i] = d * d
	}

	variance, err := SimpleMovingAverage(sqDev, window)
	if err != nil {
		return nil, err
	}

	band := &model.BollingerBand{
		Middle: middle,
		StdDev: make([]float64, len(variance)),
		Upper:  make([]float64, len(variance)),
		Lower:  make([]float64, len(variance)),
	}
	for i, v := range variance {
		sd := math.Sqrt(v)
		band.StdDev[i] = sd
		band.Upper[i] = middle[i] + 2*sd
		band.Lower[i] = middle[i] - 2*sd
	}
	return band, nil
}
