package calculator

import (
	"fmt"

	"IvyRanker/internal/model"
)

// SimpleMovingAverage returns the sliding-window mean of prices.
// Output[i] is the mean of prices[i:i+window], so the result keeps the input's
// orientation and has len(prices)-window+1 values. With newest-first input,
// output[0] is today's average.
func SimpleMovingAverage(prices []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidWindow, window)
	}
	if len(prices) < window {
		return nil, fmt.Errorf("%w: %d-day average needs %d prices, have %d",
			model.ErrInsufficientData, window, window, len(prices))
	}

	out := make([]float64, len(prices)-window+1)
	sum := 0.0
	for _, p := range prices[:window] {
		sum += p
	}
	out[0] = sum / float64(window)

	// Slide: the element at i+window-1 enters, the one at i-1 leaves.
	for i := 1; i < len(out); i++ {
		sum += prices[i+window-1] - prices[i-1]
		out[i] = sum / float64(window)
	}
	return out, nil
}

// ExponentialMovingAverage filters the whole series with smoothing factor 2/(window+1).
// The recursion is seeded with the oldest price and runs toward the newest one;
// newestFirst tells which end of prices is the oldest. The output has the same
// length and orientation as the input.
func ExponentialMovingAverage(prices []float64, window int, newestFirst bool) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidWindow, window)
	}
	out := make([]float64, len(prices))
	if len(prices) == 0 {
		return out, nil
	}

	alpha := 2.0 / float64(window+1)
	if newestFirst {
		last := len(prices) - 1
		out[last] = prices[last]
		for i := last - 1; i >= 0; i-- {
			out[i] = (1-alpha)*out[i+1] + alpha*prices[i]
		}
		return out, nil
	}

	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = (1-alpha)*out[i-1] + alpha*prices[i]
	}
	return out, nil
}
