package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IvyRanker/internal/model"
)

func TestCalculateRSI(t *testing.T) {
	rising := []float64{15, 14, 13, 12, 11, 10} // newest first
	rsi, err := CalculateRSI(rising, 3)
	require.NoError(t, err)
	assert.Equal(t, 100.0, rsi)

	// Two gains of 2 and one loss of 1 over three steps.
	rsi, err = CalculateRSI([]float64{13, 11, 12, 10}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 80.0, rsi, 1e-9)

	_, err = CalculateRSI([]float64{1, 2, 3}, 3)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestCalculate52WeekRange(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100
	}
	closes[10] = 130
	closes[20] = 90
	closes[280] = 500 // older than one year

	high, low, err := Calculate52WeekRange(closes)
	require.NoError(t, err)
	assert.Equal(t, 130.0, high)
	assert.Equal(t, 90.0, low)

	pos, err := Calculate52WeekPosition(100, high, low)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, pos, 1e-12)

	pos, err = Calculate52WeekPosition(100, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.5, pos)

	_, _, err = Calculate52WeekRange(nil)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}
