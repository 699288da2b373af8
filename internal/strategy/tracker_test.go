package strategy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IvyRanker/internal/model"
)

func TestTracker_MatchesBatchEvaluate(t *testing.T) {
	chrono := wave(600)
	tr := SeedTracker(seriesFromChrono(t, "W", chrono[:300]))

	for end := 301; end <= len(chrono); end++ {
		rec := model.PriceRecord{Date: day0.AddDate(0, 0, end-1), Close: chrono[end-1]}
		got, err := tr.Push(rec)
		require.NoError(t, err)

		want, err := Evaluate("W", seriesFromChrono(t, "W", chrono[:end]))
		require.NoError(t, err)

		assert.Equal(t, want.Date, got.Date)
		assert.InDelta(t, want.FiftyDay, got.FiftyDay, 1e-9)
		assert.InDelta(t, want.TwoHundredDay, got.TwoHundredDay, 1e-9)
		assert.Equal(t, want.FiftyAboveTwoHundred, got.FiftyAboveTwoHundred, "end=%d", end)
		assert.Equal(t, want.CrossedToday, got.CrossedToday, "end=%d", end)
	}
}

func TestTracker_NeedsTwoReadyPoints(t *testing.T) {
	tr := SeedTracker(seriesFromChrono(t, "G", growth(200, 0.001)))
	_, err := tr.Snapshot()
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	_, err = tr.Push(model.PriceRecord{Date: day0.AddDate(0, 0, 200), Close: 150})
	assert.NoError(t, err)
}

func TestTracker_RejectsStaleRecords(t *testing.T) {
	tr := SeedTracker(seriesFromChrono(t, "G", growth(250, 0.001)))
	_, err := tr.Push(model.PriceRecord{Date: day0.AddDate(0, 0, 249), Close: 1})
	assert.ErrorIs(t, err, model.ErrInvalidData)
	assert.Equal(t, day0.AddDate(0, 0, 249), tr.LastDate())
}

func TestTracker_StateRoundTripThroughJSON(t *testing.T) {
	chrono := wave(400)
	tr := SeedTracker(seriesFromChrono(t, "W", chrono[:350]))

	raw, err := json.Marshal(tr.State())
	require.NoError(t, err)
	var st TrackerState
	require.NoError(t, json.Unmarshal(raw, &st))

	restored, err := RestoreTracker(st)
	require.NoError(t, err)

	for i := 350; i < len(chrono); i++ {
		rec := model.PriceRecord{Date: day0.AddDate(0, 0, i), Close: chrono[i]}
		a, err := tr.Push(rec)
		require.NoError(t, err)
		b, err := restored.Push(rec)
		require.NoError(t, err)
		assert.InDelta(t, a.FiftyDay, b.FiftyDay, 1e-9)
		assert.Equal(t, a.CrossedToday, b.CrossedToday)
	}
}

func TestRestoreTracker_WrongWindows(t *testing.T) {
	st := NewTracker("X").State()
	st.Fast, st.Slow = st.Slow, st.Fast
	_, err := RestoreTracker(st)
	assert.ErrorIs(t, err, model.ErrInvalidWindow)
}
