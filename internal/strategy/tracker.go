package strategy

import (
	"fmt"
	"time"

	"IvyRanker/internal/calculator"
	"IvyRanker/internal/model"
)

// Tracker keeps the 50/200-day moving averages of one symbol up to date one
// close at a time, so a live run does not need to replay the whole history.
type Tracker struct {
	symbol      string
	fast        *calculator.RollingSMA
	slow        *calculator.RollingSMA
	lastDate    time.Time
	spread      float64
	readyPoints int
	crossed     bool
}

// TrackerState is the checkpoint form of a Tracker.
type TrackerState struct {
	Symbol      string                  `json:"symbol"`
	LastDate    time.Time               `json:"last_date"`
	Fast        calculator.RollingState `json:"fast"`
	Slow        calculator.RollingState `json:"slow"`
	Spread      float64                 `json:"spread"`
	ReadyPoints int                     `json:"ready_points"`
	Crossed     bool                    `json:"crossed"`
}

// NewTracker creates an empty tracker.
func NewTracker(symbol string) *Tracker {
	fast, _ := calculator.NewRollingSMA(FastWindow)
	slow, _ := calculator.NewRollingSMA(SlowWindow)
	return &Tracker{symbol: symbol, fast: fast, slow: slow}
}

// SeedTracker replays a newest-first series from its oldest record.
func SeedTracker(series *model.PriceSeries) *Tracker {
	t := NewTracker(series.Symbol)
	for i := series.Len() - 1; i >= 0; i-- {
		rec := series.Records[i]
		t.advance(rec.Date, rec.Close)
	}
	return t
}

// RestoreTracker rebuilds a tracker from a checkpoint.
func RestoreTracker(st TrackerState) (*Tracker, error) {
	fast, err := calculator.RestoreRollingSMA(st.Fast)
	if err != nil {
		return nil, fmt.Errorf("restore %s fast average: %w", st.Symbol, err)
	}
	slow, err := calculator.RestoreRollingSMA(st.Slow)
	if err != nil {
		return nil, fmt.Errorf("restore %s slow average: %w", st.Symbol, err)
	}
	if fast.Window() != FastWindow || slow.Window() != SlowWindow {
		return nil, fmt.Errorf("%w: %s checkpoint windows %d/%d", model.ErrInvalidWindow, st.Symbol, fast.Window(), slow.Window())
	}
	return &Tracker{
		symbol:      st.Symbol,
		fast:        fast,
		slow:        slow,
		lastDate:    st.LastDate,
		spread:      st.Spread,
		readyPoints: st.ReadyPoints,
		crossed:     st.Crossed,
	}, nil
}

// State captures the tracker for checkpointing.
func (t *Tracker) State() TrackerState {
	return TrackerState{
		Symbol:      t.symbol,
		LastDate:    t.lastDate,
		Fast:        t.fast.Snapshot(),
		Slow:        t.slow.Snapshot(),
		Spread:      t.spread,
		ReadyPoints: t.readyPoints,
		Crossed:     t.crossed,
	}
}

// LastDate returns the date of the newest close seen.
func (t *Tracker) LastDate() time.Time { return t.lastDate }

// Push feeds the next daily close. Records not newer than the last one seen are
// rejected with ErrInvalidData.
func (t *Tracker) Push(rec model.PriceRecord) (model.IndicatorSnapshot, error) {
	if !t.lastDate.IsZero() && !rec.Date.After(t.lastDate) {
		return model.IndicatorSnapshot{}, fmt.Errorf("%w: %s close for %s is not after %s", model.ErrInvalidData,
			t.symbol, rec.Date.Format("2006-01-02"), t.lastDate.Format("2006-01-02"))
	}
	t.advance(rec.Date, rec.Close)
	return t.Snapshot()
}

// Snapshot returns the current state; both averages need a value for today and yesterday.
func (t *Tracker) Snapshot() (model.IndicatorSnapshot, error) {
	if t.readyPoints < 2 {
		return model.IndicatorSnapshot{}, fmt.Errorf("%w: %s tracker has not seen %d closes yet",
			model.ErrInsufficientData, t.symbol, SlowWindow+1)
	}
	fast, slow := t.fast.Value(), t.slow.Value()
	return model.IndicatorSnapshot{
		Symbol:               t.symbol,
		Date:                 t.lastDate,
		FiftyDay:             fast,
		TwoHundredDay:        slow,
		FiftyAboveTwoHundred: fast > slow,
		CrossedToday:         t.crossed,
	}, nil
}

func (t *Tracker) advance(date time.Time, price float64) {
	t.fast.Push(price)
	t.slow.Push(price)
	t.lastDate = date
	if !t.slow.Ready() {
		return
	}
	spread := t.fast.Value() - t.slow.Value()
	t.crossed = t.readyPoints > 0 && spreadFlipped(spread, t.spread)
	t.spread = spread
	t.readyPoints++
}
