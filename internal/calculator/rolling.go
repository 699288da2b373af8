package calculator

import (
	"fmt"

	"IvyRanker/internal/model"
)

// RollingSMA maintains a simple moving average over a fixed ring buffer,
// fed one price at a time in chronological order.
type RollingSMA struct {
	window int
	buf    []float64 // ring of the last window prices
	idx    int       // next write position
	count  int       // prices received
	sum    float64
}

// RollingState is the serialisable form of a RollingSMA.
type RollingState struct {
	Window int       `json:"window"`
	Buf    []float64 `json:"buf"`
	Idx    int       `json:"idx"`
	Count  int       `json:"count"`
	Sum    float64   `json:"sum"`
}

// NewRollingSMA creates an empty rolling average.
func NewRollingSMA(window int) (*RollingSMA, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidWindow, window)
	}
	return &RollingSMA{window: window, buf: make([]float64, window)}, nil
}

// Push adds the next chronological price and evicts the oldest one once full.
func (r *RollingSMA) Push(price float64) {
	if r.count >= r.window {
		r.sum -= r.buf[r.idx]
	}
	r.buf[r.idx] = price
	r.sum += price
	r.idx = (r.idx + 1) % r.window
	r.count++

	// Re-add the buffer once per lap so rounding error cannot build up.
	if r.idx == 0 {
		r.sum = 0
		for _, p := range r.buf {
			r.sum += p
		}
	}
}

// Ready reports whether a full window has been seen.
func (r *RollingSMA) Ready() bool { return r.count >= r.window }

// Value returns the current average, or 0 before the window is full.
func (r *RollingSMA) Value() float64 {
	if !r.Ready() {
		return 0
	}
	return r.sum / float64(r.window)
}

// Window returns the configured window length.
func (r *RollingSMA) Window() int { return r.window }

// Snapshot captures the state for checkpointing.
func (r *RollingSMA) Snapshot() RollingState {
	buf := make([]float64, len(r.buf))
	copy(buf, r.buf)
	return RollingState{Window: r.window, Buf: buf, Idx: r.idx, Count: r.count, Sum: r.sum}
}

// RestoreRollingSMA rebuilds a RollingSMA from a checkpoint.
func RestoreRollingSMA(st RollingState) (*RollingSMA, error) {
	if st.Window <= 0 {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidWindow, st.Window)
	}
	if len(st.Buf) != st.Window || st.Idx < 0 || st.Idx >= st.Window || st.Count < 0 {
		return nil, fmt.Errorf("%w: corrupt rolling state for window %d", model.ErrInvalidData, st.Window)
	}
	buf := make([]float64, st.Window)
	copy(buf, st.Buf)
	return &RollingSMA{window: st.Window, buf: buf, idx: st.Idx, count: st.Count, sum: st.Sum}, nil
}
