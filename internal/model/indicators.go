package model

import "time"

// BollingerBand is a 20-day middle band with its twice-smoothed standard deviation.
// Upper and Lower align with StdDev; Middle has window-1 more values.
type BollingerBand struct {
	Middle []float64
	StdDev []float64
	Upper  []float64
	Lower  []float64
}

// PerformanceMetrics holds trailing fractional changes of a smoothed price series.
type PerformanceMetrics struct {
	ThreeMonth       float64
	SixMonth         float64
	OneYear          float64
	RelativeStrength float64
}

// IndicatorSnapshot is the latest 50/200-day moving-average state of a symbol.
type IndicatorSnapshot struct {
	Symbol               string
	Date                 time.Time
	FiftyDay             float64
	TwoHundredDay        float64
	FiftyAboveTwoHundred bool
	CrossedToday         bool
}

// MarketContext holds secondary indicators shown alongside the ranking.
type MarketContext struct {
	RSI14       float64
	High52w     float64
	Low52w      float64
	Position52w float64 // 0.0 ~ 1.0
}
