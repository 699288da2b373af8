package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PriceRecord is a single daily bar for one symbol.
type PriceRecord struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the daily history of one symbol, newest record first.
type PriceSeries struct {
	Symbol  string
	Records []PriceRecord
}

var dateLayouts = []string{"2006-01-02", "20060102"}

// ParseRecord converts a provider row [date, open, high, low, close, volume] into a PriceRecord.
func ParseRecord(row []string) (PriceRecord, error) {
	if len(row) != 6 {
		return PriceRecord{}, fmt.Errorf("%w: expected 6 fields, got %d", ErrInvalidData, len(row))
	}

	var rec PriceRecord
	var err error
	raw := strings.TrimSpace(row[0])
	for _, layout := range dateLayouts {
		if rec.Date, err = time.Parse(layout, raw); err == nil {
			break
		}
	}
	if err != nil {
		return PriceRecord{}, fmt.Errorf("%w: bad date %q", ErrInvalidData, row[0])
	}

	fields := []*float64{&rec.Open, &rec.High, &rec.Low, &rec.Close, &rec.Volume}
	for i, dst := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return PriceRecord{}, fmt.Errorf("%w: bad number %q in column %d", ErrInvalidData, row[i+1], i+1)
		}
		*dst = v
	}
	return rec, nil
}

// NewPriceSeries builds a series ordered newest first. Duplicate dates are rejected.
func NewPriceSeries(symbol string, records []PriceRecord) (*PriceSeries, error) {
	sorted := make([]PriceRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Date.Equal(sorted[i-1].Date) {
			return nil, fmt.Errorf("%w: %s has duplicate date %s",
				ErrInvalidData, symbol, sorted[i].Date.Format("2006-01-02"))
		}
	}
	return &PriceSeries{Symbol: symbol, Records: sorted}, nil
}

// Len returns the number of records.
func (s *PriceSeries) Len() int { return len(s.Records) }

// Closes returns the closing prices, newest first.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Records))
	for i, r := range s.Records {
		closes[i] = r.Close
	}
	return closes
}

// Latest returns the newest record, or false for an empty series.
func (s *PriceSeries) Latest() (PriceRecord, bool) {
	if len(s.Records) == 0 {
		return PriceRecord{}, false
	}
	return s.Records[0], true
}
