package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"IvyRanker/internal/calculator"
	"IvyRanker/internal/model"
	"IvyRanker/internal/strategy"
)

const (
	pageWidth  = 11 * vg.Inch
	pageHeight = 8.5 * vg.Inch
)

var (
	closeColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bandColor  = color.RGBA{G: 191, B: 191, A: 255}
	fastColor  = color.RGBA{R: 255, A: 255}
	slowColor  = color.RGBA{G: 128, A: 255}
	bandDashes = []vg.Length{vg.Points(4), vg.Points(3)}
	errNoPlots = errors.New("no price history to plot")
)

// RenderPlots writes one PDF page per symbol, in the given order. Each page
// shows the closing price with its 20, 50 and 200 day averages and Bollinger
// bands, oldest day on the left. Curves a short history cannot support are
// left off that page.
func RenderPlots(w io.Writer, symbols []string, histories map[string]*model.PriceSeries) error {
	c := vgpdf.New(pageWidth, pageHeight)
	pages := 0
	for _, symbol := range symbols {
		series := histories[symbol]
		if series == nil || series.Len() == 0 {
			continue
		}
		p, err := symbolPlot(symbol, series)
		if err != nil {
			return fmt.Errorf("plot %s: %w", symbol, err)
		}
		if pages > 0 {
			c.NextPage()
		}
		p.Draw(draw.New(c))
		pages++
	}
	if pages == 0 {
		return errNoPlots
	}
	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func symbolPlot(symbol string, series *model.PriceSeries) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Symbol: " + symbol
	p.X.Label.Text = "Days"
	p.Y.Label.Text = "Price"
	p.Add(plotter.NewGrid())
	p.Legend.Top = false
	p.Legend.Left = true

	closes := series.Closes()
	if err := addLine(p, "Closing Price", 0, closes, closeColor, false); err != nil {
		return nil, err
	}

	// Every newest-first average of window w starts at chronological day w-1.
	if ma, err := calculator.SimpleMovingAverage(closes, calculator.BollingerWindow); err == nil {
		if err := addLine(p, "20 Day MA", calculator.BollingerWindow-1, ma, bandColor, false); err != nil {
			return nil, err
		}
	}
	if band, err := calculator.BollingerBands(closes, calculator.BollingerWindow); err == nil {
		offset := 2 * (calculator.BollingerWindow - 1)
		if err := addLine(p, "", offset, band.Upper, bandColor, true); err != nil {
			return nil, err
		}
		if err := addLine(p, "", offset, band.Lower, bandColor, true); err != nil {
			return nil, err
		}
	}
	if ma, err := calculator.SimpleMovingAverage(closes, strategy.FastWindow); err == nil {
		if err := addLine(p, "50 Day MA", strategy.FastWindow-1, ma, fastColor, false); err != nil {
			return nil, err
		}
	}
	if ma, err := calculator.SimpleMovingAverage(closes, strategy.SlowWindow); err == nil {
		if err := addLine(p, "200 Day MA", strategy.SlowWindow-1, ma, slowColor, false); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// addLine plots newest-first values left to right starting at x = offset.
func addLine(p *plot.Plot, label string, offset int, newestFirst []float64, c color.Color, dashed bool) error {
	values := slices.Clone(newestFirst)
	slices.Reverse(values)

	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(offset + i)
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = c
	if dashed {
		line.Dashes = bandDashes
	}
	p.Add(line)
	if label != "" {
		p.Legend.Add(label, line)
	}
	return nil
}
