package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"IvyRanker/internal/model"
)

const (
	rankingSheet  = "Ranking"
	failuresSheet = "Failures"
)

var rankingHeader = []interface{}{
	"Rank", "Symbol", "3 MO %", "6 MO %", "1 YR %", "RS %", "50DAY", "200DAY", "BUY", "CHNG",
	"RSI14", "52W High", "52W Low", "52W Position",
}

// WriteXLSX saves the ranking, with the secondary market context, as a workbook.
// Skipped symbols are listed on a second sheet.
func WriteXLSX(path string, res *model.BatchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), rankingSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(rankingSheet, "A1", &rankingHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range res.Ranked {
		p, s, c := r.Performance, r.Snapshot, r.Context
		row := []interface{}{
			i + 1, r.Symbol,
			p.ThreeMonth * 100, p.SixMonth * 100, p.OneYear * 100, p.RelativeStrength * 100,
			s.FiftyDay, s.TwoHundredDay, yesNo(s.FiftyAboveTwoHundred), yesNo(s.CrossedToday),
			c.RSI14, c.High52w, c.Low52w, c.Position52w,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(rankingSheet, cell, &row); err != nil {
			return fmt.Errorf("write %s: %w", r.Symbol, err)
		}
	}
	if err := f.SetColWidth(rankingSheet, "A", "N", 12); err != nil {
		return err
	}

	if len(res.Failures) > 0 {
		if _, err := f.NewSheet(failuresSheet); err != nil {
			return fmt.Errorf("add failures sheet: %w", err)
		}
		header := []interface{}{"Symbol", "Kind", "Error"}
		if err := f.SetSheetRow(failuresSheet, "A1", &header); err != nil {
			return err
		}
		for i, fe := range res.Failures {
			row := []interface{}{fe.Symbol, fe.Kind(), fe.Err.Error()}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(failuresSheet, cell, &row); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
