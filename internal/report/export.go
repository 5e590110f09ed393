// Package report exports a session's analysis history as an Excel workbook.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"support-insights-go/internal/types"
)

const (
	HistorySheet = "History"
	QualitySheet = "Quality"
)

var historyHeader = []any{"File", "Type", "Timestamp", "Status", "Summary"}

// WriteHistory writes a workbook with one row per history entry and a
// second sheet holding the latest quality audit.
func WriteHistory(w io.Writer, entries []types.HistoryEntry, scores types.QualityScores) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", HistorySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(HistorySheet, "A1", &historyHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, e := range entries {
		kind := "audio"
		if e.IsText() {
			kind = "text"
		}
		status := e.Status
		if status == "" {
			status = "Ready"
		}
		row := []any{e.DisplayName(), kind, e.Timestamp, status, e.Summary}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(HistorySheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(QualitySheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	rows := [][]any{{"Factor", "Score"}}
	for _, fac := range scores.Factors() {
		rows = append(rows, []any{fac.Label, fac.Value})
	}
	rows = append(rows, []any{"Reasoning", scores.Reasoning})
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(QualitySheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write quality row: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
