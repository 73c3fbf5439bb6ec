// Package export renders transaction listings as downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"finboard/internal/core"
)

// Format is a supported download format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

const sheetName = "Transactions"

var header = []string{"Date", "Payee", "Account", "Category", "Amount", "Notes"}

// ParseFormat accepts "xlsx" (the default when empty) and "csv".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", core.FieldError("format", "must be xlsx or csv")
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename names the download after the window it covers.
func (f Format) Filename(r core.DateRange) string {
	return fmt.Sprintf("transactions_%s_%s.%s", r.From, r.To, f)
}

// Write renders rows in format f.
func Write(w io.Writer, f Format, rows []core.TransactionRow) error {
	if f == FormatCSV {
		return WriteCSV(w, rows)
	}
	return WriteXLSX(w, rows)
}

func record(t core.TransactionRow) []string {
	return []string{
		t.Date.String(),
		t.Payee,
		t.Account,
		deref(t.Category),
		core.FormatAmount(t.Amount),
		deref(t.Notes),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// WriteCSV writes a header line and one line per row, amounts as decimal text.
func WriteCSV(w io.Writer, rows []core.TransactionRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range rows {
		if err := cw.Write(record(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook. Amounts are numeric cells in
// currency units so spreadsheet formulas work on them.
func WriteXLSX(w io.Writer, rows []core.TransactionRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", "F1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, t := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			t.Date.String(),
			t.Payee,
			t.Account,
			deref(t.Category),
			core.ToUnits(t.Amount),
			deref(t.Notes),
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if len(rows) > 0 {
		numFmt := "#,##0.00##"
		amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
		if err != nil {
			return fmt.Errorf("create amount style: %w", err)
		}
		last := fmt.Sprintf("E%d", len(rows)+1)
		if err := f.SetCellStyle(sheetName, "E2", last, amountStyle); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}

	for col, width := range map[string]float64{"A": 12, "B": 30, "C": 18, "D": 18, "E": 14, "F": 40} {
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}
