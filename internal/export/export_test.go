package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"finboard/internal/core"
)

func strp(s string) *string { return &s }

func sampleRows() []core.TransactionRow {
	return []core.TransactionRow{
		{ID: "t2", Date: core.NewDate(2025, 3, 2), Payee: "Grocer", Account: "Checking", Category: strp("Food"), Amount: -2550, Notes: strp("weekly")},
		{ID: "t1", Date: core.NewDate(2025, 3, 1), Payee: "Employer", Account: "Checking", Amount: 1234567},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatXLSX, false},
		{"XLSX", FormatXLSX, false},
		{"csv", FormatCSV, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			_, ok := core.AsValidationError(err)
			assert.True(t, ok, "ParseFormat(%q) should be a validation error", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestFilename(t *testing.T) {
	r := core.DateRange{From: core.NewDate(2025, 3, 1), To: core.NewDate(2025, 3, 31)}
	assert.Equal(t, "transactions_2025-03-01_2025-03-31.csv", FormatCSV.Filename(r))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, header, records[0])
	assert.Equal(t, []string{"2025-03-02", "Grocer", "Checking", "Food", "-2.55", "weekly"}, records[1])
	assert.Equal(t, []string{"2025-03-01", "Employer", "Checking", "", "1234.567", ""}, records[2])

	amount, err := core.ParseAmount(records[2][4])
	require.NoError(t, err)
	assert.Equal(t, int64(1234567), amount)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleRows()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, "Grocer", rows[1][1])

	raw, err := f.GetCellValue(sheetName, "E2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "-2.55", raw)
}

func TestWriteXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))
	assert.NotZero(t, buf.Len())
}
