// Package export renders till closures as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"cashup-backend/internal/models"
	"cashup-backend/internal/till"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Till closures"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout  = "2006-01-02 15:04"
)

// Header is the first row of the closures sheet.
func Header() []string {
	h := []string{"Close time", "Closed by", "Version", "Cash takings", "Card takings", "Total takings"}
	for _, d := range till.Denominations {
		h = append(h, d.Label)
	}
	return append(h, "Till total", "Till float", "Difference", "To bank", "Notes", "Withdrawn")
}

// ClosuresWorkbook writes one row per closure followed by a totals row over
// the closures that were not withdrawn. names maps personnel IDs to display
// names.
func ClosuresWorkbook(closures []models.TillClosure, names map[uint]string) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create money style: %w", err)
	}

	header := Header()
	if err := writeRow(f, 1, toCells(header)); err != nil {
		f.Close()
		return nil, err
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(SheetName, "A1", last+"1", bold); err != nil {
		f.Close()
		return nil, fmt.Errorf("style header: %w", err)
	}

	var totalTakings, totalDifference decimal.Decimal
	for i := range closures {
		c := &closures[i]
		row := []any{
			c.CloseTime.Format(timeLayout),
			names[c.ClosedByID],
			c.VersionNumber,
			c.CashTakings.InexactFloat64(),
			c.CardTakings.InexactFloat64(),
			c.TotalTakings.InexactFloat64(),
		}
		for _, n := range c.Counts() {
			row = append(row, n)
		}
		withdrawn := "No"
		if !c.IsCurrent() {
			withdrawn = "Yes"
		} else {
			totalTakings = totalTakings.Add(c.TotalTakings)
			totalDifference = totalDifference.Add(c.TillDifference)
		}
		row = append(row,
			c.TillTotal.InexactFloat64(),
			c.TillFloat.InexactFloat64(),
			c.TillDifference.InexactFloat64(),
			c.ToBank().InexactFloat64(),
			c.Notes,
			withdrawn,
		)
		if err := writeRow(f, i+2, row); err != nil {
			f.Close()
			return nil, err
		}
	}

	totalsRow := len(closures) + 2
	totals := make([]any, len(header))
	totals[0] = "Total"
	totals[5] = totalTakings.InexactFloat64()
	totals[len(header)-4] = totalDifference.InexactFloat64()
	if err := writeRow(f, totalsRow, totals); err != nil {
		f.Close()
		return nil, err
	}
	lastCell, _ := excelize.CoordinatesToCellName(len(header), totalsRow)
	if err := f.SetCellStyle(SheetName, fmt.Sprintf("A%d", totalsRow), lastCell, bold); err != nil {
		f.Close()
		return nil, fmt.Errorf("style totals: %w", err)
	}
	if err := styleMoneyColumns(f, money, len(header), totalsRow); err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func writeRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

// styleMoneyColumns applies two-decimal formatting to the takings columns
// and the till total to to-bank columns.
func styleMoneyColumns(f *excelize.File, style, width, lastRow int) error {
	ranges := [][2]int{{4, 6}, {width - 5, width - 2}}
	for _, r := range ranges {
		from, err := excelize.CoordinatesToCellName(r[0], 2)
		if err != nil {
			return err
		}
		to, err := excelize.CoordinatesToCellName(r[1], lastRow)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, from, to, style); err != nil {
			return fmt.Errorf("style money columns: %w", err)
		}
	}
	return nil
}
