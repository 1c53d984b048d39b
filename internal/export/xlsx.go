package export

import (
	"fmt"
	"io"

	"cuotas/internal/core"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the month's detail.
const SheetName = "Detalle"

// XLSXContentType is the media type of WriteXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX writes the same columns as WriteCSV into a single worksheet.
// Amounts are numeric cells rounded to cents.
func WriteXLSX(w io.Writer, r core.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, header := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return fmt.Errorf("write xlsx header: %w", err)
		}
	}

	for i, l := range r.Lines {
		row := i + 2
		amount, _ := l.Amount.Round(2).Float64()
		values := []any{l.Concept, l.RemainingInstallments, amount}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("write xlsx row %d: %w", row, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
