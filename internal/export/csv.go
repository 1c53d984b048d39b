// Package export renders liquidation reports as downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"cuotas/internal/core"
)

// Header of the detail export.
var Header = []string{"Concept", "RemainingInstallments", "Amount"}

// WriteCSV writes one row per installment due in the report's month.
// Amounts are written with two decimals.
func WriteCSV(w io.Writer, r core.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range r.Lines {
		row := []string{l.Concept, strconv.Itoa(l.RemainingInstallments), l.Amount.StringFixed(2)}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// FileName returns the download name for a month's export with the given
// extension ("csv" or "xlsx").
func FileName(month core.YearMonth, ext string) string {
	return fmt.Sprintf("liquidacion-%s.%s", month, ext)
}
