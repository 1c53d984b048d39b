package google

import (
	"fmt"
	"strconv"
	"strings"

	"cuotas/internal/core"

	"github.com/shopspring/decimal"
)

var (
	detailHeader  = []any{"Concept", "Category", "Installment", "Remaining", "Amount"}
	summaryHeader = []any{"Item", "Total", "I pay"}
)

// sheetName returns "<prefix> YYYY-MM".
func sheetName(prefix string, month core.YearMonth) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return month.String()
	}
	return fmt.Sprintf("%s %s", prefix, month)
}

// a1Range quotes the sheet name for A1 notation.
func a1Range(sheet, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), cells)
}

// liquidationValues lays out a report as a values matrix: the detail table,
// a blank separator row and the summary table. Amounts are written as
// fixed two-decimal strings so the sheet shows the same figures as the API.
func liquidationValues(r core.Report) [][]any {
	values := make([][]any, 0, len(r.Lines)+7)
	values = append(values, detailHeader)
	for _, l := range r.Lines {
		values = append(values, []any{
			l.Concept,
			string(l.Category),
			fmt.Sprintf("%d/%d", l.InstallmentNumber, l.TotalInstallments),
			l.RemainingInstallments,
			l.Amount.StringFixed(2),
		})
	}
	values = append(values, []any{})
	values = append(values, summaryHeader)
	for _, s := range r.Summary() {
		values = append(values, []any{s.Item, s.Total.StringFixed(2), s.IPay.StringFixed(2)})
	}
	return values
}

// parseLiquidation reads back a matrix written by liquidationValues.
func parseLiquidation(values [][]any, month core.YearMonth) (core.Report, error) {
	r := core.Report{Month: month}
	if len(values) == 0 {
		return r, nil
	}
	if h := toStrings(values[0]); safeGet(h, 0) != "Concept" || safeGet(h, 4) != "Amount" {
		return core.Report{}, fmt.Errorf("unexpected liquidation header: got headers=%v", h)
	}

	i := 1
	for ; i < len(values); i++ {
		row := toStrings(values[i])
		if len(row) == 0 || safeGet(row, 0) == "" {
			break
		}
		line, err := parseDetailRow(row)
		if err != nil {
			return core.Report{}, fmt.Errorf("row %d: %w", i+1, err)
		}
		r.Lines = append(r.Lines, line)
	}

	for ; i < len(values); i++ {
		row := toStrings(values[i])
		item := safeGet(row, 0)
		if item == "" || item == "Item" {
			continue
		}
		total, err := core.ParseAmount(safeGet(row, 1))
		if err != nil {
			return core.Report{}, fmt.Errorf("row %d total: %w", i+1, err)
		}
		pay, err := core.ParseAmount(safeGet(row, 2))
		if err != nil {
			return core.Report{}, fmt.Errorf("row %d i pay: %w", i+1, err)
		}
		switch item {
		case "(M) Mine":
			r.TotalMine = total
		case "(C) Shared":
			r.TotalShared = total
			r.HalfShared = total.Sub(pay)
		case "(O) Other":
			r.TotalOther = total
		case "TOTAL":
			r.TotalCard = total
			r.MyPortion = pay
		}
	}
	return r, nil
}

func parseDetailRow(row []string) (core.ReportLine, error) {
	number, total, ok := strings.Cut(safeGet(row, 2), "/")
	if !ok {
		return core.ReportLine{}, fmt.Errorf("invalid installment %q", safeGet(row, 2))
	}
	n, err := strconv.Atoi(number)
	if err != nil {
		return core.ReportLine{}, fmt.Errorf("invalid installment number: %w", err)
	}
	t, err := strconv.Atoi(total)
	if err != nil {
		return core.ReportLine{}, fmt.Errorf("invalid installment total: %w", err)
	}
	amount, err := decimal.NewFromString(safeGet(row, 4))
	if err != nil {
		return core.ReportLine{}, fmt.Errorf("invalid amount: %w", err)
	}
	return core.ReportLine{
		Concept:               safeGet(row, 0),
		Category:              core.Category(safeGet(row, 1)),
		InstallmentNumber:     n,
		TotalInstallments:     t,
		RemainingInstallments: t - n,
		Amount:                amount,
	}, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
