package core

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Project sums installment amounts per due month for every month >= from,
// regardless of category. Months without rows are omitted; the result is
// ascending by month.
func Project(from YearMonth, rows []InstallmentRow) []MonthTotal {
	totals := map[YearMonth]decimal.Decimal{}
	for _, row := range rows {
		if row.DueMonth.Compare(from) < 0 {
			continue
		}
		if t, ok := totals[row.DueMonth]; ok {
			totals[row.DueMonth] = t.Add(row.Amount)
		} else {
			totals[row.DueMonth] = row.Amount
		}
	}

	series := make([]MonthTotal, 0, len(totals))
	for m, t := range totals {
		series = append(series, MonthTotal{Month: m, TotalAmount: t})
	}
	slices.SortFunc(series, func(a, b MonthTotal) int {
		return a.Month.Compare(b.Month)
	})
	return series
}
