package core

import "github.com/shopspring/decimal"

var two = decimal.NewFromInt(2)

// Liquidate computes the settlement for month from the rows due in it.
//
// Shared items are split in half; the counterpart's half is rounded to cents
// and the reporting person keeps the remainder, so an odd cent is never lost.
// Rows whose stored category cannot be resolved appear in the detail but in
// no total. The second return value lists those rows' purchase ids.
func Liquidate(month YearMonth, rows []DueRow) (Report, []int64) {
	r := Report{
		Month:       month,
		Lines:       make([]ReportLine, 0, len(rows)),
		TotalMine:   decimal.Zero,
		TotalShared: decimal.Zero,
		TotalOther:  decimal.Zero,
	}

	var unresolved []int64
	for _, row := range rows {
		cat, ok := row.Category.Canonical()
		switch {
		case !ok:
			unresolved = append(unresolved, row.PurchaseID)
			cat = row.Category
		case cat == CategoryMine:
			r.TotalMine = r.TotalMine.Add(row.Amount)
		case cat == CategoryShared:
			r.TotalShared = r.TotalShared.Add(row.Amount)
		case cat == CategoryOther:
			r.TotalOther = r.TotalOther.Add(row.Amount)
		}

		r.Lines = append(r.Lines, ReportLine{
			PurchaseID:            row.PurchaseID,
			Concept:               row.Concept,
			Category:              cat,
			InstallmentNumber:     row.InstallmentNumber,
			TotalInstallments:     row.TotalInstallments,
			RemainingInstallments: row.TotalInstallments - row.InstallmentNumber,
			Amount:                row.Amount,
		})
	}

	r.HalfShared = r.TotalShared.Div(two).Round(2)
	r.MyPortion = r.TotalMine.Add(r.TotalShared.Sub(r.HalfShared))
	r.TotalCard = r.TotalMine.Add(r.TotalShared).Add(r.TotalOther)
	return r, unresolved
}
