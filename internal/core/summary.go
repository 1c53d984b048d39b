package core

import "github.com/shopspring/decimal"

// DueRow is an installment row joined with the purchase it belongs to.
type DueRow struct {
	PurchaseID        int64
	Concept           string
	Category          Category
	TotalInstallments int
	InstallmentNumber int
	Amount            decimal.Decimal
}

// ReportLine is one row of the monthly detail.
type ReportLine struct {
	PurchaseID            int64           `json:"purchase_id"`
	Concept               string          `json:"concept"`
	Category              Category        `json:"category"`
	InstallmentNumber     int             `json:"installment_number"`
	TotalInstallments     int             `json:"total_installments"`
	RemainingInstallments int             `json:"remaining_installments"`
	Amount                decimal.Decimal `json:"amount"`
}

// Report is the liquidation of a single month.
type Report struct {
	Month       YearMonth       `json:"month"`
	Lines       []ReportLine    `json:"lines"`
	TotalMine   decimal.Decimal `json:"total_mine"`
	TotalShared decimal.Decimal `json:"total_shared"`
	TotalOther  decimal.Decimal `json:"total_other"`
	HalfShared  decimal.Decimal `json:"half_shared"`
	MyPortion   decimal.Decimal `json:"my_portion"`
	TotalCard   decimal.Decimal `json:"total_card"`
}

// SummaryLine is one row of the final liquidation table.
type SummaryLine struct {
	Item  string          `json:"item"`
	Total decimal.Decimal `json:"total"`
	IPay  decimal.Decimal `json:"i_pay"`
}

// MonthTotal is one point of the future debt series.
type MonthTotal struct {
	Month       YearMonth       `json:"month"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Empty reports the "no data for this month" state.
func (r Report) Empty() bool {
	return len(r.Lines) == 0
}

// Summary returns the liquidation table: each category's total next to the
// share the reporting person pays, followed by the grand total.
func (r Report) Summary() []SummaryLine {
	return []SummaryLine{
		{Item: "(M) Mine", Total: r.TotalMine, IPay: r.TotalMine},
		{Item: "(C) Shared", Total: r.TotalShared, IPay: r.TotalShared.Sub(r.HalfShared)},
		{Item: "(O) Other", Total: r.TotalOther, IPay: decimal.Zero},
		{Item: "TOTAL", Total: r.TotalCard, IPay: r.MyPortion},
	}
}
