package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GeneratePlan expands a purchase into its installment rows, from
// startInstallment through totalInstallments inclusive. Row i falls due
// (i - startInstallment) months after baseDate's month; every row carries the
// full per-installment amount.
func GeneratePlan(purchaseID int64, startInstallment, totalInstallments int, amount decimal.Decimal, baseDate Date) ([]InstallmentRow, error) {
	if startInstallment < 1 || totalInstallments < startInstallment {
		return nil, fmt.Errorf("%w: installment %d of %d", ErrInvalidInstallments, startInstallment, totalInstallments)
	}

	base := YearMonthOf(baseDate)
	rows := make([]InstallmentRow, 0, totalInstallments-startInstallment+1)
	for i := startInstallment; i <= totalInstallments; i++ {
		rows = append(rows, InstallmentRow{
			PurchaseID:        purchaseID,
			InstallmentNumber: i,
			DueMonth:          base.AddMonths(i - startInstallment),
			Amount:            amount,
		})
	}
	return rows, nil
}
