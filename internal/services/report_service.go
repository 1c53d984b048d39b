package services

import (
	"context"
	"fmt"

	"cuotas/internal/core"
	"cuotas/internal/log"
)

// RowReader is the read side of the store used for reporting.
type RowReader interface {
	DueRows(ctx context.Context, month core.YearMonth) ([]core.DueRow, error)
	RowsFrom(ctx context.Context, month core.YearMonth) ([]core.InstallmentRow, error)
}

// ReportService computes monthly liquidations and the future debt series.
type ReportService struct {
	rows   RowReader
	logger *log.Logger
}

func NewReportService(rows RowReader, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReportService{rows: rows, logger: logger.WithComponent(log.ComponentReport)}
}

// MonthlyReport liquidates month. A month without rows yields an empty
// report, not an error.
func (s *ReportService) MonthlyReport(ctx context.Context, month core.YearMonth) (core.Report, error) {
	rows, err := s.rows.DueRows(ctx, month)
	if err != nil {
		return core.Report{}, fmt.Errorf("load rows for %s: %w", month, err)
	}

	report, unresolved := core.Liquidate(month, rows)
	if len(unresolved) > 0 {
		s.logger.WarnContext(ctx, "Rows with unknown category excluded from totals",
			log.FieldMonth, month.String(),
			"purchase_ids", unresolved)
	}
	s.logger.DebugContext(ctx, "Monthly report computed",
		log.FieldOperation, log.OpReport,
		log.FieldMonth, month.String(),
		"lines", len(report.Lines),
		"total_card", report.TotalCard.String())
	return report, nil
}

// FutureSeries returns the total due per month from month from onwards.
func (s *ReportService) FutureSeries(ctx context.Context, from core.YearMonth) ([]core.MonthTotal, error) {
	rows, err := s.rows.RowsFrom(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("load rows from %s: %w", from, err)
	}
	series := core.Project(from, rows)
	s.logger.DebugContext(ctx, "Future series computed",
		log.FieldOperation, log.OpProject,
		log.FieldMonth, from.String(),
		"months", len(series))
	return series, nil
}
