package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cuotas/internal/amqp"
	"cuotas/internal/core"
	"cuotas/internal/log"
	"cuotas/internal/sheets"
)

// Reporter computes the liquidations the worker exports.
type Reporter interface {
	MonthlyReport(ctx context.Context, month core.YearMonth) (core.Report, error)
	FutureSeries(ctx context.Context, from core.YearMonth) ([]core.MonthTotal, error)
}

// SyncWorker keeps the exported liquidation sheets in step with the store.
type SyncWorker struct {
	reports Reporter
	store   sheets.LiquidationStore
	logger  *log.Logger
	now     func() time.Time
}

func NewSyncWorker(reports Reporter, store sheets.LiquidationStore, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{
		reports: reports,
		store:   store,
		logger:  logger.WithComponent(log.ComponentWorker),
		now:     time.Now,
	}
}

// HandlePurchaseChanged rewrites the liquidation of every month the change
// touched. Unparseable months are skipped; export failures are returned so
// the message is redelivered.
func (w *SyncWorker) HandlePurchaseChanged(ctx context.Context, msg *amqp.PurchaseChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing purchase change",
		log.FieldPurchaseID, msg.ID,
		"action", msg.Action,
		"months", len(msg.Months))

	var errs []error
	for _, raw := range msg.Months {
		month, err := core.ParseYearMonth(raw)
		if err != nil {
			w.logger.WarnContext(ctx, "Skipping invalid month in change message",
				log.FieldPurchaseID, msg.ID, log.FieldMonth, raw)
			continue
		}
		if err := w.SyncMonth(ctx, month); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SyncMonth exports the month's liquidation. An empty month is written too,
// so a sheet left over from deleted purchases is cleared. The write is
// skipped when the exported copy already matches.
func (w *SyncWorker) SyncMonth(ctx context.Context, month core.YearMonth) error {
	report, err := w.reports.MonthlyReport(ctx, month)
	if err != nil {
		return fmt.Errorf("report %s: %w", month, err)
	}

	stored, ok, err := w.store.ReadLiquidation(ctx, month)
	switch {
	case err != nil:
		w.logger.WarnContext(ctx, "Could not read exported liquidation, rewriting",
			log.FieldMonth, month.String(), log.FieldError, err.Error())
	case ok && sameLiquidation(stored, report):
		w.logger.DebugContext(ctx, "Liquidation unchanged, skipping export",
			log.FieldOperation, log.OpSync,
			log.FieldMonth, month.String())
		return nil
	}

	if err := w.store.WriteLiquidation(ctx, report); err != nil {
		w.logger.LogError(ctx, "Liquidation export failed", err, log.OpSync,
			log.NewFields().WithMonth(month.String()))
		return fmt.Errorf("write liquidation %s: %w", month, err)
	}
	w.logger.InfoContext(ctx, "Liquidation exported",
		log.FieldOperation, log.OpSync,
		log.FieldMonth, month.String(),
		"lines", len(report.Lines),
		"total_card", report.TotalCard.StringFixed(2))
	return nil
}

// SyncFromCurrentMonth exports the current month and every later month with
// installments due. It recovers from messages lost while the worker was down.
func (w *SyncWorker) SyncFromCurrentMonth(ctx context.Context) error {
	now := w.now()
	from := core.NewYearMonth(now.Year(), now.Month())

	series, err := w.reports.FutureSeries(ctx, from)
	if err != nil {
		return fmt.Errorf("future series from %s: %w", from, err)
	}

	months := []core.YearMonth{from}
	for _, m := range series {
		if m.Month != from {
			months = append(months, m.Month)
		}
	}

	synced, failed := 0, 0
	var errs []error
	for _, m := range months {
		if err := w.SyncMonth(ctx, m); err != nil {
			failed++
			errs = append(errs, err)
			continue
		}
		synced++
	}
	w.logger.InfoContext(ctx, "Startup sync completed",
		log.FieldOperation, log.OpSync,
		"synced", synced,
		"failed", failed)
	return errors.Join(errs...)
}

// PeriodicResync repeats SyncFromCurrentMonth every interval until ctx is
// done. Failures are logged and retried on the next tick.
func (w *SyncWorker) PeriodicResync(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.SyncFromCurrentMonth(ctx); err != nil {
				w.logger.WarnContext(ctx, "Periodic resync failed", log.FieldError, err.Error())
			}
		}
	}
}

// sameLiquidation compares what the sheet shows: the detail lines and the
// summary totals.
func sameLiquidation(a, b core.Report) bool {
	if len(a.Lines) != len(b.Lines) {
		return false
	}
	for i := range a.Lines {
		x, y := a.Lines[i], b.Lines[i]
		if x.Concept != y.Concept || x.Category != y.Category ||
			x.InstallmentNumber != y.InstallmentNumber ||
			x.TotalInstallments != y.TotalInstallments ||
			!x.Amount.Equal(y.Amount) {
			return false
		}
	}
	return a.TotalMine.Equal(b.TotalMine) &&
		a.TotalShared.Equal(b.TotalShared) &&
		a.TotalOther.Equal(b.TotalOther) &&
		a.TotalCard.Equal(b.TotalCard) &&
		a.MyPortion.Equal(b.MyPortion)
}
