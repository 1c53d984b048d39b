package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"cuotas/internal/amqp"
	"cuotas/internal/core"
	"cuotas/internal/log"
	"cuotas/internal/storage"
)

// PurchaseStore is the persistence port used by PurchaseService.
type PurchaseStore interface {
	AddBatch(ctx context.Context, candidates []core.Candidate, referenceDate core.Date) (storage.BatchResult, error)
	Update(ctx context.Context, id int64, u core.PurchaseUpdate, originDate core.Date) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]core.Purchase, error)
	GetPurchase(ctx context.Context, id int64) (core.Purchase, error)
	ListPlan(ctx context.Context, purchaseID int64) ([]core.InstallmentRow, error)
	DueMonths(ctx context.Context, purchaseID int64) ([]core.YearMonth, error)
}

// ChangePublisher announces committed purchase changes.
type ChangePublisher interface {
	PublishPurchaseChanged(ctx context.Context, id int64, action string, months []string) error
}

// ChangeListener is notified in-process after every committed change.
type ChangeListener func(months []core.YearMonth)

// PurchaseService orchestrates purchase operations across SQLite and AMQP.
type PurchaseService struct {
	store     PurchaseStore
	publisher ChangePublisher
	listeners []ChangeListener
	logger    *log.Logger
}

// NewPurchaseService wires the store with an optional publisher. A nil
// publisher disables change notifications.
func NewPurchaseService(store PurchaseStore, publisher ChangePublisher, logger *log.Logger) *PurchaseService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &PurchaseService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentPurchase),
	}
}

// OnChange registers fn to run after every committed change.
func (s *PurchaseService) OnChange(fn ChangeListener) {
	s.listeners = append(s.listeners, fn)
}

// AddBatch stores candidates registered on referenceDate. Duplicates are
// counted, invalid candidates are reported in the result, and a storage
// failure is returned along with the counts reached so far.
func (s *PurchaseService) AddBatch(ctx context.Context, candidates []core.Candidate, referenceDate core.Date) (storage.BatchResult, error) {
	res, err := s.store.AddBatch(ctx, candidates, referenceDate)

	fields := log.NewFields().WithOperation(log.OpCreate).
		WithBatch(res.Saved, res.Duplicates, len(res.Rejected))
	fields[log.FieldCandidates] = len(candidates)
	if err != nil {
		s.logger.LogError(ctx, "Batch store failed", err, log.OpCreate, fields)
	} else {
		s.logger.InfoContext(ctx, "Batch stored", fields.ToSlice()...)
	}

	for _, id := range res.SavedIDs {
		months, merr := s.store.DueMonths(ctx, id)
		if merr != nil {
			s.logger.WarnContext(ctx, "Cannot load plan months for notification",
				log.FieldPurchaseID, id, log.FieldError, merr.Error())
			continue
		}
		s.notify(ctx, id, amqp.ActionCreated, months)
	}

	if err != nil {
		return res, fmt.Errorf("add batch: %w", err)
	}
	return res, nil
}

// AddManual stores a single purchase whose plan starts at installment 1.
func (s *PurchaseService) AddManual(ctx context.Context, c core.Candidate, date core.Date) (storage.BatchResult, error) {
	c.CurrentInstallment = 1
	return s.AddBatch(ctx, []core.Candidate{c}, date)
}

// Update replaces a purchase's fields and restarts its plan at installment 1
// from the purchase's registered date.
func (s *PurchaseService) Update(ctx context.Context, id int64, u core.PurchaseUpdate) error {
	p, err := s.store.GetPurchase(ctx, id)
	if err != nil {
		return fmt.Errorf("get purchase %d: %w", id, err)
	}
	before, err := s.store.DueMonths(ctx, id)
	if err != nil {
		return fmt.Errorf("load plan months: %w", err)
	}

	if err := s.store.Update(ctx, id, u, p.RegisteredDate); err != nil {
		return fmt.Errorf("update purchase %d: %w", id, err)
	}

	after, err := s.store.DueMonths(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "Cannot load plan months for notification",
			log.FieldPurchaseID, id, log.FieldError, err.Error())
	}

	s.logger.InfoContext(ctx, "Purchase updated", log.NewFields().
		WithOperation(log.OpUpdate).
		WithPurchase(id, u.Concept, string(u.Category), u.Amount.String()).ToSlice()...)
	s.notify(ctx, id, amqp.ActionUpdated, mergeMonths(before, after))
	return nil
}

// Delete removes a purchase and its plan.
func (s *PurchaseService) Delete(ctx context.Context, id int64) error {
	months, err := s.store.DueMonths(ctx, id)
	if err != nil {
		return fmt.Errorf("load plan months: %w", err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete purchase %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Purchase deleted",
		log.FieldOperation, log.OpDelete, log.FieldPurchaseID, id)
	s.notify(ctx, id, amqp.ActionDeleted, months)
	return nil
}

func (s *PurchaseService) List(ctx context.Context) ([]core.Purchase, error) {
	purchases, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return purchases, nil
}

// Plan returns the purchase together with its installment rows.
func (s *PurchaseService) Plan(ctx context.Context, id int64) (core.Purchase, []core.InstallmentRow, error) {
	p, err := s.store.GetPurchase(ctx, id)
	if err != nil {
		return core.Purchase{}, nil, fmt.Errorf("get purchase %d: %w", id, err)
	}
	rows, err := s.store.ListPlan(ctx, id)
	if err != nil {
		return core.Purchase{}, nil, fmt.Errorf("list plan %d: %w", id, err)
	}
	return p, rows, nil
}

// notify runs in-process listeners and publishes the change. Publish
// failures are logged; the change is already committed.
func (s *PurchaseService) notify(ctx context.Context, id int64, action string, months []core.YearMonth) {
	for _, fn := range s.listeners {
		fn(months)
	}
	if s.publisher == nil {
		return
	}

	keys := make([]string, len(months))
	for i, m := range months {
		keys[i] = m.String()
	}
	if err := s.publisher.PublishPurchaseChanged(ctx, id, action, keys); err != nil {
		msg := "Failed to publish purchase change"
		if errors.Is(err, amqp.ErrCircuitOpen) {
			msg = "Skipped purchase change publish, circuit open"
		}
		s.logger.WarnContext(ctx, msg,
			log.FieldPurchaseID, id,
			"action", action,
			log.FieldError, err.Error())
	}
}

// mergeMonths returns the sorted union of a and b.
func mergeMonths(a, b []core.YearMonth) []core.YearMonth {
	out := make([]core.YearMonth, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.SortFunc(out, func(x, y core.YearMonth) int { return x.Compare(y) })
	return slices.Compact(out)
}

// Close closes the store when it owns resources.
func (s *PurchaseService) Close() error {
	if c, ok := s.store.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close purchase service: %w", err)
		}
	}
	return nil
}
