package storage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"cuotas/internal/core"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "cuotas.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func gadnic() core.Candidate {
	return core.Candidate{
		Concept:            "GADNIC",
		Category:           core.CategoryShared,
		TotalInstallments:  4,
		CurrentInstallment: 1,
		Amount:             decimal.RequireFromString("23118.16"),
	}
}

func TestAddBatchIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ref := core.NewDate(2026, 2, 1)

	res, err := repo.AddBatch(ctx, []core.Candidate{gadnic()}, ref)
	if err != nil || res.Saved != 1 || res.Duplicates != 0 {
		t.Fatalf("first add: %+v err=%v", res, err)
	}

	res, err = repo.AddBatch(ctx, []core.Candidate{gadnic()}, ref)
	if err != nil || res.Saved != 0 || res.Duplicates != 1 {
		t.Fatalf("second add: %+v err=%v", res, err)
	}

	list, err := repo.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one purchase, got %d (err=%v)", len(list), err)
	}
}

func TestAddBatchDuplicateKeyIgnoresCategoryAndCount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ref := core.NewDate(2026, 2, 1)

	if _, err := repo.AddBatch(ctx, []core.Candidate{gadnic()}, ref); err != nil {
		t.Fatalf("add: %v", err)
	}

	same := gadnic()
	same.Category = core.CategoryMine
	same.TotalInstallments = 12
	otherDay := gadnic()

	res, err := repo.AddBatch(ctx, []core.Candidate{same}, ref)
	if err != nil || res.Duplicates != 1 {
		t.Fatalf("expected duplicate, got %+v err=%v", res, err)
	}
	res, err = repo.AddBatch(ctx, []core.Candidate{otherDay}, core.NewDate(2026, 3, 1))
	if err != nil || res.Saved != 1 {
		t.Fatalf("different date should save, got %+v err=%v", res, err)
	}
}

func TestAddBatchMaterialisesPlanFromCurrentInstallment(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := gadnic()
	c.CurrentInstallment = 3
	c.TotalInstallments = 5
	res, err := repo.AddBatch(ctx, []core.Candidate{c}, core.NewDate(2026, 11, 15))
	if err != nil || res.Saved != 1 {
		t.Fatalf("add: %+v err=%v", res, err)
	}

	plan, err := repo.ListPlan(ctx, res.SavedIDs[0])
	if err != nil {
		t.Fatalf("list plan: %v", err)
	}
	want := []string{"2026-11", "2026-12", "2027-01"}
	if len(plan) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(plan))
	}
	for i, row := range plan {
		if row.InstallmentNumber != 3+i || row.DueMonth.String() != want[i] || !row.Amount.Equal(c.Amount) {
			t.Fatalf("row %d unexpected: %+v", i, row)
		}
	}

	p, err := repo.GetPurchase(ctx, res.SavedIDs[0])
	if err != nil {
		t.Fatalf("get purchase: %v", err)
	}
	if p.RegisteredDate.String() != "2026-11-15" || !p.Active || p.Category != core.CategoryShared {
		t.Fatalf("unexpected purchase: %+v", p)
	}
}

func TestAddBatchRejectsInvalidCandidatesButKeepsGoing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bad := gadnic()
	bad.Category = "Z"
	res, err := repo.AddBatch(ctx, []core.Candidate{bad, gadnic()}, core.NewDate(2026, 2, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Saved != 1 || len(res.Rejected) != 1 || res.Rejected[0].Index != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !errors.Is(res.Rejected[0].Err, core.ErrUnknownCategory) {
		t.Fatalf("unexpected rejection: %v", res.Rejected[0].Err)
	}
}

func TestAddBatchRejectsZeroReferenceDate(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.AddBatch(context.Background(), []core.Candidate{gadnic()}, core.Date{}); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestUpdateRestartsPlan(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := gadnic()
	c.CurrentInstallment = 2
	res, err := repo.AddBatch(ctx, []core.Candidate{c}, core.NewDate(2026, 2, 1))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id := res.SavedIDs[0]

	err = repo.Update(ctx, id, core.PurchaseUpdate{
		Concept:           "GADNIC SA",
		Category:          "M",
		Amount:            decimal.RequireFromString("100.50"),
		TotalInstallments: 2,
	}, core.NewDate(2026, 12, 1))
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	plan, err := repo.ListPlan(ctx, id)
	if err != nil {
		t.Fatalf("list plan: %v", err)
	}
	if len(plan) != 2 || plan[0].InstallmentNumber != 1 || plan[0].DueMonth.String() != "2026-12" || plan[1].DueMonth.String() != "2027-01" {
		t.Fatalf("unexpected plan: %+v", plan)
	}

	p, err := repo.GetPurchase(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Concept != "GADNIC SA" || p.Category != core.CategoryMine || p.TotalInstallments != 2 || !p.InstallmentAmount.Equal(decimal.RequireFromString("100.5")) {
		t.Fatalf("unexpected purchase after update: %+v", p)
	}

	if rows, _ := repo.DueRows(ctx, core.YearMonth{Year: 2026, Month: 3}); len(rows) != 0 {
		t.Fatalf("old rows should be gone, got %+v", rows)
	}
}

func TestUpdateUnknownPurchase(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.Update(context.Background(), 42, core.PurchaseUpdate{
		Concept: "x", Category: core.CategoryMine, Amount: decimal.NewFromInt(1), TotalInstallments: 1,
	}, core.NewDate(2026, 1, 1))
	if !errors.Is(err, ErrPurchaseNotFound) {
		t.Fatalf("expected ErrPurchaseNotFound, got %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := gadnic()
	c.TotalInstallments = 5
	res, err := repo.AddBatch(ctx, []core.Candidate{c}, core.NewDate(2026, 2, 1))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id := res.SavedIDs[0]
	if n, _ := repo.CountRows(ctx, id); n != 5 {
		t.Fatalf("expected 5 rows, got %d", n)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := repo.CountRows(ctx, id); n != 0 {
		t.Fatalf("expected 0 rows after delete, got %d", n)
	}
	list, _ := repo.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, ErrPurchaseNotFound) {
		t.Fatalf("expected ErrPurchaseNotFound on second delete, got %v", err)
	}
}

func TestWritesLeaveSuccessLoggingToCallers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	res, err := repo.AddBatch(ctx, []core.Candidate{gadnic()}, core.NewDate(2026, 2, 1))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id := res.SavedIDs[0]
	if err := repo.Update(ctx, id, core.PurchaseUpdate{
		Concept:           "GADNIC",
		Category:          core.CategoryMine,
		Amount:            decimal.RequireFromString("10.00"),
		TotalInstallments: 2,
	}, core.NewDate(2026, 2, 1)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if buf.Len() != 0 {
		t.Fatalf("expected no repository logs on success, got:\n%s", buf.String())
	}
}

func TestListNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, b := gadnic(), gadnic()
	b.Concept = "VISAUR"
	if _, err := repo.AddBatch(ctx, []core.Candidate{a, b}, core.NewDate(2026, 2, 1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v (%d)", err, len(list))
	}
	if list[0].Concept != "VISAUR" || list[0].ID < list[1].ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestDueRowsKeepsLegacyCategoryText(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.db.ExecContext(ctx,
		`INSERT INTO purchases (registered_date, concept, category, total_installments, installment_amount) VALUES ('2026-02-01', 'BIDCOM', 'C', 10, 2778.58)`); err != nil {
		t.Fatalf("seed purchase: %v", err)
	}
	if _, err := repo.db.ExecContext(ctx,
		`INSERT INTO installment_rows (purchase_id, installment_number, due_month, amount) VALUES (1, 1, '2026-02', 2778.58)`); err != nil {
		t.Fatalf("seed row: %v", err)
	}

	rows, err := repo.DueRows(ctx, core.YearMonth{Year: 2026, Month: 2})
	if err != nil || len(rows) != 1 {
		t.Fatalf("due rows: %v (%d)", err, len(rows))
	}
	if rows[0].Category != "C" || rows[0].TotalInstallments != 10 || !rows[0].Amount.Equal(decimal.RequireFromString("2778.58")) {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestRowsFromAndDueMonths(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	res, err := repo.AddBatch(ctx, []core.Candidate{gadnic()}, core.NewDate(2026, 11, 1))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	rows, err := repo.RowsFrom(ctx, core.YearMonth{Year: 2027, Month: 1})
	if err != nil || len(rows) != 2 {
		t.Fatalf("rows from: %v (%d)", err, len(rows))
	}
	if rows[0].DueMonth.String() != "2027-01" || rows[1].DueMonth.String() != "2027-02" {
		t.Fatalf("unexpected order: %+v", rows)
	}

	months, err := repo.DueMonths(ctx, res.SavedIDs[0])
	if err != nil || len(months) != 4 || months[0].String() != "2026-11" {
		t.Fatalf("unexpected months %v err=%v", months, err)
	}
}
