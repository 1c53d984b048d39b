package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cuotas/internal/core"

	_ "modernc.org/sqlite"
)

var ErrPurchaseNotFound = errors.New("purchase not found")

// BatchResult reports the outcome of AddBatch. Rejected candidates are listed
// with their position in the batch; they are not written.
type BatchResult struct {
	Saved      int
	Duplicates int
	SavedIDs   []int64
	Rejected   []RejectedCandidate
}

type RejectedCandidate struct {
	Index   int
	Concept string
	Err     error
}

// SQLiteRepository owns purchases and their installment rows. It assumes a
// single writer; callers serialise access.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AddBatch stores each non-duplicate candidate as a purchase registered on
// referenceDate and materialises its plan from the candidate's current
// installment. A candidate is a duplicate when a purchase with the same
// concept, installment amount and registered date already exists.
//
// Each candidate is written in its own transaction, so partial success is the
// normal outcome. A storage failure stops the batch and is returned together
// with the counts so far.
func (r *SQLiteRepository) AddBatch(ctx context.Context, candidates []core.Candidate, referenceDate core.Date) (BatchResult, error) {
	var res BatchResult
	if err := referenceDate.Validate(); err != nil {
		return res, err
	}

	for i, c := range candidates {
		if err := c.Validate(); err != nil {
			res.Rejected = append(res.Rejected, RejectedCandidate{Index: i, Concept: c.Concept, Err: err})
			slog.WarnContext(ctx, "Candidate rejected", "index", i, "concept", c.Concept, "error", err)
			continue
		}

		id, saved, err := r.addCandidate(ctx, c, referenceDate)
		if err != nil {
			return res, fmt.Errorf("candidate %d (%s): %w", i, c.Concept, err)
		}
		if !saved {
			res.Duplicates++
			continue
		}
		res.Saved++
		res.SavedIDs = append(res.SavedIDs, id)
	}

	return res, nil
}

func (r *SQLiteRepository) addCandidate(ctx context.Context, c core.Candidate, ref core.Date) (int64, bool, error) {
	category, _ := core.ParseCategory(string(c.Category))

	var id int64
	saved := false
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var existing int64
		err := tx.QueryRowContext(ctx, qFindDuplicate, c.Concept, c.Amount.String(), ref.String()).Scan(&existing)
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check duplicate: %w", err)
		}

		res, err := tx.ExecContext(ctx, qInsertPurchase,
			ref.String(), c.Concept, category.String(), c.TotalInstallments, c.Amount.String())
		if err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("purchase id: %w", err)
		}

		rows, err := core.GeneratePlan(id, c.CurrentInstallment, c.TotalInstallments, c.Amount, ref)
		if err != nil {
			return err
		}
		if err := insertRows(ctx, tx, rows); err != nil {
			return err
		}
		saved = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return id, saved, nil
}

// Update replaces the purchase's mutable fields and rebuilds its plan from
// installment 1 using originDate as the base month. Progress on the previous
// plan is discarded.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, u core.PurchaseUpdate, originDate core.Date) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if err := originDate.Validate(); err != nil {
		return err
	}
	category, _ := core.ParseCategory(string(u.Category))

	rows, err := core.GeneratePlan(id, 1, u.TotalInstallments, u.Amount, originDate)
	if err != nil {
		return err
	}

	err = r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, qUpdatePurchase,
			u.Concept, category.String(), u.Amount.String(), u.TotalInstallments, id)
		if err != nil {
			return fmt.Errorf("update purchase: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n == 0 {
			return ErrPurchaseNotFound
		}

		if _, err := tx.ExecContext(ctx, qDeleteRowsForPurchase, id); err != nil {
			return fmt.Errorf("delete plan: %w", err)
		}
		return insertRows(ctx, tx, rows)
	})
	if err != nil {
		return err
	}

	return nil
}

// Delete removes the purchase's rows and then the purchase, atomically.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, qDeleteRowsForPurchase, id); err != nil {
			return fmt.Errorf("delete plan: %w", err)
		}
		res, err := tx.ExecContext(ctx, qDeletePurchase, id)
		if err != nil {
			return fmt.Errorf("delete purchase: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n == 0 {
			return ErrPurchaseNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

// List returns all purchases, newest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]core.Purchase, error) {
	rows, err := r.db.QueryContext(ctx, qListPurchases)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var out []core.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetPurchase(ctx context.Context, id int64) (core.Purchase, error) {
	p, err := scanPurchase(r.db.QueryRowContext(ctx, qGetPurchase, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Purchase{}, ErrPurchaseNotFound
	}
	return p, err
}

// ListPlan returns the purchase's rows ordered by installment number.
func (r *SQLiteRepository) ListPlan(ctx context.Context, purchaseID int64) ([]core.InstallmentRow, error) {
	rows, err := r.db.QueryContext(ctx, qListPlan, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("list plan: %w", err)
	}
	return collectRows(rows)
}

// DueRows returns the rows due in month joined with their purchases.
func (r *SQLiteRepository) DueRows(ctx context.Context, month core.YearMonth) ([]core.DueRow, error) {
	rows, err := r.db.QueryContext(ctx, qDueRows, month.String())
	if err != nil {
		return nil, fmt.Errorf("due rows: %w", err)
	}
	defer rows.Close()

	var out []core.DueRow
	for rows.Next() {
		var (
			d        core.DueRow
			category string
		)
		if err := rows.Scan(&d.PurchaseID, &d.Concept, &category, &d.TotalInstallments, &d.InstallmentNumber, &d.Amount); err != nil {
			return nil, fmt.Errorf("scan due row: %w", err)
		}
		d.Category = core.Category(category)
		out = append(out, d)
	}
	return out, rows.Err()
}

// RowsFrom returns every row due in month or later.
func (r *SQLiteRepository) RowsFrom(ctx context.Context, month core.YearMonth) ([]core.InstallmentRow, error) {
	rows, err := r.db.QueryContext(ctx, qRowsFrom, month.String())
	if err != nil {
		return nil, fmt.Errorf("rows from %s: %w", month, err)
	}
	return collectRows(rows)
}

// DueMonths lists the distinct months the purchase has rows in.
func (r *SQLiteRepository) DueMonths(ctx context.Context, purchaseID int64) ([]core.YearMonth, error) {
	rows, err := r.db.QueryContext(ctx, qDueMonths, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("due months: %w", err)
	}
	defer rows.Close()

	var out []core.YearMonth
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan due month: %w", err)
		}
		ym, err := core.ParseYearMonth(s)
		if err != nil {
			return nil, err
		}
		out = append(out, ym)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountRows(ctx context.Context, purchaseID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, qCountRows, purchaseID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, rows []core.InstallmentRow) error {
	stmt, err := tx.PrepareContext(ctx, qInsertRow)
	if err != nil {
		return fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.PurchaseID, row.InstallmentNumber, row.DueMonth.String(), row.Amount.String()); err != nil {
			return fmt.Errorf("insert installment %d: %w", row.InstallmentNumber, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPurchase(s scanner) (core.Purchase, error) {
	var (
		p        core.Purchase
		date     string
		category string
	)
	if err := s.Scan(&p.ID, &date, &p.Concept, &category, &p.TotalInstallments, &p.InstallmentAmount, &p.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan purchase: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return p, fmt.Errorf("purchase %d: %w", p.ID, err)
	}
	p.RegisteredDate = d
	p.Category = core.Category(category)
	return p, nil
}

func collectRows(rows *sql.Rows) ([]core.InstallmentRow, error) {
	defer rows.Close()

	var out []core.InstallmentRow
	for rows.Next() {
		var (
			row core.InstallmentRow
			due string
		)
		if err := rows.Scan(&row.ID, &row.PurchaseID, &row.InstallmentNumber, &due, &row.Amount); err != nil {
			return nil, fmt.Errorf("scan installment row: %w", err)
		}
		ym, err := core.ParseYearMonth(due)
		if err != nil {
			return nil, err
		}
		row.DueMonth = ym
		out = append(out, row)
	}
	return out, rows.Err()
}
