package memory

import (
	"context"
	"testing"

	"cuotas/internal/core"

	"github.com/shopspring/decimal"
)

func TestMemoryStoreReplacesMonth(t *testing.T) {
	s := New()
	ctx := context.Background()
	feb := core.NewYearMonth(2026, 2)

	if _, ok, _ := s.ReadLiquidation(ctx, feb); ok {
		t.Fatal("expected empty store")
	}

	first := core.Report{Month: feb, TotalCard: decimal.NewFromInt(100)}
	second := core.Report{Month: feb, TotalCard: decimal.NewFromInt(250)}
	if err := s.WriteLiquidation(ctx, first); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.WriteLiquidation(ctx, second); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, ok, err := s.ReadLiquidation(ctx, feb)
	if err != nil || !ok {
		t.Fatalf("unexpected read: ok=%v err=%v", ok, err)
	}
	if !got.TotalCard.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected latest report, got %s", got.TotalCard)
	}
	if s.Writes() != 2 {
		t.Fatalf("expected 2 writes, got %d", s.Writes())
	}
}

func TestMemoryStoreCopiesLines(t *testing.T) {
	s := New()
	ctx := context.Background()
	r := core.Report{Month: core.NewYearMonth(2026, 3), Lines: []core.ReportLine{{Concept: "GADNIC"}}}
	s.WriteLiquidation(ctx, r)
	r.Lines[0].Concept = "changed"

	got, _, _ := s.ReadLiquidation(ctx, r.Month)
	if got.Lines[0].Concept != "GADNIC" {
		t.Fatalf("stored report aliased caller slice: %q", got.Lines[0].Concept)
	}
}
