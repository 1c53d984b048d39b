package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestProject(t *testing.T) {
	a, _ := GeneratePlan(1, 1, 4, dec("23118.16"), NewDate(2026, 2, 1))
	b, _ := GeneratePlan(2, 2, 3, dec("100"), NewDate(2026, 3, 1))
	rows := append(a, b...)

	series := Project(YearMonth{2026, time.March}, rows)
	want := []struct {
		month string
		total string
	}{
		{"2026-03", "23218.16"},
		{"2026-04", "23218.16"},
		{"2026-05", "23118.16"},
	}
	if len(series) != len(want) {
		t.Fatalf("expected %d months, got %+v", len(want), series)
	}
	for i, w := range want {
		if series[i].Month.String() != w.month || !series[i].TotalAmount.Equal(dec(w.total)) {
			t.Fatalf("entry %d: got %s=%s, want %s=%s", i, series[i].Month, series[i].TotalAmount, w.month, w.total)
		}
	}
}

func TestProjectEmpty(t *testing.T) {
	rows, _ := GeneratePlan(1, 1, 2, decimal.NewFromInt(5), NewDate(2025, 1, 1))
	if got := Project(YearMonth{2026, time.January}, rows); len(got) != 0 {
		t.Fatalf("expected no future debt, got %+v", got)
	}
}
