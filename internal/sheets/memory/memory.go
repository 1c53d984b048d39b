package memory

import (
	"context"
	"sync"

	"cuotas/internal/core"
	ports "cuotas/internal/sheets"
)

var (
	_ ports.LiquidationWriter = (*Store)(nil)
	_ ports.LiquidationReader = (*Store)(nil)
)

// Store keeps the last liquidation written for each month in memory.
type Store struct {
	mu      sync.Mutex
	byMonth map[core.YearMonth]core.Report
	writes  int
}

func New() *Store {
	return &Store{byMonth: make(map[core.YearMonth]core.Report)}
}

// WriteLiquidation replaces the stored report for r.Month.
func (s *Store) WriteLiquidation(_ context.Context, r core.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Lines = append([]core.ReportLine(nil), r.Lines...)
	s.byMonth[r.Month] = r
	s.writes++
	return nil
}

func (s *Store) ReadLiquidation(_ context.Context, month core.YearMonth) (core.Report, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byMonth[month]
	return r, ok, nil
}

// Writes returns the number of WriteLiquidation calls so far.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
