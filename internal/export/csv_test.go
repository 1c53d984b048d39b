package export

import (
	"bytes"
	"errors"
	"testing"

	"cuotas/internal/core"

	"github.com/shopspring/decimal"
)

func TestWriteCSV(t *testing.T) {
	report := core.Report{
		Month: core.NewYearMonth(2026, 2),
		Lines: []core.ReportLine{
			{Concept: "GADNIC", InstallmentNumber: 1, TotalInstallments: 3, RemainingInstallments: 2, Amount: decimal.RequireFromString("23118.16")},
			{Concept: "TIO MUSA SA, CTES", InstallmentNumber: 1, TotalInstallments: 22, RemainingInstallments: 21, Amount: decimal.RequireFromString("2345.5")},
		},
	}

	var b bytes.Buffer
	if err := WriteCSV(&b, report); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	want := "Concept,RemainingInstallments,Amount\n" +
		"GADNIC,2,23118.16\n" +
		"\"TIO MUSA SA, CTES\",21,2345.50\n"
	if b.String() != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", b.String(), want)
	}
}

func TestWriteCSVEmptyReport(t *testing.T) {
	var b bytes.Buffer
	if err := WriteCSV(&b, core.Report{}); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if b.String() != "Concept,RemainingInstallments,Amount\n" {
		t.Fatalf("expected header only, got %q", b.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteCSVPropagatesWriterError(t *testing.T) {
	if err := WriteCSV(failingWriter{}, core.Report{}); err == nil {
		t.Fatal("expected error from failing writer")
	}
}

func TestFileName(t *testing.T) {
	month := core.NewYearMonth(2027, 1)
	if got := FileName(month, "csv"); got != "liquidacion-2027-01.csv" {
		t.Fatalf("unexpected file name %q", got)
	}
	if got := FileName(month, "xlsx"); got != "liquidacion-2027-01.xlsx" {
		t.Fatalf("unexpected file name %q", got)
	}
}
