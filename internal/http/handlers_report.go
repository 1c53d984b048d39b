package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"cuotas/internal/core"
	"cuotas/internal/export"
	"cuotas/internal/log"
)

type reportResponse struct {
	core.Report
	Empty   bool               `json:"empty"`
	Summary []core.SummaryLine `json:"summary"`
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r, "month", s.now())
	if err != nil {
		invalid(w, r, err)
		return
	}
	report, err := s.monthlyReport(r.Context(), month)
	if err != nil {
		fail(w, r, log.OpReport, err)
		return
	}
	if report.Lines == nil {
		report.Lines = []core.ReportLine{}
	}
	writeJSON(w, http.StatusOK, reportResponse{Report: report, Empty: report.Empty(), Summary: report.Summary()})
}

// handleExportReport downloads the month's detail as CSV, or as an Excel
// workbook with format=xlsx.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r, "month", s.now())
	if err != nil {
		invalid(w, r, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		fail(w, r, log.OpExport, fmt.Errorf("%w: format must be csv or xlsx", errBadRequest))
		return
	}

	report, err := s.monthlyReport(r.Context(), month)
	if err != nil {
		fail(w, r, log.OpExport, err)
		return
	}

	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == "xlsx" {
		contentType = export.XLSXContentType
		err = export.WriteXLSX(&buf, report)
	} else {
		err = export.WriteCSV(&buf, report)
	}
	if err != nil {
		fail(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(month, format)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleFutureSeries returns the debt still due per month, starting at from
// (the current month when omitted).
func (s *Server) handleFutureSeries(w http.ResponseWriter, r *http.Request) {
	from, err := parseMonthQuery(r, "from", s.now())
	if err != nil {
		invalid(w, r, err)
		return
	}
	series, err := s.reports.FutureSeries(r.Context(), from)
	if err != nil {
		fail(w, r, log.OpProject, err)
		return
	}
	if series == nil {
		series = []core.MonthTotal{}
	}
	writeJSON(w, http.StatusOK, series)
}
