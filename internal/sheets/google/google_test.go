package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cuotas/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheetsAPI serves the subset of the Sheets v4 REST API used by Client.
type fakeSheetsAPI struct {
	mu     sync.Mutex
	titles []string
	calls  []string
	values [][]any
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && !strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "get")
		sheets := make([]map[string]any, 0, len(f.titles))
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "batchUpdate")
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, q := range req.Requests {
			if q.AddSheet != nil {
				f.titles = append(f.titles, q.AddSheet.Properties.Title)
			}
		}
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		f.values = nil
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update")
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.values = vr.Values
		io.WriteString(w, `{"updatedCells": 12}`)
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "values")
		json.NewEncoder(w).Encode(map[string]any{"values": f.values})
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, api *fakeSheetsAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &Client{svc: svc, spreadsheetID: "sheet-id", sheetPrefix: "Liquidacion"}
}

func TestWriteLiquidationCreatesSheetOnce(t *testing.T) {
	api := &fakeSheetsAPI{titles: []string{"Sheet1"}}
	c := newTestClient(t, api)
	ctx := context.Background()
	r := sampleReport()

	if err := c.WriteLiquidation(ctx, r); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := c.WriteLiquidation(ctx, r); err != nil {
		t.Fatalf("second write: %v", err)
	}

	want := []string{"get", "batchUpdate", "clear", "update", "get", "clear", "update"}
	if strings.Join(api.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected calls %v, want %v", api.calls, want)
	}
	if len(api.titles) != 2 || api.titles[1] != "Liquidacion 2026-02" {
		t.Fatalf("unexpected sheets %v", api.titles)
	}
	if len(api.values) != 10 {
		t.Fatalf("expected 10 rows written, got %d", len(api.values))
	}
	if total := toStrings(api.values[9]); total[0] != "TOTAL" {
		t.Fatalf("expected TOTAL as last row, got %v", total)
	}
}

func TestReadLiquidation(t *testing.T) {
	api := &fakeSheetsAPI{titles: []string{"Sheet1"}}
	c := newTestClient(t, api)
	ctx := context.Background()

	_, ok, err := c.ReadLiquidation(ctx, core.NewYearMonth(2026, 2))
	if err != nil || ok {
		t.Fatalf("expected missing sheet, got ok=%v err=%v", ok, err)
	}

	want := sampleReport()
	if err := c.WriteLiquidation(ctx, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, ok, err := c.ReadLiquidation(ctx, want.Month)
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	if !got.TotalCard.Equal(want.TotalCard) || len(got.Lines) != 3 {
		t.Fatalf("unexpected report %+v", got)
	}
}

func TestWriteLiquidationWithoutService(t *testing.T) {
	c := &Client{}
	if err := c.WriteLiquidation(context.Background(), sampleReport()); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, Config{ServiceAccountJSON: "{}"}); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}
	if _, err := New(ctx, Config{SpreadsheetID: "x"}); err == nil {
		t.Fatal("expected error without credentials")
	}
}
