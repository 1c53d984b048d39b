package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cuotas/internal/core"
	ports "cuotas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
	SheetPrefix        string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetPrefix   string
}

// Ensure interface conformance
var (
	_ ports.LiquidationWriter = (*Client)(nil)
	_ ports.LiquidationReader = (*Client)(nil)
)

func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetPrefix:   cfg.SheetPrefix,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	var err error

	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		credentialsJSON = []byte(cfg.ServiceAccountJSON)
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		credentialsJSON, err = os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	slog.DebugContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithUserAgent("cuotas"))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// WriteLiquidation replaces the month's sheet with the report, creating the
// sheet on first use.
func (c *Client) WriteLiquidation(ctx context.Context, r core.Report) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	name := sheetName(c.sheetPrefix, r.Month)

	if err := c.ensureSheet(ctx, name); err != nil {
		return err
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, a1Range(name, "A:Z"), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", name, err)
	}

	vr := &gsheet.ValueRange{Values: liquidationValues(r)}
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1Range(name, "A1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update sheet %s: %w", name, err)
	}

	slog.InfoContext(ctx, "Liquidation written to sheet",
		"sheet", name,
		"month", r.Month.String(),
		"lines", len(r.Lines),
		"updated_cells", resp.UpdatedCells)
	return nil
}

// ReadLiquidation reads back the month's sheet. The bool is false when the
// sheet does not exist.
func (c *Client) ReadLiquidation(ctx context.Context, month core.YearMonth) (core.Report, bool, error) {
	if c.svc == nil {
		return core.Report{}, false, errors.New("sheets service not initialized")
	}
	name := sheetName(c.sheetPrefix, month)

	exists, err := c.hasSheet(ctx, name)
	if err != nil {
		return core.Report{}, false, err
	}
	if !exists {
		return core.Report{}, false, nil
	}

	rng := a1Range(name, "A:E")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return core.Report{}, false, fmt.Errorf("read %s: %w", rng, err)
	}
	r, err := parseLiquidation(resp.Values, month)
	if err != nil {
		return core.Report{}, false, err
	}
	return r, true, nil
}

func (c *Client) hasSheet(ctx context.Context, name string) (bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) ensureSheet(ctx context.Context, name string) error {
	exists, err := c.hasSheet(ctx, name)
	if err != nil || exists {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: name},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}
	slog.InfoContext(ctx, "Created liquidation sheet", "sheet", name)
	return nil
}
