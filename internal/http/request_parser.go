package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cuotas/internal/core"
)

const (
	maxJSONBody  = 1 << 20
	maxImageBody = 10 << 20
)

var errBadRequest = errors.New("bad request")

// decodeJSON reads a single JSON document from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

// parseID reads the {id} path value.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid purchase id %q", errBadRequest, raw)
	}
	return id, nil
}

// parseMonthQuery reads a YYYY-MM query parameter, defaulting to the month
// of now.
func parseMonthQuery(r *http.Request, key string, now time.Time) (core.YearMonth, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return core.NewYearMonth(now.Year(), now.Month()), nil
	}
	return core.ParseYearMonth(v)
}

// parseDateValue parses a request date, defaulting to today.
func parseDateValue(v string, now time.Time) (core.Date, error) {
	if strings.TrimSpace(v) == "" {
		return core.NewDate(now.Year(), int(now.Month()), now.Day()), nil
	}
	return core.ParseDate(v)
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
