// Package extract turns card statement images into candidate purchases.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cuotas/internal/core"

	"github.com/shopspring/decimal"
)

// Extractor reads a statement image and proposes purchases found in it.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) ([]core.Candidate, error)
}

var ErrMalformedResponse = errors.New("malformed extraction response")

// Accepted keys per field, compared after lowercasing and dropping accents,
// spaces and underscores.
var (
	conceptKeys  = []string{"concept", "concepto", "description"}
	categoryKeys = []string{"category", "categoria"}
	currentKeys  = []string{"currentinstallment", "cuotaactual", "installment"}
	totalKeys    = []string{"totalinstallments", "totalcuotas", "installments"}
	amountKeys   = []string{"amount", "monto", "importe"}
)

// ParseCandidates decodes a model reply into candidates. The reply may be
// wrapped in Markdown code fences and may hold a JSON array or a single
// object. Amounts and installment numbers are accepted as numbers or strings;
// a missing current installment defaults to 1 and a missing total to the
// current installment. Categories are normalised when recognised and kept
// verbatim otherwise, so the store can report them as rejected.
func ParseCandidates(text string) ([]core.Candidate, error) {
	body := stripFences(text)
	if body == "" {
		return nil, nil
	}

	var items []map[string]json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal([]byte(body), &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	case '{':
		var item map[string]json.RawMessage
		if err := json.Unmarshal([]byte(body), &item); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		items = append(items, item)
	default:
		return nil, fmt.Errorf("%w: expected JSON, got %q", ErrMalformedResponse, truncate(body, 40))
	}

	out := make([]core.Candidate, 0, len(items))
	for i, item := range items {
		c, err := parseItem(normalizeKeys(item))
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrMalformedResponse, i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseItem(item map[string]json.RawMessage) (core.Candidate, error) {
	var c core.Candidate

	concept, err := stringField(item, conceptKeys)
	if err != nil {
		return c, fmt.Errorf("concept: %w", err)
	}
	c.Concept = strings.TrimSpace(concept)

	category, err := stringField(item, categoryKeys)
	if err != nil {
		return c, fmt.Errorf("category: %w", err)
	}
	if parsed, perr := core.ParseCategory(category); perr == nil {
		c.Category = parsed
	} else {
		c.Category = core.Category(strings.TrimSpace(category))
	}

	if c.CurrentInstallment, err = intField(item, currentKeys, 1); err != nil {
		return c, fmt.Errorf("current installment: %w", err)
	}
	if c.TotalInstallments, err = intField(item, totalKeys, c.CurrentInstallment); err != nil {
		return c, fmt.Errorf("total installments: %w", err)
	}

	raw, ok := lookup(item, amountKeys)
	if !ok {
		return c, errors.New("amount: missing")
	}
	if c.Amount, err = decodeAmount(raw); err != nil {
		return c, fmt.Errorf("amount: %w", err)
	}
	return c, nil
}

func stripFences(text string) string {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n",
	" ", "", "_", "", "-", "",
)

func normalizeKeys(item map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(item))
	for k, v := range item {
		out[accentFolder.Replace(strings.ToLower(strings.TrimSpace(k)))] = v
	}
	return out
}

func lookup(item map[string]json.RawMessage, keys []string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := item[k]; ok && !isNull(v) {
			return v, true
		}
	}
	return nil, false
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || string(bytes.TrimSpace(v)) == "null"
}

func stringField(item map[string]json.RawMessage, keys []string) (string, error) {
	raw, ok := lookup(item, keys)
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("not a string: %s", raw)
	}
	return s, nil
}

func intField(item map[string]json.RawMessage, keys []string, def int) (int, error) {
	raw, ok := lookup(item, keys)
	if !ok {
		return def, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return numberToInt(n.String())
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return numberToInt(strings.TrimSpace(s))
}

// numberToInt accepts integral values written as 3 or 3.0.
func numberToInt(s string) (int, error) {
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(d.IntPart()), nil
}

func decodeAmount(raw json.RawMessage) (decimal.Decimal, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return decimal.NewFromString(n.String())
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %s", raw)
	}
	return core.ParseAmount(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
