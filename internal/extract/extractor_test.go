package extract

import (
	"context"
	"errors"
	"testing"

	"cuotas/internal/core"

	"github.com/google/generative-ai-go/genai"
	"github.com/shopspring/decimal"
)

func TestParseCandidates(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []core.Candidate
	}{
		{
			name: "english keys in fenced array",
			in: "```json\n[{\"concept\": \"GADNIC\", \"current_installment\": 1, \"total_installments\": 3, " +
				"\"amount\": 23118.16, \"category\": \"Shared\"}]\n```",
			want: []core.Candidate{{Concept: "GADNIC", Category: core.CategoryShared, CurrentInstallment: 1, TotalInstallments: 3, Amount: decimal.RequireFromString("23118.16")}},
		},
		{
			name: "original spanish keys",
			in:   `[{"Concepto": "FARMACIA SANTA ANA", "Cuota Actual": 1, "Total Cuotas": 2, "Monto": 11848.58, "Categoria": "Mio"}]`,
			want: []core.Candidate{{Concept: "FARMACIA SANTA ANA", Category: core.CategoryMine, CurrentInstallment: 1, TotalInstallments: 2, Amount: decimal.RequireFromString("11848.58")}},
		},
		{
			name: "string numbers and statement amount",
			in:   `{"concepto": "BONIF CUOTA", "cuota_actual": "2", "total_cuotas": "3.0", "monto": "1.234,50-", "categoría": "Otros"}`,
			want: []core.Candidate{{Concept: "BONIF CUOTA", Category: core.CategoryOther, CurrentInstallment: 2, TotalInstallments: 3, Amount: decimal.RequireFromString("-1234.50")}},
		},
		{
			name: "missing installments default to one payment",
			in:   `[{"concept": "STYLE STORE", "amount": 2166.66, "category": "C"}]`,
			want: []core.Candidate{{Concept: "STYLE STORE", Category: core.CategoryShared, CurrentInstallment: 1, TotalInstallments: 1, Amount: decimal.RequireFromString("2166.66")}},
		},
		{
			name: "unknown category kept verbatim",
			in:   `[{"concept": "X", "amount": 1, "category": "Family"}]`,
			want: []core.Candidate{{Concept: "X", Category: core.Category("Family"), CurrentInstallment: 1, TotalInstallments: 1, Amount: decimal.NewFromInt(1)}},
		},
		{
			name: "empty reply",
			in:   "```json\n```",
			want: nil,
		},
		{
			name: "empty array",
			in:   "[]",
			want: []core.Candidate{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCandidates(tt.in)
			if err != nil {
				t.Fatalf("ParseCandidates() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d candidates, got %d: %+v", len(tt.want), len(got), got)
			}
			for i := range got {
				g, w := got[i], tt.want[i]
				if g.Concept != w.Concept || g.Category != w.Category ||
					g.CurrentInstallment != w.CurrentInstallment || g.TotalInstallments != w.TotalInstallments ||
					!g.Amount.Equal(w.Amount) {
					t.Fatalf("candidate %d = %+v, want %+v", i, g, w)
				}
			}
		})
	}
}

func TestParseCandidatesMalformed(t *testing.T) {
	for _, in := range []string{
		"Sorry, I cannot read this image.",
		`[{"concept": "X", "amount": 1}`,
		`[{"concept": "X"}]`,
		`[{"concept": "X", "amount": "abc"}]`,
		`[{"concept": "X", "amount": 1, "total_installments": 2.5}]`,
		`[{"concept": 12, "amount": 1}]`,
	} {
		if _, err := ParseCandidates(in); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("%q: expected ErrMalformedResponse, got %v", in, err)
		}
	}
}

func TestResponseText(t *testing.T) {
	if got := responseText(nil); got != "" {
		t.Fatalf("expected empty text for nil response, got %q", got)
	}
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("[{"), genai.Text("}]")}},
		}},
	}
	if got := responseText(resp); got != "[{}]" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestNewGeminiExtractorRequiresConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewGeminiExtractor(ctx, GeminiConfig{Model: "gemini-flash-latest"}); err == nil {
		t.Fatal("expected error without API key")
	}
	if _, err := NewGeminiExtractor(ctx, GeminiConfig{APIKey: "key"}); err == nil {
		t.Fatal("expected error without model")
	}
}
