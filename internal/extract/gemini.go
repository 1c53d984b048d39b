package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cuotas/internal/core"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const statementPrompt = `You are an expert accountant. Analyse this credit card statement and list every installment purchase it charges this month.
RULES:
1. FOREIGN CURRENCY: ignore items billed in USD or U$S.
2. NEGATIVES: an amount with a trailing dash ("100-") or a line marked "BONIF" is negative.
3. PLAN Z: an installment marked "Z" is installment 1 of 3.
4. IGNORE: payments and previous balances.
Reply with JSON only, no prose:
[{"concept": "T", "current_installment": 1, "total_installments": 1, "amount": 10.0, "category": "Shared"}]
category is one of "Mine", "Shared", "Other".`

// GeminiConfig holds the credentials and model used by GeminiExtractor.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiExtractor asks a Gemini model to read statement images.
type GeminiExtractor struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

var _ Extractor = (*GeminiExtractor)(nil)

func NewGeminiExtractor(ctx context.Context, cfg GeminiConfig) (*GeminiExtractor, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("missing Gemini model")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &GeminiExtractor{client: client, model: model, timeout: timeout}, nil
}

// Extract sends the image with the statement prompt and parses the reply.
func (g *GeminiExtractor) Extract(ctx context.Context, image []byte, mimeType string) ([]core.Candidate, error) {
	if len(image) == 0 {
		return nil, errors.New("empty image")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := []genai.Part{
		genai.Text(statementPrompt),
		&genai.Blob{MIMEType: mimeType, Data: image},
	}

	resp, err := g.model.GenerateContent(ctx, prompt...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("%w: gemini returned no text", ErrMalformedResponse)
	}
	slog.DebugContext(ctx, "Gemini statement reply", "bytes", len(text))

	return ParseCandidates(text)
}

func (g *GeminiExtractor) Close() error {
	return g.client.Close()
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
