package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider calls a Gemini model for categorization and insight text.
// Callers bound each call with a context deadline.
type GeminiProvider struct {
	model    string
	generate func(ctx context.Context, prompt string) (string, error)
}

// NewGeminiProvider creates a Gen AI client. With an empty apiKey the client
// falls back to the GOOGLE_API_KEY / Vertex environment variables.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	cfg := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
		cfg.Backend = genai.BackendGeminiAPI
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	p := &GeminiProvider{model: model}
	p.generate = func(ctx context.Context, prompt string) (string, error) {
		contents := []*genai.Content{
			{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
		}
		resp, err := client.Models.GenerateContent(ctx, p.model, contents, nil)
		if err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
		return resp.Text(), nil
	}
	return p, nil
}

func (g *GeminiProvider) Categorize(ctx context.Context, req CategorizeRequest) (CategorizeResponse, error) {
	if len(req.Categories) == 0 {
		return CategorizeResponse{}, ErrNoCategories
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return CategorizeResponse{}, err
	}
	prompt := "You categorize personal finance transactions.\n" +
		"Pick exactly one category from \"categories\" for the transaction below.\n" +
		"Negative amounts are expenses, positive amounts are income; amounts are in minor units.\n" +
		"Return ONLY raw JSON of the form {\"category\": string, \"confidence\": number between 0 and 1}.\n" +
		"Do NOT use Markdown or code fences.\n\n" + string(payload)

	var resp CategorizeResponse
	if err := g.call(ctx, prompt, &resp); err != nil {
		return CategorizeResponse{}, fmt.Errorf("categorize: %w", err)
	}
	if strings.TrimSpace(resp.Category) == "" {
		return CategorizeResponse{}, fmt.Errorf("categorize: %w", ErrEmptyResponse)
	}
	return resp, nil
}

func (g *GeminiProvider) SuggestCategories(ctx context.Context, req SuggestRequest) ([]Suggestion, error) {
	if len(req.Categories) == 0 {
		return nil, ErrNoCategories
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	prompt := "Rank the categories from \"categories\" that could fit the transaction description below.\n" +
		"Return at most \"limit\" entries, best first.\n" +
		"Return ONLY a raw JSON array of {\"category\": string, \"confidence\": number between 0 and 1}.\n" +
		"Do NOT use Markdown or code fences.\n\n" + string(payload)

	var out []Suggestion
	if err := g.call(ctx, prompt, &out); err != nil {
		return nil, fmt.Errorf("suggest categories: %w", err)
	}
	return out, nil
}

func (g *GeminiProvider) GenerateInsightText(ctx context.Context, findings []Finding) ([]string, error) {
	if len(findings) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(findings)
	if err != nil {
		return nil, err
	}
	prompt := "Rewrite each personal finance finding below as one short, friendly sentence.\n" +
		"Keep every number and category name unchanged. Do not add advice that is not supported by the finding.\n" +
		"Return ONLY a raw JSON array of strings with exactly one entry per finding, in the same order.\n" +
		"Do NOT use Markdown or code fences.\n\n" + string(payload)

	var out []string
	if err := g.call(ctx, prompt, &out); err != nil {
		return nil, fmt.Errorf("generate insight text: %w", err)
	}
	if len(out) != len(findings) {
		return nil, fmt.Errorf("generate insight text: got %d texts for %d findings", len(out), len(findings))
	}
	return out, nil
}

func (g *GeminiProvider) call(ctx context.Context, prompt string, v any) error {
	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyResponse
	}
	clean := cleanModelJSON(raw)
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return fmt.Errorf("unmarshal JSON: %w (raw response: %s)", err, raw)
	}
	return nil
}

// cleanModelJSON strips Markdown fences and surrounding chatter from a model
// response, keeping the outermost JSON object or array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	open := strings.IndexAny(s, "[{")
	if open == -1 {
		return s
	}
	closer := "]"
	if s[open] == '{' {
		closer = "}"
	}
	if end := strings.LastIndex(s, closer); end > open {
		s = s[open : end+1]
	}
	return strings.TrimSpace(s)
}
