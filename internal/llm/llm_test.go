package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"moneymind/internal/core"
)

func TestCleanModelJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"category":"Food"}`, `{"category":"Food"}`},
		{"fenced", "```json\n{\"category\":\"Food\"}\n```", `{"category":"Food"}`},
		{"array with chatter", "Sure! Here it is: [\"a\",\"b\"] hope that helps", `["a","b"]`},
		{"object with chatter", "Result: {\"category\":\"Rent\",\"confidence\":0.7}.", `{"category":"Rent","confidence":0.7}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cleanModelJSON(tc.in); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func fakeGemini(reply string, err error) (*GeminiProvider, *string) {
	var lastPrompt string
	return &GeminiProvider{
		model: "test",
		generate: func(ctx context.Context, prompt string) (string, error) {
			lastPrompt = prompt
			return reply, err
		},
	}, &lastPrompt
}

func TestGeminiCategorize(t *testing.T) {
	g, prompt := fakeGemini("```json\n{\"category\": \"Transfers\", \"confidence\": 0.62}\n```", nil)
	resp, err := g.Categorize(context.Background(), CategorizeRequest{
		Description: "Pmt to Jane D",
		Amount:      core.NewMoney(-5000, "EUR"),
		Categories:  []string{"Groceries", "Transfers"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Category != "Transfers" || resp.Confidence != 0.62 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !strings.Contains(*prompt, "Pmt to Jane D") || !strings.Contains(*prompt, "Transfers") {
		t.Fatalf("prompt is missing the request payload: %s", *prompt)
	}
}

func TestGeminiErrors(t *testing.T) {
	ctx := context.Background()
	req := CategorizeRequest{Description: "x", Categories: []string{"A"}}

	g, _ := fakeGemini("", nil)
	if _, err := g.Categorize(ctx, req); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	g, _ = fakeGemini(`{"category": ""}`, nil)
	if _, err := g.Categorize(ctx, req); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse for blank category, got %v", err)
	}
	boom := errors.New("quota exceeded")
	g, _ = fakeGemini("", boom)
	if _, err := g.Categorize(ctx, req); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	g, _ = fakeGemini("not json", nil)
	if _, err := g.Categorize(ctx, req); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if _, err := g.Categorize(ctx, CategorizeRequest{Description: "x"}); !errors.Is(err, ErrNoCategories) {
		t.Fatalf("expected ErrNoCategories, got %v", err)
	}
}

func TestGeminiGenerateInsightText(t *testing.T) {
	findings := []Finding{{Kind: "budget_exceeded", Message: "a"}, {Kind: "unusual_spending", Message: "b"}}

	g, _ := fakeGemini(`["first", "second"]`, nil)
	got, err := g.GenerateInsightText(context.Background(), findings)
	if err != nil || len(got) != 2 || got[1] != "second" {
		t.Fatalf("got %v err=%v", got, err)
	}

	g, _ = fakeGemini(`["only one"]`, nil)
	if _, err := g.GenerateInsightText(context.Background(), findings); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestHeuristicCategorize(t *testing.T) {
	h := NewHeuristicProvider()
	cats := []string{"Groceries", "Transfers", "Entertainment"}

	cases := []struct {
		desc string
		want string
	}{
		{"Pmt to Jane D", "Transfers"},
		{"LIDL store 44", "Groceries"},
		{"Monthly NETFLIX", "Entertainment"},
		{"groceries weekly", "Groceries"},
	}
	for _, tc := range cases {
		resp, err := h.Categorize(context.Background(), CategorizeRequest{Description: tc.desc, Categories: cats})
		if err != nil {
			t.Fatalf("%q: %v", tc.desc, err)
		}
		if resp.Category != tc.want {
			t.Fatalf("%q: want %s, got %+v", tc.desc, tc.want, resp)
		}
	}

	if _, err := h.Categorize(context.Background(), CategorizeRequest{Description: "zzz", Categories: cats}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestHeuristicSuggestCategories(t *testing.T) {
	h := NewHeuristicProvider()
	got, err := h.SuggestCategories(context.Background(), SuggestRequest{
		Description: "uber ride to airport",
		Categories:  []string{"Transport", "Travel", "Groceries"},
		Limit:       1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Category != "Transport" {
		t.Fatalf("unexpected suggestions %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.SuggestCategories(ctx, SuggestRequest{Description: "x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
