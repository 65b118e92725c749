// Package tools holds the function tools that ground in-process research
// agents.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	bravesearch "github.com/cnosuke/go-brave-search"
)

const (
	WebSearchName = "web_search"

	defaultResults = 5
	maxResults     = 20
	maxOutputBytes = 10_000
)

type Result struct {
	Title       string
	URL         string
	Description string
}

type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]Result, error)
}

// Brave searches the web through the Brave Search API.
type Brave struct {
	client *bravesearch.Client
}

func NewBrave(apiKey string) (*Brave, error) {
	if apiKey == "" {
		return nil, errors.New("brave search: api key is required")
	}
	client, err := bravesearch.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}
	return &Brave{client: client}, nil
}

func (b *Brave) Search(ctx context.Context, query string, count int) ([]Result, error) {
	resp, err := b.client.WebSearch(ctx, query, &bravesearch.WebSearchParams{
		Count: count,
	})
	if err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}
	var out []Result
	for _, r := range resp.GetWebResults() {
		out = append(out, Result{Title: r.Title, URL: r.URL, Description: r.Description})
	}
	return out, nil
}

// WebSearch is the grounding tool: the model passes a query and gets back
// titles, links and snippets.
type WebSearch struct {
	searcher Searcher
	count    int
}

func NewWebSearch(searcher Searcher, count int) *WebSearch {
	if count <= 0 {
		count = defaultResults
	}
	if count > maxResults {
		count = maxResults
	}
	return &WebSearch{searcher: searcher, count: count}
}

func (w *WebSearch) Name() string { return WebSearchName }
func (w *WebSearch) Description() string {
	return "Search the web for recent information. Returns titles, links and snippets."
}

func (w *WebSearch) InputSchema() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query",
			},
		},
		"required":             []string{"query"},
		"additionalProperties": false,
	}
}

func (w *WebSearch) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("parsing web_search input: %w", err)
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return "", errors.New("query is required")
	}

	slog.Debug("web: searching", "query", query, "count", w.count)

	results, err := w.searcher.Search(ctx, query, w.count)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found.", nil
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "%s\n%s\n%s", r.Title, r.URL, r.Description)
	}

	slog.Debug("web: search done", "query", query, "results", len(results))
	return truncate([]byte(b.String())), nil
}

func truncate(b []byte) string {
	if len(b) > maxOutputBytes {
		return string(b[:maxOutputBytes]) + "\n... (truncated)"
	}
	return string(b)
}
