package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	results []Result
	err     error
	query   string
	count   int
}

func (s *stubSearcher) Search(_ context.Context, query string, count int) ([]Result, error) {
	s.query, s.count = query, count
	return s.results, s.err
}

func TestWebSearchFormatsResults(t *testing.T) {
	s := &stubSearcher{results: []Result{
		{Title: "Acme up 5%", URL: "https://example.com/a", Description: "Shares rose."},
		{Title: "Acme outlook", URL: "https://example.com/b", Description: "Analysts bullish."},
	}}
	w := NewWebSearch(s, 0)

	out, err := w.Execute(context.Background(), `{"query":" acme stock "}`)
	require.NoError(t, err)
	assert.Equal(t, "acme stock", s.query)
	assert.Equal(t, defaultResults, s.count)
	assert.Equal(t,
		"Acme up 5%\nhttps://example.com/a\nShares rose.\n---\nAcme outlook\nhttps://example.com/b\nAnalysts bullish.",
		out,
	)
}

func TestWebSearchEdgeCases(t *testing.T) {
	w := NewWebSearch(&stubSearcher{}, 50)
	assert.Equal(t, maxResults, w.count)

	out, err := w.Execute(context.Background(), `{"query":"nothing"}`)
	require.NoError(t, err)
	assert.Equal(t, "No results found.", out)

	_, err = w.Execute(context.Background(), `{"query":""}`)
	assert.Error(t, err)

	_, err = w.Execute(context.Background(), `not json`)
	assert.Error(t, err)

	failing := NewWebSearch(&stubSearcher{err: errors.New("rate limited")}, 3)
	_, err = failing.Execute(context.Background(), `{"query":"acme"}`)
	assert.EqualError(t, err, "rate limited")
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", maxOutputBytes+10)
	out := truncate([]byte(long))
	assert.True(t, strings.HasSuffix(out, "... (truncated)"))
	assert.Equal(t, "short", truncate([]byte("short")))
}

func TestNewBraveRequiresKey(t *testing.T) {
	_, err := NewBrave("")
	assert.Error(t, err)
}
