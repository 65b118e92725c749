package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockteam/internal/config"
	"stockteam/internal/llm"
	"stockteam/internal/llm/llmtest"
)

func TestOutputText(t *testing.T) {
	resp := llmtest.TextResponse("Invest. Decision Made")
	assert.Equal(t, "Invest. Decision Made", llm.OutputText(resp))
	assert.Empty(t, llm.OutputText(nil))
}

func TestFunctionCalls(t *testing.T) {
	resp := llmtest.ToolCallResponse(
		llmtest.FunctionCall{CallID: "call_1", Name: "news_analysis", Arguments: `{"stock_name":"acme"}`},
		llmtest.FunctionCall{CallID: "call_2", Name: "market_sentiment", Arguments: `{"stock_name":"acme"}`},
	)

	calls := llm.FunctionCalls(resp)
	require.Len(t, calls, 2)
	assert.Equal(t, "call_1", calls[0].CallID)
	assert.Equal(t, "news_analysis", calls[0].Name)
	assert.Equal(t, `{"stock_name":"acme"}`, calls[0].Arguments)
	assert.Equal(t, "market_sentiment", calls[1].Name)
	assert.Empty(t, llm.OutputText(resp))
}

func TestOutputToInputKeepsToolConversationItems(t *testing.T) {
	resp := llmtest.Response(
		map[string]any{"type": "web_search_call", "id": "ws_1", "status": "completed"},
		map[string]any{
			"type": "function_call", "id": "fc_1", "call_id": "call_1",
			"name": "news_analysis", "arguments": `{"stock_name":"acme"}`, "status": "completed",
		},
	)

	items := llm.OutputToInput(resp.Output)
	require.Len(t, items, 1)
	raw, err := json.Marshal(items)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"call_id":"call_1"`)
	assert.Contains(t, string(raw), `"type":"function_call"`)
	assert.NotContains(t, string(raw), "web_search_call")

	msg := llm.OutputToInput(llmtest.TextResponse("hi").Output)
	require.Len(t, msg, 1)
	raw, err = json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"message"`)
	assert.Contains(t, string(raw), `"hi"`)
}

func TestAzureUsesResponsesAPIVersion(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []*http.Request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Clone(context.Background()))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"stop here","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	version := config.Default().Model.APIVersion
	p := llm.NewAzure(srv.URL, version, "gpt-4o", "k", nil)
	_, err := p.ChatStream(context.Background(), nil, nil, nil)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, requests)
	req := requests[0]
	assert.Equal(t, "/openai/responses", req.URL.Path)
	assert.Equal(t, version, req.URL.Query().Get("api-version"))
	assert.GreaterOrEqual(t, version, config.MinResponsesAPIVersion)
}
