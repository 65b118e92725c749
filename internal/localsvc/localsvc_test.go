package localsvc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockteam/internal/agentsvc"
	"stockteam/internal/llm/llmtest"
	"stockteam/internal/localsvc"
	"stockteam/internal/research"
	"stockteam/internal/tools"
)

type fixedSearch struct{ calls int }

func (f *fixedSearch) Search(context.Context, string, int) ([]tools.Result, error) {
	f.calls++
	return []tools.Result{{Title: "Acme rallies", URL: "https://example.com", Description: "Up 4% this week."}}, nil
}

func TestRunGroundsWithWebSearch(t *testing.T) {
	search := &fixedSearch{}
	provider := llmtest.NewFakeProvider().
		Push(llmtest.ToolCallResponse(llmtest.FunctionCall{CallID: "c1", Name: tools.WebSearchName, Arguments: `{"query":"acme stock"}`})).
		Push(llmtest.TextResponse("Acme is up 4% this week."))
	svc := localsvc.New(provider, localsvc.WithSearch(tools.NewWebSearch(search, 3)))
	ctx := context.Background()

	a, err := svc.CreateAgent(ctx, agentsvc.AgentParams{
		Model:        "gpt-4o",
		Name:         "stock_price_trends_tool_agent",
		Instructions: "Summarize trends for acme.",
		Tools:        []agentsvc.ToolDefinition{agentsvc.BingGroundingTool("conn")},
	})
	require.NoError(t, err)
	th, err := svc.CreateThread(ctx)
	require.NoError(t, err)
	_, err = svc.CreateMessage(ctx, th.ID, agentsvc.RoleUser, "Please get stock price trends data for acme.")
	require.NoError(t, err)

	run, err := svc.CreateAndProcessRun(ctx, th.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, agentsvc.RunCompleted, run.Status)
	assert.Equal(t, 1, search.calls)

	msgs, err := svc.ListMessages(ctx, th.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, agentsvc.RoleAssistant, msgs[0].Role)
	text, ok := msgs[0].Text()
	require.True(t, ok)
	assert.Equal(t, "Acme is up 4% this week.", text)
	assert.Equal(t, run.ID, msgs[0].RunID)

	calls := provider.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{tools.WebSearchName}, calls[0].ToolNames())
	assert.Contains(t, calls[0].InputJSON(), "Summarize trends for acme.")
	assert.Contains(t, calls[1].InputJSON(), "Acme rallies")
}

func TestRunFailureIsReportedOnRun(t *testing.T) {
	provider := llmtest.NewFakeProvider().PushError(errors.New("deployment not found"))
	svc := localsvc.New(provider)
	ctx := context.Background()

	a, err := svc.CreateAgent(ctx, agentsvc.AgentParams{Name: "x"})
	require.NoError(t, err)
	th, err := svc.CreateThread(ctx)
	require.NoError(t, err)

	run, err := svc.CreateAndProcessRun(ctx, th.ID, a.ID)
	var runErr *agentsvc.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, agentsvc.RunFailed, runErr.Status)
	require.NotNil(t, run)
	assert.Equal(t, agentsvc.RunFailed, run.Status)
	require.NotNil(t, run.LastError)
	assert.Contains(t, run.LastError.Message, "deployment not found")
}

func TestGroundingRequiresSearch(t *testing.T) {
	svc := localsvc.New(llmtest.NewFakeProvider())
	_, err := svc.CreateAgent(context.Background(), agentsvc.AgentParams{
		Name:  "x",
		Tools: []agentsvc.ToolDefinition{agentsvc.BingGroundingTool("conn")},
	})
	var apiErr *agentsvc.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
}

func TestUnknownResources(t *testing.T) {
	svc := localsvc.New(llmtest.NewFakeProvider())
	ctx := context.Background()

	var apiErr *agentsvc.APIError
	require.ErrorAs(t, svc.DeleteAgent(ctx, "asst_missing"), &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)

	require.ErrorAs(t, svc.DeleteThread(ctx, "thread_missing"), &apiErr)
	_, err := svc.ListMessages(ctx, "thread_missing")
	require.ErrorAs(t, err, &apiErr)
	_, err = svc.CreateMessage(ctx, "thread_missing", agentsvc.RoleUser, "hi")
	require.ErrorAs(t, err, &apiErr)
	_, err = svc.CreateAndProcessRun(ctx, "thread_missing", "asst_missing")
	require.ErrorAs(t, err, &apiErr)
}

func TestResearchAgainstLocalService(t *testing.T) {
	provider := llmtest.NewFakeProvider().Push(llmtest.TextResponse("Headlines are upbeat."))
	svc := localsvc.New(provider, localsvc.WithSearch(tools.NewWebSearch(&fixedSearch{}, 0)))
	r := research.New(svc, "gpt-4o", "conn")

	topic, ok := research.Lookup(research.NewsAnalysis)
	require.True(t, ok)

	answer := r.Query(context.Background(), topic, "acme")
	assert.Equal(t, "Headlines are upbeat.", answer)

	st := svc.Stats()
	assert.Empty(t, st.Agents)
	assert.Zero(t, st.Threads)
	assert.Equal(t, 1, st.Runs)
}
