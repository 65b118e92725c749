package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockteam/internal/agent"
	"stockteam/internal/agentsvc/agentsvctest"
	"stockteam/internal/config"
	"stockteam/internal/db"
	"stockteam/internal/history"
	"stockteam/internal/llm/llmtest"
	"stockteam/internal/research"
)

func newStore(t *testing.T) *history.Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate())
	return history.NewStore(database)
}

func stockArgs(stock string) string { return `{"stock_name":"` + stock + `"}` }

// scriptTeam queues one model response per default participant turn.
func scriptTeam(stock, decision string) *llmtest.FakeProvider {
	return llmtest.NewFakeProvider().
		Push(llmtest.ToolCallResponse(
			llmtest.FunctionCall{CallID: "c1", Name: research.StockPriceTrends, Arguments: stockArgs(stock)},
		)).
		Push(llmtest.ToolCallResponse(
			llmtest.FunctionCall{CallID: "c2", Name: research.NewsAnalysis, Arguments: stockArgs(stock)},
		)).
		Push(llmtest.ToolCallResponse(
			llmtest.FunctionCall{CallID: "c3", Name: research.MarketSentiment, Arguments: stockArgs(stock)},
			llmtest.FunctionCall{CallID: "c4", Name: research.AnalystReports, Arguments: stockArgs(stock)},
			llmtest.FunctionCall{CallID: "c5", Name: research.ExpertOpinions, Arguments: stockArgs(stock)},
		)).
		Push(llmtest.TextResponse(decision))
}

func TestTask(t *testing.T) {
	assert.Equal(t,
		"Analyze stock trends, news, and sentiment for tata motors, plus analyst reports and expert opinions, and then decide whether to invest.",
		Task("tata motors"),
	)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	svc := agentsvctest.New("grounded answer")
	provider := scriptTeam("acme", "Current price 100. Invest. Decision Made")
	cfg := config.Default().Team

	tm, err := NewTeam(provider, ResearchTools(research.New(svc, "gpt-4o", "conn-1")), DefaultProfiles(), cfg)
	require.NoError(t, err)
	store := newStore(t)
	s := NewService(tm, store, cfg.Stock)

	var events []agent.Event
	report, err := s.Analyze(context.Background(), "acme", func(ev agent.Event) { events = append(events, ev) })
	require.NoError(t, err)

	var speakers []string
	for _, m := range report.Messages {
		speakers = append(speakers, m.Source)
	}
	assert.Equal(t, []string{"user", StockTrendsAgent, NewsAgent, SentimentAgent, DecisionAgent}, speakers)
	assert.Equal(t, Task("acme"), report.Messages[0].Content)
	assert.Equal(t, "grounded answer", report.Messages[1].Content)
	assert.Equal(t, agent.KindToolSummary, report.Messages[3].Kind)
	assert.Equal(t, strings.Repeat("grounded answer\n", 2)+"grounded answer", report.Messages[3].Content)
	assert.Equal(t, "Text 'Decision Made' mentioned", report.StopReason)
	assert.Equal(t, "acme", report.Stock)

	// Five research calls, each agent deleted exactly once.
	created := svc.Created()
	require.Len(t, created, 5)
	for _, id := range created {
		assert.Equal(t, 1, svc.DeleteCalls(id))
	}
	assert.Zero(t, svc.Live())

	// The decision agent saw everyone else's findings.
	calls := provider.Calls()
	require.Len(t, calls, 4)
	assert.Contains(t, calls[3].InputJSON(), "sentiment_agent: grounded answer")
	assert.Empty(t, calls[3].ToolNames())

	assert.Equal(t, agent.EventDone, events[len(events)-1].Type)

	run, err := store.GetRun(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, history.StatusCompleted, run.Status)
	assert.Equal(t, report.StopReason, run.StopReason)
	assert.Equal(t, report.Messages, run.Messages)
}

func TestAnalyzeStopsAtMaxMessages(t *testing.T) {
	svc := agentsvctest.New("data")
	provider := llmtest.NewFakeProvider().
		Push(llmtest.TextResponse("trends")).
		Push(llmtest.TextResponse("news"))
	cfg := config.TeamConfig{Stock: "acme", StopPhrase: "Decision Made", MaxMessages: 3}

	tm, err := NewTeam(provider, ResearchTools(research.New(svc, "m", "")), DefaultProfiles(), cfg)
	require.NoError(t, err)

	report, err := NewService(tm, nil, "acme").Analyze(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Len(t, report.Messages, 3)
	assert.Equal(t, "Maximum number of messages 3 reached, current message count: 3", report.StopReason)
	assert.Contains(t, report.Messages[0].Content, "for acme,")
}

func TestAnalyzeRecordsFailure(t *testing.T) {
	provider := llmtest.NewFakeProvider().PushError(errors.New("deployment missing"))
	cfg := config.Default().Team

	tm, err := NewTeam(provider, ResearchTools(research.New(agentsvctest.New("x"), "m", "")), DefaultProfiles(), cfg)
	require.NoError(t, err)
	store := newStore(t)

	report, err := NewService(tm, store, "acme").Analyze(context.Background(), "acme", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), StockTrendsAgent)
	require.NotNil(t, report)
	assert.Len(t, report.Messages, 1)

	run, err := store.GetRun(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, history.StatusFailed, run.Status)
	assert.Contains(t, run.Error, "deployment missing")
	assert.Len(t, run.Messages, 1)
}

func TestAnalyzeNeedsStock(t *testing.T) {
	s := NewService(nil, nil, "")
	_, err := s.Analyze(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, ErrNoStock)
}

func TestNewTeamRejectsUnknownTool(t *testing.T) {
	profiles := []agent.Profile{{Name: "x", SystemPrompt: "p", Tools: []string{"crystal_ball"}}}
	_, err := NewTeam(llmtest.NewFakeProvider(), agent.NewRegistry(), profiles, config.Default().Team)
	assert.Error(t, err)
}

func TestMergeProfiles(t *testing.T) {
	overrides := map[string]*config.AgentConfig{
		NewsAgent: {Tools: []string{research.NewsAnalysis, research.ExpertOpinions}, ReflectOnToolUse: true, MaxToolRounds: 2},
		"risk_agent": {
			SystemPrompt: "You are the Risk Agent.",
			Tools:        []string{research.MarketSentiment},
			Order:        35,
		},
	}

	profiles, err := MergeProfiles(DefaultProfiles(), overrides)
	require.NoError(t, err)

	var names []string
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{StockTrendsAgent, NewsAgent, SentimentAgent, "risk_agent", DecisionAgent}, names)

	news := profiles[1]
	assert.Equal(t, []string{research.NewsAnalysis, research.ExpertOpinions}, news.Tools)
	assert.True(t, news.ReflectOnToolUse)
	assert.Equal(t, 2, news.MaxToolRounds)
	assert.Contains(t, news.SystemPrompt, "You are the News Agent.")

	_, err = MergeProfiles(DefaultProfiles(), map[string]*config.AgentConfig{"ghost": {}})
	assert.Error(t, err)
}

func TestDefaultProfilesOnlyDecisionAgentDecides(t *testing.T) {
	for _, p := range DefaultProfiles() {
		if p.Name == DecisionAgent {
			assert.Contains(t, p.SystemPrompt, "'Decision Made'")
			assert.Empty(t, p.Tools)
			continue
		}
		assert.Contains(t, p.SystemPrompt, "Do NOT provide any final investment decision.")
		assert.NotEmpty(t, p.Tools)
	}
}
