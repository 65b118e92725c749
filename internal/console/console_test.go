package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"stockteam/internal/agent"
)

func TestRendererMessages(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	r.Handle(agent.Event{Type: agent.EventMessage, Source: "user", Data: agent.Message{Source: "user", Kind: agent.KindTask, Content: "Analyze acme"}})
	r.Handle(agent.Event{Type: agent.EventToken, Source: "news_agent", Data: "ignored"})
	r.Handle(agent.Event{Type: agent.EventToolCall, Source: "news_agent", Data: agent.ToolCall{Name: "news_analysis", Arguments: `{"stock_name":"acme"}`}})
	r.Handle(agent.Event{Type: agent.EventToolResult, Source: "news_agent", Data: agent.ToolResult{Name: "news_analysis", Content: "Acme\nbeat  earnings"}})
	r.Handle(agent.Event{Type: agent.EventMessage, Source: "news_agent", Data: agent.Message{Source: "news_agent", Kind: agent.KindToolSummary, Content: "Acme beat earnings"}})
	r.Handle(agent.Event{Type: agent.EventDone, Data: "Text 'Decision Made' mentioned"})

	out := buf.String()
	assert.Equal(t, strings.Join([]string{
		"---------- user ----------",
		"Analyze acme",
		"---------- news_agent ----------",
		`[call news_analysis({"stock_name":"acme"})]`,
		"[result news_analysis: Acme beat earnings]",
		"---------- news_agent ----------",
		"Acme beat earnings",
		"Stop reason: Text 'Decision Made' mentioned",
		"",
	}, "\n"), out)
}

func TestRendererStreamsTokens(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, WithTokens())

	r.Handle(agent.Event{Type: agent.EventToken, Source: "decision_agent", Data: "Invest. "})
	r.Handle(agent.Event{Type: agent.EventToken, Source: "decision_agent", Data: "Decision Made"})
	r.Handle(agent.Event{Type: agent.EventMessage, Source: "decision_agent", Data: agent.Message{Source: "decision_agent", Kind: agent.KindText, Content: "Invest. Decision Made"}})
	r.Handle(agent.Event{Type: agent.EventError, Data: "boom"})

	assert.Equal(t, "---------- decision_agent ----------\nInvest. Decision Made\nerror: boom\n", buf.String())
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine(" a\n b\tc ", 10))
	assert.Equal(t, "abc...", oneLine("abcdef", 3))
}
