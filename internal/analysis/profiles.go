package analysis

import (
	"fmt"
	"sort"

	"stockteam/internal/agent"
	"stockteam/internal/config"
	"stockteam/internal/research"
)

const (
	StockTrendsAgent = "stock_trends_agent"
	NewsAgent        = "news_agent"
	SentimentAgent   = "sentiment_agent"
	DecisionAgent    = "decision_agent"
)

// DefaultProfiles returns the four-member investment team in speaking order.
func DefaultProfiles() []agent.Profile {
	return []agent.Profile{
		{
			Name: StockTrendsAgent,
			SystemPrompt: "You are the Stock Price Trends Agent. You fetch and summarize stock prices, " +
				"changes over the last few months, and general market trends. " +
				"Do NOT provide any final investment decision.",
			Tools: []string{research.StockPriceTrends},
		},
		{
			Name: NewsAgent,
			SystemPrompt: "You are the News Agent. You retrieve and summarize the latest news stories " +
				"related to the given stock. Do NOT provide any final investment decision.",
			Tools: []string{research.NewsAnalysis},
		},
		{
			Name: SentimentAgent,
			SystemPrompt: "You are the Market Sentiment Agent. You gather overall market sentiment, " +
				"relevant analyst reports, and expert opinions. Do NOT provide any final investment decision.",
			Tools: []string{research.MarketSentiment, research.AnalystReports, research.ExpertOpinions},
		},
		{
			Name: DecisionAgent,
			SystemPrompt: "You are the Decision Agent. After reviewing the stock data, news, sentiment, " +
				"analyst reports, and expert opinions from the other agents, you provide the final investment decision. " +
				"In the final decision make a call to either Invest or Not. Also providethe current stock price. " +
				"End your response with 'Decision Made' once you finalize the decision.",
		},
	}
}

// MergeProfiles applies [agent.<name>] config sections to base. A section
// naming an existing participant overrides its non-empty fields; any other
// section adds a participant. Order, when set, positions a participant;
// base participants keep their relative order otherwise and added ones go
// last.
func MergeProfiles(base []agent.Profile, overrides map[string]*config.AgentConfig) ([]agent.Profile, error) {
	type ranked struct {
		profile agent.Profile
		order   int
	}

	index := make(map[string]int, len(base))
	list := make([]ranked, 0, len(base)+len(overrides))
	for i, p := range base {
		index[p.Name] = i
		list = append(list, ranked{profile: p, order: (i + 1) * 10})
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		o := overrides[name]
		if o == nil {
			continue
		}
		i, ok := index[name]
		if !ok {
			if o.SystemPrompt == "" {
				return nil, fmt.Errorf("agent %s: system_prompt is required for a new participant", name)
			}
			i = len(list)
			index[name] = i
			list = append(list, ranked{profile: agent.Profile{Name: name}, order: 1000 + i})
		}

		r := &list[i]
		if o.SystemPrompt != "" {
			r.profile.SystemPrompt = o.SystemPrompt
		}
		if o.Tools != nil {
			r.profile.Tools = o.Tools
		}
		if o.ReflectOnToolUse {
			r.profile.ReflectOnToolUse = true
		}
		if o.MaxToolRounds > 0 {
			r.profile.MaxToolRounds = o.MaxToolRounds
		}
		if o.Order != 0 {
			r.order = o.Order
		}
	}

	sort.SliceStable(list, func(i, j int) bool { return list[i].order < list[j].order })

	out := make([]agent.Profile, len(list))
	for i, r := range list {
		out[i] = r.profile
	}
	return out, nil
}
