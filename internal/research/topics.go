package research

import (
	"fmt"
	"sort"
)

// Topic is one research angle. Instructions and Prompt are format strings
// taking the stock name.
type Topic struct {
	Name         string
	Description  string
	Instructions string
	Prompt       string
	LogLabel     string
}

func (t Topic) AgentName() string { return t.Name + "_tool_agent" }

func (t Topic) instructions(stock string) string { return fmt.Sprintf(t.Instructions, stock) }

func (t Topic) prompt(stock string) string { return fmt.Sprintf(t.Prompt, stock) }

const (
	StockPriceTrends = "stock_price_trends"
	NewsAnalysis     = "news_analysis"
	MarketSentiment  = "market_sentiment"
	AnalystReports   = "analyst_reports"
	ExpertOpinions   = "expert_opinions"
)

var topics = map[string]Topic{
	StockPriceTrends: {
		Name:         StockPriceTrends,
		Description:  "Fetch real-time stock prices, changes over the last few months and market trends for a stock.",
		Instructions: "Focus on retrieving real-time stock prices, changes over the last few months, and summarize market trends for %s.",
		Prompt:       "Please get stock price trends data for %s.",
		LogLabel:     "stock price trends",
	},
	NewsAnalysis: {
		Name:         NewsAnalysis,
		Description:  "Retrieve the latest news highlights for a stock.",
		Instructions: "Focus on the latest news highlights for the stock %s.",
		Prompt:       "Retrieve the latest news articles and summaries about %s.",
		LogLabel:     "news",
	},
	MarketSentiment: {
		Name:         MarketSentiment,
		Description:  "Gather overall market sentiment and user opinions about a stock.",
		Instructions: "Focus on analyzing general market sentiment regarding %s.",
		Prompt:       "Gather market sentiment, user opinions, and overall feeling about %s.",
		LogLabel:     "sentiment",
	},
	AnalystReports: {
		Name:         AnalystReports,
		Description:  "Find recent analyst reports, price targets and professional analyses of a stock.",
		Instructions: "Focus on any relevant analyst reports or professional analyses about %s.",
		Prompt:       "Find recent analyst reports, price targets, or professional opinions on %s.",
		LogLabel:     "analyst reports",
	},
	ExpertOpinions: {
		Name:         ExpertOpinions,
		Description:  "Collect industry expert and thought leader opinions about a stock.",
		Instructions: "Focus on industry expert or thought leader opinions regarding %s.",
		Prompt:       "Collect expert opinions or quotes about %s.",
		LogLabel:     "expert opinions",
	},
}

func Lookup(name string) (Topic, bool) {
	t, ok := topics[name]
	return t, ok
}

// Topics returns every topic sorted by name.
func Topics() []Topic {
	out := make([]Topic, 0, len(topics))
	for _, t := range topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
