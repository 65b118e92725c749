// Package analysis assembles the investment team and runs analyses,
// recording every run in history.
package analysis

import (
	"fmt"

	"stockteam/internal/agent"
	"stockteam/internal/config"
	"stockteam/internal/llm"
	"stockteam/internal/research"
	"stockteam/internal/team"
)

// Task is the opening message for an analysis of stock.
func Task(stock string) string {
	return fmt.Sprintf("Analyze stock trends, news, and sentiment for %s, plus analyst reports and expert opinions, and then decide whether to invest.", stock)
}

// ResearchTools registers one tool per research topic.
func ResearchTools(r *research.Researcher) *agent.Registry {
	registry := agent.NewRegistry()
	for _, topic := range research.Topics() {
		registry.Register(research.NewTool(r, topic))
	}
	return registry
}

// Termination stops on the stop phrase or after the message budget.
func Termination(cfg config.TeamConfig) team.Condition {
	return team.Or(team.TextMention(cfg.StopPhrase), team.MaxMessages(cfg.MaxMessages))
}

// NewTeam builds a round-robin team from profiles whose tools are drawn
// from registry.
func NewTeam(provider llm.Provider, registry *agent.Registry, profiles []agent.Profile, cfg config.TeamConfig) (*team.RoundRobin, error) {
	if len(profiles) == 0 {
		return nil, team.ErrNoParticipants
	}
	assistants, err := agent.NewFactory(provider, registry).BuildAll(profiles)
	if err != nil {
		return nil, fmt.Errorf("building team: %w", err)
	}
	participants := make([]team.Participant, len(assistants))
	for i, a := range assistants {
		participants[i] = a
	}
	return team.NewRoundRobin(participants, Termination(cfg)), nil
}
