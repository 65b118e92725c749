package agent

import (
	"fmt"

	"stockteam/internal/llm"
)

// Factory builds assistants from profiles, scoping each one's tools out of
// a shared registry.
type Factory struct {
	provider       llm.Provider
	globalRegistry *Registry
}

func NewFactory(provider llm.Provider, registry *Registry) *Factory {
	return &Factory{provider: provider, globalRegistry: registry}
}

func (f *Factory) Build(p Profile) (*Assistant, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("profile has no name")
	}
	registry, err := f.globalRegistry.Scope(p.Tools)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", p.Name, err)
	}

	var opts []AssistantOption
	if p.ReflectOnToolUse {
		opts = append(opts, WithReflectOnToolUse(p.MaxToolRounds))
	}
	return NewAssistant(p.Name, p.SystemPrompt, f.provider, registry, opts...), nil
}

// BuildAll builds one assistant per profile, preserving order.
func (f *Factory) BuildAll(profiles []Profile) ([]*Assistant, error) {
	out := make([]*Assistant, 0, len(profiles))
	for _, p := range profiles {
		a, err := f.Build(p)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
