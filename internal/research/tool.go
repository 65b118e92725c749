package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Tool exposes one topic to a participant model as a function tool taking
// the stock name.
type Tool struct {
	researcher *Researcher
	topic      Topic
}

func NewTool(r *Researcher, topic Topic) *Tool {
	return &Tool{researcher: r, topic: topic}
}

func (t *Tool) Name() string        { return t.topic.Name }
func (t *Tool) Description() string { return t.topic.Description }

func (t *Tool) InputSchema() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"stock_name": map[string]any{
				"type":        "string",
				"description": "Name or ticker of the stock to research",
			},
		},
		"required":             []string{"stock_name"},
		"additionalProperties": false,
	}
}

func (t *Tool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		StockName string `json:"stock_name"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("parsing %s input: %w", t.topic.Name, err)
	}
	stock := strings.TrimSpace(args.StockName)
	if stock == "" {
		return "", fmt.Errorf("%s: stock_name is required", t.topic.Name)
	}
	return t.researcher.Query(ctx, t.topic, stock), nil
}
