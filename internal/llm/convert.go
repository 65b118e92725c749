package llm

import (
	"log/slog"

	"github.com/openai/openai-go/v3/responses"
)

// OutputToInput replays a response's output as input for the follow-up
// call of a tool round. Only the item types a function-tool conversation
// produces are carried over.
func OutputToInput(output []responses.ResponseOutputItemUnion) []responses.ResponseInputItemUnionParam {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(output))
	for _, item := range output {
		in, ok := inputItem(item)
		if !ok {
			slog.Debug("dropping output item from replay", "type", item.Type)
			continue
		}
		items = append(items, in)
	}
	return items
}

func inputItem(item responses.ResponseOutputItemUnion) (responses.ResponseInputItemUnionParam, bool) {
	var in responses.ResponseInputItemUnionParam
	switch item.Type {
	case "message":
		v := item.AsMessage().ToParam()
		in.OfOutputMessage = &v
	case "function_call":
		v := item.AsFunctionCall().ToParam()
		in.OfFunctionCall = &v
	case "reasoning":
		// Reasoning models reject a function call replayed without the
		// reasoning item that preceded it.
		v := item.AsReasoning().ToParam()
		in.OfReasoning = &v
	default:
		return in, false
	}
	return in, true
}
