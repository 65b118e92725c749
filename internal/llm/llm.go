package llm

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3/responses"
)

type Provider interface {
	ChatStream(ctx context.Context, input []responses.ResponseInputItemUnionParam, tools []responses.ToolUnionParam, onToken func(string)) (*responses.Response, error)
}

// OutputText concatenates the output_text parts of every assistant message
// in resp.
func OutputText(resp *responses.Response) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.AsMessage().Content {
			if c.Type == "output_text" {
				b.WriteString(c.AsOutputText().Text)
			}
		}
	}
	return b.String()
}

// FunctionCalls returns the function_call items of resp in output order.
func FunctionCalls(resp *responses.Response) []responses.ResponseFunctionToolCall {
	if resp == nil {
		return nil
	}
	var calls []responses.ResponseFunctionToolCall
	for _, item := range resp.Output {
		if item.Type == "function_call" {
			calls = append(calls, item.AsFunctionCall())
		}
	}
	return calls
}
