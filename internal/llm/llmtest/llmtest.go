// Package llmtest provides a scripted llm.Provider and response builders for
// tests.
package llmtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3/responses"
)

var ErrNoMoreResponses = errors.New("llmtest: no scripted response left")

// Call records one ChatStream invocation.
type Call struct {
	Input []responses.ResponseInputItemUnionParam
	Tools []responses.ToolUnionParam
}

// InputJSON renders the recorded input as JSON for substring assertions.
func (c Call) InputJSON() string {
	b, err := json.Marshal(c.Input)
	if err != nil {
		return fmt.Sprintf("<marshal error: %v>", err)
	}
	return string(b)
}

// ToolNames lists the function tools offered on this call.
func (c Call) ToolNames() []string {
	var names []string
	for _, t := range c.Tools {
		if t.OfFunction != nil {
			names = append(names, t.OfFunction.Name)
		}
	}
	return names
}

// FakeProvider replays scripted responses in order. Each entry is either a
// response or an error.
type FakeProvider struct {
	mu     sync.Mutex
	script []step
	calls  []Call
}

type step struct {
	resp *responses.Response
	err  error
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{}
}

func (f *FakeProvider) Push(resp *responses.Response) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, step{resp: resp})
	return f
}

func (f *FakeProvider) PushError(err error) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, step{err: err})
	return f
}

func (f *FakeProvider) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *FakeProvider) ChatStream(ctx context.Context, input []responses.ResponseInputItemUnionParam, tools []responses.ToolUnionParam, onToken func(string)) (*responses.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, Call{
		Input: append([]responses.ResponseInputItemUnionParam(nil), input...),
		Tools: tools,
	})
	if len(f.script) == 0 {
		f.mu.Unlock()
		return nil, ErrNoMoreResponses
	}
	next := f.script[0]
	f.script = f.script[1:]
	f.mu.Unlock()

	if next.err != nil {
		return nil, next.err
	}
	if onToken != nil {
		for _, item := range next.resp.Output {
			if item.Type != "message" {
				continue
			}
			for _, c := range item.AsMessage().Content {
				if c.Type == "output_text" {
					onToken(c.AsOutputText().Text)
				}
			}
		}
	}
	return next.resp, nil
}

// FunctionCall describes one function_call output item.
type FunctionCall struct {
	CallID    string
	Name      string
	Arguments string
}

// TextResponse builds a completed response holding a single assistant
// message.
func TextResponse(text string) *responses.Response {
	return Response(messageItem("msg_1", text))
}

// ToolCallResponse builds a completed response with one function_call item
// per call.
func ToolCallResponse(calls ...FunctionCall) *responses.Response {
	items := make([]map[string]any, 0, len(calls))
	for i, c := range calls {
		items = append(items, map[string]any{
			"type":      "function_call",
			"id":        fmt.Sprintf("fc_%d", i+1),
			"call_id":   c.CallID,
			"name":      c.Name,
			"arguments": c.Arguments,
			"status":    "completed",
		})
	}
	return Response(items...)
}

// Response decodes a response from raw output items, the same way responses
// arrive over the wire.
func Response(output ...map[string]any) *responses.Response {
	raw, err := json.Marshal(map[string]any{
		"id":         "resp_test",
		"object":     "response",
		"created_at": 0,
		"model":      "test-model",
		"status":     "completed",
		"output":     output,
		"usage": map[string]any{
			"input_tokens":  1,
			"output_tokens": 1,
			"total_tokens":  2,
		},
	})
	if err != nil {
		panic(err)
	}
	var resp responses.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		panic(err)
	}
	return &resp
}

func messageItem(id, text string) map[string]any {
	return map[string]any{
		"type":   "message",
		"id":     id,
		"role":   "assistant",
		"status": "completed",
		"content": []map[string]any{{
			"type":        "output_text",
			"text":        text,
			"annotations": []any{},
		}},
	}
}

// Contains reports whether any recorded call's input contains s.
func (f *FakeProvider) Contains(s string) bool {
	for _, c := range f.Calls() {
		if strings.Contains(c.InputJSON(), s) {
			return true
		}
	}
	return false
}
