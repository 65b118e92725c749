package agent

type EventType string

const (
	EventToken      EventType = "token"
	EventMessage    EventType = "message"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Event is streamed to observers while a team runs. Data is a Message for
// EventMessage, a ToolCall or ToolResult for tool events, a string for
// tokens and errors, and the stop reason for EventDone.
type Event struct {
	Type   EventType `json:"type"`
	Source string    `json:"source,omitempty"`
	Data   any       `json:"data"`
}

type MessageKind string

const (
	KindTask        MessageKind = "task"
	KindText        MessageKind = "text"
	KindToolSummary MessageKind = "tool_summary"
)

// UserSource is the speaker name of the initial task.
const UserSource = "user"

// Message is one transcript entry.
type Message struct {
	Source  string      `json:"source"`
	Kind    MessageKind `json:"kind"`
	Content string      `json:"content"`
}

type ToolCall struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}
