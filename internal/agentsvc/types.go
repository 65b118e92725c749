package agentsvc

import (
	"context"
	"encoding/json"
)

// Service is the remote agent lifecycle used by research calls. *Client
// talks to the hosted service; localsvc provides an in-process stand-in.
type Service interface {
	CreateAgent(ctx context.Context, params AgentParams) (*Agent, error)
	DeleteAgent(ctx context.Context, agentID string) error
	CreateThread(ctx context.Context) (*Thread, error)
	DeleteThread(ctx context.Context, threadID string) error
	CreateMessage(ctx context.Context, threadID, role, content string) (*Message, error)
	CreateAndProcessRun(ctx context.Context, threadID, agentID string) (*Run, error)
	ListMessages(ctx context.Context, threadID string) ([]Message, error)
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	ToolBingGrounding = "bing_grounding"
)

type AgentParams struct {
	Model        string           `json:"model"`
	Name         string           `json:"name"`
	Instructions string           `json:"instructions"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

type Agent struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Model        string           `json:"model"`
	Instructions string           `json:"instructions"`
	Tools        []ToolDefinition `json:"tools"`
	CreatedAt    int64            `json:"created_at"`
}

type ToolDefinition struct {
	Type          string         `json:"type"`
	BingGrounding *BingGrounding `json:"bing_grounding,omitempty"`
}

type BingGrounding struct {
	Connections []ConnectionRef `json:"connections"`
}

type ConnectionRef struct {
	ConnectionID string `json:"connection_id"`
}

// BingGroundingTool binds the web search grounding tool to a project
// connection.
func BingGroundingTool(connectionID string) ToolDefinition {
	return ToolDefinition{
		Type: ToolBingGrounding,
		BingGrounding: &BingGrounding{
			Connections: []ConnectionRef{{ConnectionID: connectionID}},
		},
	}
}

type Thread struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
}

type Message struct {
	ID        string           `json:"id"`
	ThreadID  string           `json:"thread_id"`
	Role      string           `json:"role"`
	Content   []MessageContent `json:"content"`
	RunID     string           `json:"run_id,omitempty"`
	AgentID   string           `json:"assistant_id,omitempty"`
	CreatedAt int64            `json:"created_at"`
}

type MessageContent struct {
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

type MessageText struct {
	Value       string            `json:"value"`
	Annotations []json.RawMessage `json:"annotations,omitempty"`
}

// Text returns the value of the first text content part.
func (m Message) Text() (string, bool) {
	for _, c := range m.Content {
		if c.Type == "text" && c.Text != nil {
			return c.Text.Value, true
		}
	}
	return "", false
}

type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCancelling     RunStatus = "cancelling"
	RunCancelled      RunStatus = "cancelled"
	RunFailed         RunStatus = "failed"
	RunCompleted      RunStatus = "completed"
	RunExpired        RunStatus = "expired"
)

// Terminal reports whether the run will not change status any more.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunQueued, RunInProgress, RunRequiresAction, RunCancelling:
		return false
	default:
		return true
	}
}

type Run struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	AgentID   string    `json:"assistant_id"`
	Status    RunStatus `json:"status"`
	LastError *RunFault `json:"last_error,omitempty"`
}

type RunFault struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Connection struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Properties ConnectionProperties `json:"properties"`
}

type ConnectionProperties struct {
	Category string `json:"category"`
	Target   string `json:"target"`
}
