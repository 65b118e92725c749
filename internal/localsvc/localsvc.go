// Package localsvc runs the agent service lifecycle in process: agents are
// assistants over the configured model, grounded with web search instead of
// a hosted connection.
package localsvc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"stockteam/internal/agent"
	"stockteam/internal/agentsvc"
	"stockteam/internal/llm"
	"stockteam/internal/tools"

	"github.com/google/uuid"
)

const defaultToolRounds = 3

type Option func(*Service)

// WithSearch grounds agents created with a web search tool definition.
func WithSearch(tool agent.Tool) Option {
	return func(s *Service) { s.search = tool }
}

func WithToolRounds(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.toolRounds = n
		}
	}
}

type Service struct {
	provider   llm.Provider
	search     agent.Tool
	toolRounds int
	now        func() time.Time

	mu       sync.Mutex
	agents   map[string]*agentsvc.Agent
	threads  map[string]*thread
	runCount int
}

type thread struct {
	id       string
	messages []agentsvc.Message
}

var _ agentsvc.Service = (*Service)(nil)

func New(provider llm.Provider, opts ...Option) *Service {
	s := &Service{
		provider:   provider,
		toolRounds: defaultToolRounds,
		now:        time.Now,
		agents:     make(map[string]*agentsvc.Agent),
		threads:    make(map[string]*thread),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func notFound(kind, id string) error {
	return &agentsvc.APIError{
		StatusCode: http.StatusNotFound,
		Code:       "not_found",
		Message:    fmt.Sprintf("%s %s not found", kind, id),
	}
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func (s *Service) CreateAgent(ctx context.Context, params agentsvc.AgentParams) (*agentsvc.Agent, error) {
	for _, t := range params.Tools {
		if t.Type == agentsvc.ToolBingGrounding && s.search == nil {
			return nil, &agentsvc.APIError{
				StatusCode: http.StatusBadRequest,
				Code:       "invalid_tool",
				Message:    "web search grounding is not configured",
			}
		}
	}

	a := &agentsvc.Agent{
		ID:           newID("asst"),
		Name:         params.Name,
		Model:        params.Model,
		Instructions: params.Instructions,
		Tools:        params.Tools,
		CreatedAt:    s.now().Unix(),
	}

	s.mu.Lock()
	s.agents[a.ID] = a
	s.mu.Unlock()

	slog.Debug("localsvc: agent created", "id", a.ID, "name", a.Name)
	cp := *a
	return &cp, nil
}

func (s *Service) DeleteAgent(ctx context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[agentID]; !ok {
		return notFound("agent", agentID)
	}
	delete(s.agents, agentID)
	return nil
}

func (s *Service) CreateThread(ctx context.Context) (*agentsvc.Thread, error) {
	th := &thread{id: newID("thread")}

	s.mu.Lock()
	s.threads[th.id] = th
	s.mu.Unlock()

	return &agentsvc.Thread{ID: th.id, CreatedAt: s.now().Unix()}, nil
}

func (s *Service) DeleteThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[threadID]; !ok {
		return notFound("thread", threadID)
	}
	delete(s.threads, threadID)
	return nil
}

func (s *Service) CreateMessage(ctx context.Context, threadID, role, content string) (*agentsvc.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok := s.threads[threadID]
	if !ok {
		return nil, notFound("thread", threadID)
	}
	m := s.message(threadID, role, content)
	th.messages = append(th.messages, m)
	return &m, nil
}

func (s *Service) message(threadID, role, content string) agentsvc.Message {
	return agentsvc.Message{
		ID:       newID("msg"),
		ThreadID: threadID,
		Role:     role,
		Content: []agentsvc.MessageContent{{
			Type: "text",
			Text: &agentsvc.MessageText{Value: content},
		}},
		CreatedAt: s.now().Unix(),
	}
}

// CreateAndProcessRun lets the agent answer the thread synchronously. A
// model failure ends the run as failed and is returned with a
// *agentsvc.RunError, matching the hosted client.
func (s *Service) CreateAndProcessRun(ctx context.Context, threadID, agentID string) (*agentsvc.Run, error) {
	s.mu.Lock()
	a, ok := s.agents[agentID]
	if !ok {
		s.mu.Unlock()
		return nil, notFound("agent", agentID)
	}
	th, ok := s.threads[threadID]
	if !ok {
		s.mu.Unlock()
		return nil, notFound("thread", threadID)
	}
	def := *a
	transcript := make([]agent.Message, 0, len(th.messages))
	for _, m := range th.messages {
		text, _ := m.Text()
		source := agent.UserSource
		if m.Role == agentsvc.RoleAssistant {
			source = def.Name
		}
		transcript = append(transcript, agent.Message{Source: source, Kind: agent.KindText, Content: text})
	}
	s.runCount++
	s.mu.Unlock()

	run := &agentsvc.Run{ID: newID("run"), ThreadID: threadID, AgentID: agentID, Status: agentsvc.RunInProgress}

	reply, err := s.assistant(def).Step(ctx, transcript, func(agent.Event) {})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("localsvc: run failed", "run", run.ID, "agent", def.Name, "error", err)
		run.Status = agentsvc.RunFailed
		run.LastError = &agentsvc.RunFault{Code: "server_error", Message: err.Error()}
		return run, &agentsvc.RunError{RunID: run.ID, Status: run.Status, Fault: run.LastError}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok = s.threads[threadID]
	if !ok {
		return nil, notFound("thread", threadID)
	}
	m := s.message(threadID, agentsvc.RoleAssistant, reply.Content)
	m.RunID = run.ID
	m.AgentID = agentID
	th.messages = append(th.messages, m)

	run.Status = agentsvc.RunCompleted
	return run, nil
}

func (s *Service) assistant(a agentsvc.Agent) *agent.Assistant {
	registry := agent.NewRegistry()
	for _, t := range a.Tools {
		if t.Type == agentsvc.ToolBingGrounding && s.search != nil {
			registry.Register(s.search)
		}
	}
	return agent.NewAssistant(a.Name, a.Instructions, s.provider, registry,
		agent.WithReflectOnToolUse(s.toolRounds))
}

// ListMessages returns the thread's messages newest first.
func (s *Service) ListMessages(ctx context.Context, threadID string) ([]agentsvc.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok := s.threads[threadID]
	if !ok {
		return nil, notFound("thread", threadID)
	}
	out := make([]agentsvc.Message, len(th.messages))
	for i, m := range th.messages {
		out[len(out)-1-i] = m
	}
	return out, nil
}

// Stats reports live resources, mostly useful for spotting leaks.
type Stats struct {
	Agents  []string
	Threads int
	Runs    int
}

func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Threads: len(s.threads), Runs: s.runCount}
	for _, a := range s.agents {
		st.Agents = append(st.Agents, a.Name)
	}
	sort.Strings(st.Agents)
	return st
}

// NewWebGrounded wires the service to Brave web search.
func NewWebGrounded(provider llm.Provider, braveAPIKey string, opts ...Option) (*Service, error) {
	brave, err := tools.NewBrave(braveAPIKey)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithSearch(tools.NewWebSearch(brave, 0))}, opts...)
	return New(provider, opts...), nil
}
