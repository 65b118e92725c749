// Package agentsvctest provides an in-memory agentsvc.Service that records
// the lifecycle calls it receives.
package agentsvctest

import (
	"context"
	"fmt"
	"sync"

	"stockteam/internal/agentsvc"
)

var _ agentsvc.Service = (*Fake)(nil)

// Fake answers every run with Answer unless one of the Err fields is set.
type Fake struct {
	Answer string

	CreateAgentErr   error
	CreateThreadErr  error
	CreateMessageErr error
	RunErr           error
	ListErr          error
	DeleteAgentErr   error

	// NoAssistantReply makes runs complete without adding a reply.
	NoAssistantReply bool

	mu            sync.Mutex
	seq           int
	agents        map[string]agentsvc.AgentParams
	params        map[string]agentsvc.AgentParams
	threads       map[string][]agentsvc.Message
	created       []string
	deleteCalls   map[string]int
	deletedThread []string
}

func New(answer string) *Fake {
	return &Fake{Answer: answer}
}

func (f *Fake) init() {
	if f.agents == nil {
		f.agents = make(map[string]agentsvc.AgentParams)
		f.params = make(map[string]agentsvc.AgentParams)
		f.threads = make(map[string][]agentsvc.Message)
		f.deleteCalls = make(map[string]int)
	}
}

func (f *Fake) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%d", prefix, f.seq)
}

func (f *Fake) CreateAgent(ctx context.Context, params agentsvc.AgentParams) (*agentsvc.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	if f.CreateAgentErr != nil {
		return nil, f.CreateAgentErr
	}
	id := f.nextID("asst")
	f.agents[id] = params
	f.params[id] = params
	f.created = append(f.created, id)
	return &agentsvc.Agent{ID: id, Name: params.Name, Model: params.Model, Instructions: params.Instructions, Tools: params.Tools}, nil
}

func (f *Fake) DeleteAgent(ctx context.Context, agentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	f.deleteCalls[agentID]++
	if f.DeleteAgentErr != nil {
		return f.DeleteAgentErr
	}
	delete(f.agents, agentID)
	return nil
}

func (f *Fake) CreateThread(ctx context.Context) (*agentsvc.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	if f.CreateThreadErr != nil {
		return nil, f.CreateThreadErr
	}
	id := f.nextID("thread")
	f.threads[id] = nil
	return &agentsvc.Thread{ID: id}, nil
}

func (f *Fake) DeleteThread(ctx context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	delete(f.threads, threadID)
	f.deletedThread = append(f.deletedThread, threadID)
	return nil
}

func (f *Fake) CreateMessage(ctx context.Context, threadID, role, content string) (*agentsvc.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	if f.CreateMessageErr != nil {
		return nil, f.CreateMessageErr
	}
	msg := textMessage(f.nextID("msg"), threadID, role, content)
	f.threads[threadID] = append(f.threads[threadID], msg)
	return &msg, nil
}

func (f *Fake) CreateAndProcessRun(ctx context.Context, threadID, agentID string) (*agentsvc.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.RunErr != nil {
		return nil, f.RunErr
	}
	runID := f.nextID("run")
	if !f.NoAssistantReply {
		reply := textMessage(f.nextID("msg"), threadID, agentsvc.RoleAssistant, f.Answer)
		reply.RunID = runID
		reply.AgentID = agentID
		f.threads[threadID] = append(f.threads[threadID], reply)
	}
	return &agentsvc.Run{ID: runID, ThreadID: threadID, AgentID: agentID, Status: agentsvc.RunCompleted}, nil
}

func (f *Fake) ListMessages(ctx context.Context, threadID string) ([]agentsvc.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	msgs := f.threads[threadID]
	out := make([]agentsvc.Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out, nil
}

// Created lists agent IDs in creation order.
func (f *Fake) Created() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.created...)
}

// DeleteCalls reports how often DeleteAgent was called for agentID.
func (f *Fake) DeleteCalls(agentID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	return f.deleteCalls[agentID]
}

func (f *Fake) DeletedThreads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletedThread...)
}

// Params returns the creation parameters of the n-th created agent.
func (f *Fake) Params(n int) agentsvc.AgentParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	return f.params[f.created[n]]
}

// Live reports agents that were created and not yet deleted.
func (f *Fake) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.agents)
}

func textMessage(id, threadID, role, content string) agentsvc.Message {
	return agentsvc.Message{
		ID:       id,
		ThreadID: threadID,
		Role:     role,
		Content: []agentsvc.MessageContent{{
			Type: "text",
			Text: &agentsvc.MessageText{Value: content},
		}},
	}
}
