// Package console prints a team's event stream to a terminal.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"stockteam/internal/agent"

	"github.com/charmbracelet/lipgloss"
)

type Option func(*Renderer)

// WithTokens streams model tokens as they arrive instead of waiting for
// whole messages.
func WithTokens() Option {
	return func(r *Renderer) { r.tokens = true }
}

// Renderer writes one section per message, headed by its source.
type Renderer struct {
	w      io.Writer
	tokens bool

	header lipgloss.Style
	tool   lipgloss.Style
	failed lipgloss.Style
	footer lipgloss.Style

	mu        sync.Mutex
	streaming string
}

func New(w io.Writer, opts ...Option) *Renderer {
	re := lipgloss.NewRenderer(w)
	r := &Renderer{
		w:      w,
		header: re.NewStyle().Bold(true).Foreground(lipgloss.Color("#01cdfe")),
		tool:   re.NewStyle().Foreground(lipgloss.Color("#9ca3d8")),
		failed: re.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f87")),
		footer: re.NewStyle().Foreground(lipgloss.Color("#05ffa1")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) headerLine(source string) string {
	return r.header.Render(fmt.Sprintf("---------- %s ----------", source))
}

// Handle renders one event. It is safe to use as an emit callback.
func (r *Renderer) Handle(ev agent.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case agent.EventToken:
		if !r.tokens {
			return
		}
		if r.streaming != ev.Source {
			r.streaming = ev.Source
			fmt.Fprintln(r.w, r.headerLine(ev.Source))
		}
		fmt.Fprint(r.w, ev.Data)

	case agent.EventMessage:
		m, ok := ev.Data.(agent.Message)
		if !ok {
			return
		}
		if r.streaming == m.Source && m.Kind == agent.KindText {
			// Already printed token by token.
			fmt.Fprintln(r.w)
			r.streaming = ""
			return
		}
		r.streaming = ""
		fmt.Fprintln(r.w, r.headerLine(m.Source))
		fmt.Fprintln(r.w, m.Content)

	case agent.EventToolCall:
		c, ok := ev.Data.(agent.ToolCall)
		if !ok {
			return
		}
		r.streaming = ""
		fmt.Fprintln(r.w, r.headerLine(ev.Source))
		fmt.Fprintln(r.w, r.tool.Render(fmt.Sprintf("[call %s(%s)]", c.Name, c.Arguments)))

	case agent.EventToolResult:
		res, ok := ev.Data.(agent.ToolResult)
		if !ok {
			return
		}
		label := "result"
		if res.IsError {
			label = "error"
		}
		fmt.Fprintln(r.w, r.tool.Render(fmt.Sprintf("[%s %s: %s]", label, res.Name, oneLine(res.Content, 200))))

	case agent.EventError:
		fmt.Fprintln(r.w, r.failed.Render(fmt.Sprintf("error: %v", ev.Data)))

	case agent.EventDone:
		fmt.Fprintln(r.w, r.footer.Render(fmt.Sprintf("Stop reason: %v", ev.Data)))
	}
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
