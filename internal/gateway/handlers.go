package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"stockteam/internal/agent"
	"stockteam/internal/history"
)

type analyzeRequest struct {
	Stock string `json:"stock"`
}

type doneEvent struct {
	RunID      string `json:"run_id"`
	StopReason string `json:"stop_reason"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	sse := NewSSEWriter(w)
	var sentError bool

	pingCtx, stopPing := context.WithCancel(r.Context())
	pingDone := make(chan struct{})
	go func() {
		defer close(pingDone)
		sse.KeepAlive(pingCtx, s.keepAlive)
	}()
	// The writer must not be touched after the handler returns.
	defer func() {
		stopPing()
		<-pingDone
	}()

	report, err := s.analyzer.Analyze(r.Context(), strings.TrimSpace(req.Stock), func(ev agent.Event) {
		var err error
		switch ev.Type {
		case agent.EventToken:
			err = sse.Send("token", map[string]any{"source": ev.Source, "content": ev.Data})
		case agent.EventMessage:
			err = sse.Send("message", ev.Data)
		case agent.EventToolCall, agent.EventToolResult:
			err = sse.Send(string(ev.Type), map[string]any{"source": ev.Source, "data": ev.Data})
		case agent.EventError:
			sentError = true
			err = sse.Send("error", map[string]any{"error": ev.Data})
		}
		if err != nil {
			slog.Debug("gateway: sse write failed", "error", err)
		}
	})

	if err != nil {
		if !sentError {
			sse.Send("error", map[string]string{"error": err.Error()})
		}
		return
	}
	sse.Send("done", doneEvent{RunID: report.RunID, StopReason: report.StopReason})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		slog.Error("gateway: listing runs", "error", err)
		writeError(w, http.StatusInternalServerError, "listing runs failed")
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}
	run, err := s.runs.GetRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		slog.Error("gateway: getting run", "error", err)
		writeError(w, http.StatusInternalServerError, "getting run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("gateway: writing response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
