package agentsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultAPIVersion           = "2024-12-01-preview"
	DefaultConnectionAPIVersion = "2024-07-01-preview"
	DefaultScope                = "https://management.azure.com/.default"
	DefaultPollInterval         = time.Second

	maxErrorBody = 4 << 10
)

var _ Service = (*Client)(nil)

// Client is a REST client for the hosted agent service of an AI project.
type Client struct {
	baseURL        string
	apiVersion     string
	connAPIVersion string
	cred           azcore.TokenCredential
	scope          string
	http           *http.Client
	pollInterval   time.Duration
}

type ClientOption func(*Client)

func WithAPIVersion(v string) ClientOption {
	return func(c *Client) { c.apiVersion = v }
}

func WithConnectionAPIVersion(v string) ClientOption {
	return func(c *Client) { c.connAPIVersion = v }
}

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

func WithPollInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.pollInterval = d }
}

func WithScope(scope string) ClientOption {
	return func(c *Client) { c.scope = scope }
}

// NewClient builds a client for baseURL. A nil cred sends no Authorization
// header.
func NewClient(baseURL string, cred azcore.TokenCredential, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		apiVersion:     DefaultAPIVersion,
		connAPIVersion: DefaultConnectionAPIVersion,
		cred:           cred,
		scope:          DefaultScope,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConnectionString parses a project connection string and
// builds a client for its agents endpoint.
func NewClientFromConnectionString(connStr string, cred azcore.TokenCredential, opts ...ClientOption) (*Client, error) {
	cs, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, err
	}
	return NewClient(cs.BaseURL(), cred, opts...), nil
}

func (c *Client) CreateAgent(ctx context.Context, params AgentParams) (*Agent, error) {
	var agent Agent
	hdr := http.Header{"x-ms-enable-preview": []string{"true"}}
	if err := c.do(ctx, http.MethodPost, "/assistants", c.apiVersion, params, &agent, hdr); err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	if agent.ID == "" {
		return nil, missingField("creating agent", "id")
	}
	slog.Debug("agentsvc: agent created", "agent_id", agent.ID, "name", agent.Name)
	return &agent, nil
}

func (c *Client) DeleteAgent(ctx context.Context, agentID string) error {
	if err := c.do(ctx, http.MethodDelete, "/assistants/"+url.PathEscape(agentID), c.apiVersion, nil, nil, nil); err != nil {
		return fmt.Errorf("deleting agent %s: %w", agentID, err)
	}
	slog.Debug("agentsvc: agent deleted", "agent_id", agentID)
	return nil
}

func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	var thread Thread
	if err := c.do(ctx, http.MethodPost, "/threads", c.apiVersion, struct{}{}, &thread, nil); err != nil {
		return nil, fmt.Errorf("creating thread: %w", err)
	}
	if thread.ID == "" {
		return nil, missingField("creating thread", "id")
	}
	return &thread, nil
}

func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	if err := c.do(ctx, http.MethodDelete, "/threads/"+url.PathEscape(threadID), c.apiVersion, nil, nil, nil); err != nil {
		return fmt.Errorf("deleting thread %s: %w", threadID, err)
	}
	return nil
}

func (c *Client) CreateMessage(ctx context.Context, threadID, role, content string) (*Message, error) {
	body := map[string]string{"role": role, "content": content}
	var msg Message
	if err := c.do(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/messages", c.apiVersion, body, &msg, nil); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	if msg.ID == "" {
		return nil, missingField("creating message", "id")
	}
	return &msg, nil
}

func (c *Client) CreateRun(ctx context.Context, threadID, agentID string) (*Run, error) {
	body := map[string]string{"assistant_id": agentID}
	var run Run
	if err := c.do(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/runs", c.apiVersion, body, &run, nil); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	if run.ID == "" {
		return nil, missingField("creating run", "id")
	}
	return &run, nil
}

func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var run Run
	path := "/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID)
	if err := c.do(ctx, http.MethodGet, path, c.apiVersion, nil, &run, nil); err != nil {
		return nil, fmt.Errorf("getting run %s: %w", runID, err)
	}
	if run.Status == "" {
		return nil, missingField("getting run", "status")
	}
	return &run, nil
}

// CreateAndProcessRun starts a run and polls it until it reaches a terminal
// status. A run that ends other than completed is returned together with a
// *RunError.
func (c *Client) CreateAndProcessRun(ctx context.Context, threadID, agentID string) (*Run, error) {
	run, err := c.CreateRun(ctx, threadID, agentID)
	if err != nil {
		return nil, err
	}

	for !run.Status.Terminal() {
		t := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return run, ctx.Err()
		case <-t.C:
		}

		run, err = c.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return nil, err
		}
		slog.Debug("agentsvc: run polled", "run_id", run.ID, "status", run.Status)
	}

	if run.Status != RunCompleted {
		return run, &RunError{RunID: run.ID, Status: run.Status, Fault: run.LastError}
	}
	return run, nil
}

// ListMessages returns the thread's messages, newest first.
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	var page struct {
		Data *[]Message `json:"data"`
	}
	path := "/threads/" + url.PathEscape(threadID) + "/messages?order=desc"
	if err := c.do(ctx, http.MethodGet, path, c.apiVersion, nil, &page, nil); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	if page.Data == nil {
		return nil, missingField("listing messages", "data")
	}
	return *page.Data, nil
}

// GetConnection resolves a named project connection, e.g. the web search
// grounding connection.
func (c *Client) GetConnection(ctx context.Context, name string) (*Connection, error) {
	var conn Connection
	if err := c.do(ctx, http.MethodGet, "/connections/"+url.PathEscape(name), c.connAPIVersion, nil, &conn, nil); err != nil {
		return nil, fmt.Errorf("getting connection %s: %w", name, err)
	}
	if conn.ID == "" {
		return nil, missingField("getting connection", "id")
	}
	return &conn, nil
}

func (c *Client) do(ctx context.Context, method, path, apiVersion string, in, out any, hdr http.Header) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("api-version", apiVersion)
	u.RawQuery = q.Encode()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if c.cred != nil {
		tok, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{c.scope}})
		if err != nil {
			return fmt.Errorf("acquiring token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}

	var envelope struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
