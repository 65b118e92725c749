package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"stockteam/internal/analysis"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	telegramAPIBase      = "https://api.telegram.org/bot%s"
	telegramSendMsg      = "/sendMessage"
	telegramChatAction   = "/sendChatAction"
	telegramSetWebhook   = "/setWebhook"
	telegramActionTyping = "typing"
	telegramAnalyzeCmd   = "/analyze"

	telegramMaxText = 4096
)

type TelegramOption func(*Telegram)

// WithAllowedUsers restricts analyses to the given Telegram user IDs. An
// empty list lets nobody in.
func WithAllowedUsers(ids []int64) TelegramOption {
	return func(t *Telegram) {
		t.allowedUsers = ids
		t.restricted = true
	}
}

// ParseAllowedUsers parses a comma-separated list of Telegram user IDs.
// Blank entries are skipped; anything else that is not an ID is an error.
func ParseAllowedUsers(v string) ([]int64, error) {
	var ids []int64
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("allowed_users: %q is not a numeric user id", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// WithWebhookURL registers url with Telegram when the channel starts.
func WithWebhookURL(url string) TelegramOption {
	return func(t *Telegram) { t.webhookURL = url }
}

func WithAPIURL(url string) TelegramOption {
	return func(t *Telegram) { t.apiURL = strings.TrimRight(url, "/") }
}

func WithHTTPClient(c *http.Client) TelegramOption {
	return func(t *Telegram) { t.client = c }
}

// Telegram treats every incoming text message as a stock name, runs an
// analysis and replies with the team's final message.
type Telegram struct {
	analyzer     analysis.Analyzer
	apiURL       string
	webhookURL   string
	allowedUsers []int64
	restricted   bool
	client       *http.Client

	mu  sync.Mutex
	ctx context.Context
	wg  sync.WaitGroup
}

func NewTelegram(botToken string, analyzer analysis.Analyzer, opts ...TelegramOption) *Telegram {
	t := &Telegram{
		analyzer: analyzer,
		apiURL:   fmt.Sprintf(telegramAPIBase, botToken),
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		ctx: context.Background(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhook/telegram", t.handleWebhook)
}

func (t *Telegram) Start(ctx context.Context) error {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()

	if t.webhookURL != "" {
		if err := t.call(ctx, telegramSetWebhook, map[string]any{"url": t.webhookURL}); err != nil {
			return fmt.Errorf("telegram: setting webhook: %w", err)
		}
		slog.Info("telegram: webhook registered", "url", t.webhookURL)
	}

	<-ctx.Done()
	t.wg.Wait()
	return nil
}

// Wait blocks until background analyses have finished.
func (t *Telegram) Wait() { t.wg.Wait() }

type telegramUpdate struct {
	Message *telegramMessage `json:"message"`
}

type telegramMessage struct {
	From *telegramUser `json:"from"`
	Chat telegramChat  `json:"chat"`
	Text string        `json:"text"`
}

type telegramUser struct {
	ID int64 `json:"id"`
}

type telegramChat struct {
	ID int64 `json:"id"`
}

type telegramSendRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update telegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Error("telegram: failed to decode update", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Telegram retries updates that are not acknowledged, so the analysis
	// runs after the response.
	w.WriteHeader(http.StatusOK)

	if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
		return
	}
	msg := update.Message
	if !t.allowed(msg.From) {
		slog.Warn("telegram: ignoring message from unknown user", "chat_id", msg.Chat.ID)
		return
	}

	stock := stockFromText(msg.Text)
	slog.Info("telegram: analysis requested", "chat_id", msg.Chat.ID, "stock", stock)

	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.analyze(ctx, msg.Chat.ID, stock)
	}()
}

// stockFromText drops a leading /analyze command, including the
// /analyze@botname form used in groups.
func stockFromText(text string) string {
	text = strings.TrimSpace(text)
	cmd, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		cmd, rest = text[:i], text[i:]
	}
	name, _, _ := strings.Cut(cmd, "@")
	if name != telegramAnalyzeCmd {
		return text
	}
	return strings.TrimSpace(rest)
}

func (t *Telegram) allowed(from *telegramUser) bool {
	if !t.restricted {
		return true
	}
	return from != nil && slices.Contains(t.allowedUsers, from.ID)
}

func (t *Telegram) analyze(ctx context.Context, chatID int64, stock string) {
	t.sendTyping(ctx, chatID)

	report, err := t.analyzer.Analyze(ctx, stock, nil)
	if err != nil {
		slog.Error("telegram: analysis failed", "chat_id", chatID, "error", err)
		if err := t.sendMessage(ctx, chatID, "Analysis failed: "+err.Error()); err != nil {
			slog.Error("telegram: failed to send message", "chat_id", chatID, "error", err)
		}
		return
	}

	reply := "No answer."
	if last, ok := report.Last(); ok {
		reply = last.Content
	}
	if err := t.sendMessage(ctx, chatID, reply); err != nil {
		slog.Error("telegram: failed to send message", "chat_id", chatID, "error", err)
	}
}

func (t *Telegram) sendTyping(ctx context.Context, chatID int64) {
	err := t.call(ctx, telegramChatAction, map[string]any{
		"chat_id": chatID,
		"action":  telegramActionTyping,
	})
	if err != nil {
		slog.Warn("telegram: failed to send typing action", "chat_id", chatID, "error", err)
	}
}

func (t *Telegram) sendMessage(ctx context.Context, chatID int64, text string) error {
	return t.call(ctx, telegramSendMsg, telegramSendRequest{ChatID: chatID, Text: truncateRunes(text, telegramMaxText)})
}

func (t *Telegram) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out telegramResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode != http.StatusOK || !out.OK {
		if out.Description != "" {
			return errors.New("telegram API: " + out.Description)
		}
		return fmt.Errorf("telegram API returned %d", resp.StatusCode)
	}
	return nil
}

// truncateRunes cuts s to at most n characters.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for j := range s {
		if i == n {
			return s[:j]
		}
		i++
	}
	return s
}
