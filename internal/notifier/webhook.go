package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logx "annwatch/pkg/logx"
)

type webhookPayload struct {
	MsgType  string          `json:"msgtype"`
	Markdown webhookMarkdown `json:"markdown"`
}

type webhookMarkdown struct {
	Content string `json:"content"`
}

// webhookReply is the robot API response. Errcode is nil for endpoints that
// do not answer with JSON.
type webhookReply struct {
	ErrCode *int   `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Webhook posts markdown messages to a group-robot webhook URL.
type Webhook struct {
	url    string
	client *http.Client
	log    logx.Logger

	mu      sync.Mutex
	limiter *rate.Limiter
}

func NewWebhook(url string, timeout time.Duration, ratePerSec int, log logx.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	tr := &http.Transport{
		Proxy:               nil,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		IdleConnTimeout:     90 * time.Second,
	}
	w := &Webhook{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout, Transport: tr},
		log:    log,
	}
	w.SetRate(ratePerSec)
	return w
}

func (w *Webhook) Name() string { return "webhook" }

// SetRate replaces the send rate limit. Burst equals the rate so a cycle with
// a handful of new items goes out without waiting.
func (w *Webhook) SetRate(perSec int) {
	if perSec <= 0 {
		perSec = 2
	}
	w.mu.Lock()
	w.limiter = rate.NewLimiter(rate.Limit(perSec), perSec)
	w.mu.Unlock()
}

func (w *Webhook) Send(ctx context.Context, m Message) error {
	w.mu.Lock()
	lim := w.limiter
	w.mu.Unlock()
	if err := lim.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(webhookPayload{
		MsgType:  "markdown",
		Markdown: webhookMarkdown{Content: RenderMarkdown(m)},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	reply, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, snippet(reply))
	}
	var r webhookReply
	if json.Unmarshal(reply, &r) == nil && r.ErrCode != nil && *r.ErrCode != 0 {
		return fmt.Errorf("webhook errcode %d: %s", *r.ErrCode, r.ErrMsg)
	}
	return nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		s = s[:300] + "…"
	}
	return s
}
