// Package slack delivers digests through the Slack Web API or an incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"PolicyDigest/internal/digest"
	"PolicyDigest/internal/domain"
	"PolicyDigest/internal/logging"
	"PolicyDigest/internal/ports"
)

const defaultAPIBase = "https://slack.com/api"

// Config holds the delivery credentials. The bot token and channel take
// precedence; the webhook is used alone or as a fallback.
type Config struct {
	BotToken   string
	ChannelID  string
	WebhookURL string
	// APIBase overrides https://slack.com/api.
	APIBase string
}

// Notifier sends the summary as a channel message and the full listing as a thread reply.
type Notifier struct {
	cfg       Config
	formatter digest.Formatter
	client    *http.Client
	logger    *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier wires credentials and message limits.
func NewNotifier(cfg Config, limits digest.Limits, titleWidth int, logger *slog.Logger) *Notifier {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Notifier{
		cfg:       cfg,
		formatter: digest.Formatter{Style: digest.Slack, Limits: limits, TitleWidth: titleWidth},
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger.With("component", "slack"),
	}
}

// Configured reports whether any delivery path is set.
func (n *Notifier) Configured() bool {
	return n.botReady() || n.cfg.WebhookURL != ""
}

func (n *Notifier) botReady() bool {
	return n.cfg.BotToken != "" && n.cfg.ChannelID != ""
}

// PublishDigest posts the digest. An empty digest is a successful no-op.
func (n *Notifier) PublishDigest(ctx context.Context, d domain.Digest) error {
	if d.Categories.Total() == 0 {
		return nil
	}

	switch {
	case n.botReady():
		posted, err := n.sendViaBot(ctx, d)
		if err == nil {
			n.logger.Info("slack digest sent", "mode", "bot", "articles", d.Categories.Total())
			return nil
		}
		// The summary is already in the channel; a webhook retry would duplicate it.
		if posted || n.cfg.WebhookURL == "" {
			return err
		}
		n.logger.Warn("slack bot delivery failed, falling back to webhook", "error", err)
		return n.sendViaWebhook(ctx, d)
	case n.cfg.WebhookURL != "":
		return n.sendViaWebhook(ctx, d)
	default:
		return errors.New("slack notifier misconfigured")
	}
}

type message struct {
	Channel     string `json:"channel,omitempty"`
	Text        string `json:"text"`
	ThreadTS    string `json:"thread_ts,omitempty"`
	UnfurlLinks bool   `json:"unfurl_links"`
	UnfurlMedia bool   `json:"unfurl_media"`
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	TS    string `json:"ts"`
}

func (n *Notifier) sendViaBot(ctx context.Context, d domain.Digest) (bool, error) {
	// Joining fails when already a member or lacking scope; posting decides.
	if _, err := n.call(ctx, "conversations.join", map[string]string{"channel": n.cfg.ChannelID}); err != nil {
		n.logger.Debug("conversations.join", "error", err)
	}

	main, err := n.call(ctx, "chat.postMessage", message{
		Channel: n.cfg.ChannelID,
		Text:    n.formatter.Main(d),
	})
	if err != nil {
		return false, fmt.Errorf("post main message: %w", err)
	}

	if _, err := n.call(ctx, "chat.postMessage", message{
		Channel:  n.cfg.ChannelID,
		Text:     n.formatter.Full(d),
		ThreadTS: main.TS,
	}); err != nil {
		return true, fmt.Errorf("post thread reply: %w", err)
	}
	return true, nil
}

func (n *Notifier) call(ctx context.Context, method string, payload any) (apiResponse, error) {
	var out apiResponse
	body, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(n.cfg.APIBase, "/")+"/"+method, bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.cfg.BotToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := n.client.Do(req)
	if err != nil {
		return out, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("%s: slack error %s", method, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("%s: decode response: %w", method, err)
	}
	if !out.OK {
		return out, fmt.Errorf("%s: %s", method, out.Error)
	}
	return out, nil
}

// sendViaWebhook posts only the summary; webhooks cannot open threads.
func (n *Notifier) sendViaWebhook(ctx context.Context, d domain.Digest) error {
	body, err := json.Marshal(message{Text: n.formatter.Main(d)})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("slack webhook error: %s", resp.Status)
	}

	n.logger.Info("slack digest sent", "mode", "webhook", "articles", d.Categories.Total())
	return nil
}
