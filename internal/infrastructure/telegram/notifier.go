package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"PolicyDigest/internal/digest"
	"PolicyDigest/internal/domain"
	"PolicyDigest/internal/logging"
	"PolicyDigest/internal/ports"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	// maxMessageRunes is the Bot API limit for one message text.
	maxMessageRunes = 4096
)

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	botToken  string
	chatID    string
	apiBase   string
	formatter digest.Formatter
	client    *http.Client
	logger    *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty apiBase uses api.telegram.org.
func NewNotifier(botToken, chatID, apiBase string, limits digest.Limits, titleWidth int, logger *slog.Logger) *Notifier {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Notifier{
		botToken:  botToken,
		chatID:    chatID,
		apiBase:   strings.TrimSuffix(apiBase, "/"),
		formatter: digest.Formatter{Style: digest.TelegramHTML, Limits: limits, TitleWidth: titleWidth},
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger.With("component", "telegram"),
	}
}

// Configured reports whether both token and chat are set.
func (n *Notifier) Configured() bool {
	return n.botToken != "" && n.chatID != ""
}

// PublishDigest posts the summary and replies to it with the full listing.
func (n *Notifier) PublishDigest(ctx context.Context, d domain.Digest) error {
	if d.Categories.Total() == 0 {
		return nil
	}
	if !n.Configured() || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	var mainID int64
	for i, chunk := range digest.Split(n.formatter.Main(d), maxMessageRunes) {
		id, err := n.send(ctx, chunk, 0)
		if err != nil {
			return fmt.Errorf("send summary: %w", err)
		}
		if i == 0 {
			mainID = id
		}
	}

	for _, chunk := range digest.Split(n.formatter.Full(d), maxMessageRunes) {
		if _, err := n.send(ctx, chunk, mainID); err != nil {
			return fmt.Errorf("send full listing: %w", err)
		}
	}

	n.logger.Info("telegram digest sent", "articles", d.Categories.Total())
	return nil
}

type sendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

func (n *Notifier) send(ctx context.Context, text string, replyTo int64) (int64, error) {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")
	form.Set("disable_web_page_preview", "true")
	if replyTo > 0 {
		form.Set("reply_to_message_id", strconv.FormatInt(replyTo, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var out sendResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode != http.StatusOK {
		if out.Description != "" {
			return 0, fmt.Errorf("telegram error: %s: %s", resp.Status, out.Description)
		}
		return 0, fmt.Errorf("telegram error: %s", resp.Status)
	}
	if decodeErr != nil {
		return 0, fmt.Errorf("decode response: %w", decodeErr)
	}
	if !out.OK {
		return 0, fmt.Errorf("telegram error: %s", out.Description)
	}
	return out.Result.MessageID, nil
}
