// Package webhook posts digests as plain JSON for downstream consumers.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"PolicyDigest/internal/domain"
	"PolicyDigest/internal/ports"
)

// Payload is the JSON body sent to the endpoint.
type Payload struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Total       int            `json:"total"`
	Categories  []CategoryBody `json:"categories"`
}

// CategoryBody lists one category in display order.
type CategoryBody struct {
	Category string          `json:"category"`
	Articles []domain.Record `json:"articles"`
}

// Notifier implements ports.Notifier with an authenticated JSON POST.
type Notifier struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier builds a client; apiKey is optional and sent as a bearer token.
func NewNotifier(endpoint, apiKey string) *Notifier {
	return &Notifier{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Configured reports whether an endpoint is set.
func (n *Notifier) Configured() bool {
	return n != nil && n.endpoint != ""
}

// PublishDigest posts the categorized records.
func (n *Notifier) PublishDigest(ctx context.Context, d domain.Digest) error {
	if !n.Configured() {
		return fmt.Errorf("webhook notifier misconfigured")
	}
	if d.Categories.Total() == 0 {
		return nil
	}

	body, err := json.Marshal(BuildPayload(d))
	if err != nil {
		return fmt.Errorf("marshal digest payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	return nil
}

// BuildPayload flattens the digest into its transport form.
func BuildPayload(d domain.Digest) Payload {
	groups := d.Categories.Groups()
	payload := Payload{
		GeneratedAt: d.GeneratedAt,
		Total:       d.Categories.Total(),
		Categories:  make([]CategoryBody, 0, len(groups)),
	}
	for _, group := range groups {
		records := make([]domain.Record, 0, len(group.Articles))
		for _, article := range group.Articles {
			record := article.Record()
			if record.Category == "" {
				record.Category = string(group.Category)
			}
			records = append(records, record)
		}
		payload.Categories = append(payload.Categories, CategoryBody{
			Category: string(group.Category),
			Articles: records,
		})
	}
	return payload
}
