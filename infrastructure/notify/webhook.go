package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tidwall/sjson"
)

// WebhookConfig configures a generic JSON webhook.
type WebhookConfig struct {
	URL string
	// TitleKey and BodyKey are sjson paths, so nested payloads such as
	// "markdown.text" can be produced. Empty TitleKey omits the title.
	TitleKey       string
	BodyKey        string
	ContentTypeKey string
	Timeout        time.Duration
}

// DefaultWebhookConfig returns a flat {"title","content","content_type"} payload.
func DefaultWebhookConfig(url string) *WebhookConfig {
	return &WebhookConfig{
		URL:            url,
		TitleKey:       "title",
		BodyKey:        "content",
		ContentTypeKey: "content_type",
	}
}

// Webhook posts messages as JSON to an arbitrary URL.
type Webhook struct {
	config *WebhookConfig
	client *http.Client
}

// NewWebhook creates a webhook notifier.
func NewWebhook(cfg *WebhookConfig) *Webhook {
	if cfg.BodyKey == "" {
		cfg.BodyKey = "content"
	}
	return &Webhook{config: cfg, client: newHTTPClient(cfg.Timeout)}
}

// Name returns "webhook".
func (w *Webhook) Name() string { return "webhook" }

// Payload builds the request body.
func (w *Webhook) Payload(msg Message) ([]byte, error) {
	body := []byte(`{}`)
	var err error

	if w.config.TitleKey != "" {
		if body, err = sjson.SetBytes(body, w.config.TitleKey, msg.Title); err != nil {
			return nil, fmt.Errorf("set %s: %w", w.config.TitleKey, err)
		}
	}
	if body, err = sjson.SetBytes(body, w.config.BodyKey, msg.Body); err != nil {
		return nil, fmt.Errorf("set %s: %w", w.config.BodyKey, err)
	}
	if w.config.ContentTypeKey != "" && msg.ContentType != "" {
		if body, err = sjson.SetBytes(body, w.config.ContentTypeKey, msg.ContentType); err != nil {
			return nil, fmt.Errorf("set %s: %w", w.config.ContentTypeKey, err)
		}
	}
	return body, nil
}

// Push posts the message.
func (w *Webhook) Push(ctx context.Context, msg Message) error {
	body, err := w.Payload(msg)
	if err != nil {
		return err
	}
	return postJSON(ctx, w.client, w.config.URL, body)
}

var _ Notifier = (*Webhook)(nil)
