package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GotifyConfig configures the Gotify channel.
type GotifyConfig struct {
	URL      string
	Token    string
	Priority int
	Timeout  time.Duration
}

// Gotify pushes messages to a Gotify server.
type Gotify struct {
	config *GotifyConfig
	client *http.Client
}

// NewGotify creates a Gotify notifier.
func NewGotify(cfg *GotifyConfig) *Gotify {
	return &Gotify{config: cfg, client: newHTTPClient(cfg.Timeout)}
}

// Name returns "gotify".
func (g *Gotify) Name() string { return "gotify" }

type gotifyMessage struct {
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Priority int            `json:"priority"`
	Extras   map[string]any `json:"extras,omitempty"`
}

// Push sends the message. Markdown bodies are flagged so clients render them.
func (g *Gotify) Push(ctx context.Context, msg Message) error {
	endpoint, err := url.Parse(strings.TrimRight(g.config.URL, "/") + "/message")
	if err != nil {
		return fmt.Errorf("invalid gotify url: %w", err)
	}
	q := endpoint.Query()
	q.Set("token", g.config.Token)
	endpoint.RawQuery = q.Encode()

	payload := gotifyMessage{
		Title:    msg.Title,
		Message:  msg.Body,
		Priority: g.config.Priority,
	}
	if msg.ContentType == "markdown" {
		payload.Extras = map[string]any{
			"client::display": map[string]string{"contentType": "text/markdown"},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return postJSON(ctx, g.client, endpoint.String(), body)
}

var _ Notifier = (*Gotify)(nil)
