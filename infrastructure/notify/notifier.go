// Package notify delivers run reports to people.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Message is a notification to deliver.
type Message struct {
	Title       string
	Body        string
	ContentType string
}

// Notifier delivers messages to one channel.
type Notifier interface {
	// Name identifies the channel in logs.
	Name() string

	// Push sends the message.
	Push(ctx context.Context, msg Message) error
}

// DefaultTimeout bounds a single delivery request.
const DefaultTimeout = 15 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// postJSON sends body and treats any 2xx status as delivered.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}
	return nil
}

// Multi fans a message out to several notifiers.
type Multi struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewMulti creates a fan-out notifier.
func NewMulti(logger *slog.Logger, notifiers ...Notifier) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{notifiers: notifiers, logger: logger}
}

// Name returns "multi".
func (m *Multi) Name() string { return "multi" }

// Len returns the number of channels.
func (m *Multi) Len() int { return len(m.notifiers) }

// Push sends to every channel. A failing channel does not stop the others;
// the joined error lists all failures. Callers log the overall result.
func (m *Multi) Push(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Push(ctx, msg); err != nil {
			m.logger.Debug("Channel delivery failed", "channel", n.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		m.logger.Debug("Channel delivered", "channel", n.Name())
	}
	return errors.Join(errs...)
}

// NoOp discards messages.
type NoOp struct{}

// Name returns "noop".
func (NoOp) Name() string { return "noop" }

// Push does nothing.
func (NoOp) Push(ctx context.Context, msg Message) error { return nil }

var (
	_ Notifier = (*Multi)(nil)
	_ Notifier = NoOp{}
)
