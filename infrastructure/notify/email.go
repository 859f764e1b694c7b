package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
)

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	// ImplicitTLS dials TLS directly (port 465). Otherwise the connection is
	// upgraded with STARTTLS when the server offers it.
	ImplicitTLS bool
	// Timeout bounds the whole SMTP conversation.
	Timeout time.Duration
}

// sendFunc delivers one composed message.
type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email sends messages over SMTP.
type Email struct {
	config *EmailConfig
	send   sendFunc
	now    func() time.Time
}

// NewEmail creates an SMTP notifier.
func NewEmail(cfg *EmailConfig) *Email {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	e := &Email{config: cfg, now: time.Now}
	e.send = e.deliver
	return e
}

// Name returns "email".
func (e *Email) Name() string { return "email" }

// Compose renders the message as an RFC 5322 mail.
func (e *Email) Compose(msg Message) ([]byte, error) {
	var h mail.Header
	h.SetDate(e.now())
	h.SetSubject(msg.Title)
	h.SetAddressList("From", []*mail.Address{{Address: e.config.From}})

	to := make([]*mail.Address, len(e.config.To))
	for i, addr := range e.config.To {
		to[i] = &mail.Address{Address: addr}
	}
	h.SetAddressList("To", to)

	contentType := "text/plain"
	if msg.ContentType == "markdown" {
		contentType = "text/markdown"
	}
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail writer: %w", err)
	}
	if _, err := io.WriteString(w, msg.Body); err != nil {
		return nil, fmt.Errorf("failed to write mail body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish mail: %w", err)
	}
	return buf.Bytes(), nil
}

// Push sends the message to every recipient.
func (e *Email) Push(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := e.Compose(msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if e.config.Username != "" {
		auth = smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
	}
	addr := net.JoinHostPort(e.config.Host, strconv.Itoa(e.config.Port))
	if err := e.send(ctx, addr, auth, e.config.From, e.config.To, data); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

func (e *Email) deliver(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	tlsConfig := &tls.Config{ServerName: e.config.Host}
	dialer := &net.Dialer{}

	var conn net.Conn
	var err error
	if e.config.ImplicitTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	// Unblock pending reads on timeout or cancellation.
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	client, err := smtp.NewClient(conn, e.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if !e.config.ImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("STARTTLS failed: %w", err)
			}
		}
	}

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

var _ Notifier = (*Email)(nil)
