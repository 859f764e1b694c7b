// Package httpclient provides the cookie-carrying HTTP session used to talk
// to provider APIs.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/http2"
)

// MaxBodySize caps how much of a response body is read.
const MaxBodySize = 4 << 20

// Config contains configuration for HTTP sessions.
type Config struct {
	Timeout        time.Duration
	UserAgent      string
	AcceptLanguage string
}

// DefaultConfig returns default session configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36",
		AcceptLanguage: "zh-CN,zh;q=0.9,en;q=0.8",
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Session is a pooled HTTP client bound to one site with a fixed cookie set
// and header set. It is not safe for concurrent use by multiple accounts.
type Session struct {
	client    *http.Client
	transport *http.Transport
	header    http.Header
}

// NewSession creates a session for siteURL. Cookies are scoped to that site;
// header is sent with every request on top of the browser headers.
func NewSession(cfg *Config, siteURL string, cookies map[string]string, header http.Header) (*Session, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	site, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid site url %q: %w", siteURL, err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		// Accept-Encoding is set explicitly, so bodies are decoded by hand.
		DisableCompression: true,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("failed to enable http2: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	jarCookies := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		jarCookies = append(jarCookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	jar.SetCookies(site, jarCookies)

	h := BrowserHeaders(cfg, site)
	for key, values := range header {
		h[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}

	return &Session{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			Jar:       jar,
		},
		transport: transport,
		header:    h,
	}, nil
}

// BrowserHeaders returns headers matching the browser used for WAF cookie
// acquisition.
func BrowserHeaders(cfg *Config, site *url.URL) http.Header {
	origin := site.Scheme + "://" + site.Host
	h := http.Header{}
	h.Set("User-Agent", cfg.UserAgent)
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Accept-Language", cfg.AcceptLanguage)
	h.Set("Accept-Encoding", AcceptEncoding)
	h.Set("Referer", origin)
	h.Set("Origin", origin)
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-origin")
	return h
}

// Get issues a GET request.
func (s *Session) Get(ctx context.Context, rawURL string) (*Response, error) {
	return s.do(ctx, http.MethodGet, rawURL, nil, nil)
}

// PostJSON issues a POST request marked as an XHR with a JSON content type.
func (s *Session) PostJSON(ctx context.Context, rawURL string, body []byte) (*Response, error) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-Requested-With", "XMLHttpRequest")
	return s.do(ctx, http.MethodPost, rawURL, body, h)
}

func (s *Session) do(ctx context.Context, method, rawURL string, body []byte, extra http.Header) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range s.header {
		req.Header[key] = values
	}
	for key, values := range extra {
		req.Header[key] = values
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// Close releases pooled connections.
func (s *Session) Close() {
	s.transport.CloseIdleConnections()
}
