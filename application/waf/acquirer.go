// Package waf obtains WAF clearance cookies by driving a real browser.
package waf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"checkin-go/domain/account"
	"checkin-go/infrastructure/browser"
)

// ErrIncompleteCookies is returned when the browser did not receive every
// required cookie.
var ErrIncompleteCookies = errors.New("missing WAF cookies")

// Config holds configuration for the Acquirer.
type Config struct {
	// DriverFactory creates a browser driver per acquisition.
	DriverFactory browser.Factory

	// Browser is the base driver configuration. UserDataDir is replaced by a
	// fresh temporary directory on every acquisition.
	Browser *browser.DriverConfig

	// NavigationTimeout bounds the login page load, including the wait for
	// network idle.
	NavigationTimeout time.Duration

	// ReadyTimeout bounds the wait for document.readyState.
	ReadyTimeout time.Duration

	// GraceDelay is waited instead when the readiness wait fails.
	GraceDelay time.Duration

	// TempDir is the parent for profile directories. Empty uses os.TempDir.
	TempDir string

	Logger *slog.Logger
}

// DefaultConfig returns the default acquirer configuration.
func DefaultConfig() *Config {
	return &Config{
		DriverFactory:     func(cfg *browser.DriverConfig) browser.Driver { return browser.NewChromeDPDriver(cfg) },
		Browser:           browser.DefaultDriverConfig(),
		NavigationTimeout: 30 * time.Second,
		ReadyTimeout:      5 * time.Second,
		GraceDelay:        3 * time.Second,
	}
}

// Acquirer runs isolated browser sessions to collect WAF cookies.
type Acquirer struct {
	config *Config
	logger *slog.Logger
}

// NewAcquirer creates an acquirer. A nil config uses DefaultConfig.
func NewAcquirer(cfg *Config) *Acquirer {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	if cfg.DriverFactory == nil {
		cfg.DriverFactory = def.DriverFactory
	}
	if cfg.Browser == nil {
		cfg.Browser = def.Browser
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = def.NavigationTimeout
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = def.ReadyTimeout
	}
	if cfg.GraceDelay < 0 {
		cfg.GraceDelay = 0
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{config: cfg, logger: logger}
}

// Acquire opens loginURL in a throwaway browser profile and returns the
// cookies named in required. Either every required cookie is returned or
// an error is; partial sets are never returned.
func (a *Acquirer) Acquire(ctx context.Context, label, loginURL string, required []string) (account.CookieSet, error) {
	logger := a.logger.With("account", label)
	logger.Info("Starting browser to get WAF cookies")

	profileDir, err := os.MkdirTemp(a.config.TempDir, "checkin-profile-")
	if err != nil {
		return nil, fmt.Errorf("failed to create browser profile: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(profileDir); err != nil {
			logger.Warn("Failed to remove browser profile", "dir", profileDir, "error", err)
		}
	}()

	cfg := a.config.Browser.Clone()
	cfg.UserDataDir = profileDir

	driver := a.config.DriverFactory(cfg)
	if err := driver.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err := driver.Stop(); err != nil {
			logger.Warn("Failed to stop browser", "error", err)
		}
	}()

	logger.Info("Accessing login page to get initial cookies", "url", loginURL)
	if err := a.navigate(ctx, driver, loginURL); err != nil {
		return nil, fmt.Errorf("failed to open login page: %w", err)
	}

	if err := driver.WaitReady(ctx, a.config.ReadyTimeout); err != nil {
		logger.Debug("Page readiness wait failed, using grace delay", "error", err)
		if err := sleep(ctx, a.config.GraceDelay); err != nil {
			return nil, err
		}
	}

	cookies, err := driver.GetCookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	found := Filter(cookies, required)
	logger.Info("Got WAF cookies", "count", len(found))

	if missing := found.Missing(required); len(missing) > 0 {
		logger.Warn("Missing WAF cookies", "missing", missing)
		return nil, fmt.Errorf("%w: %s", ErrIncompleteCookies, strings.Join(missing, ", "))
	}

	logger.Info("Successfully got all WAF cookies")
	return found, nil
}

func (a *Acquirer) navigate(ctx context.Context, driver browser.Driver, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, a.config.NavigationTimeout)
	defer cancel()
	return driver.Navigate(navCtx, url)
}

// Filter keeps cookies whose name is in required. The browser reports every
// cookie with a value, so an empty value still counts as present.
func Filter(cookies []browser.Cookie, required []string) account.CookieSet {
	wanted := make(map[string]struct{}, len(required))
	for _, name := range required {
		wanted[name] = struct{}{}
	}

	found := make(account.CookieSet, len(required))
	for _, c := range cookies {
		if _, ok := wanted[c.Name]; !ok {
			continue
		}
		found[c.Name] = c.Value
	}
	return found
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
