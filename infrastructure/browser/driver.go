// Package browser provides browser automation infrastructure.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Driver defines the interface for browser automation.
// This abstraction allows for different browser implementations (ChromeDP, Rod).
type Driver interface {
	// Start launches the browser instance.
	Start(ctx context.Context) error

	// Stop closes the browser and releases resources.
	Stop() error

	// IsRunning returns true if the browser is active.
	IsRunning() bool

	// Navigate loads the URL and waits until the network is idle.
	Navigate(ctx context.Context, url string) error

	// WaitReady waits until document.readyState is "complete" or the
	// timeout elapses.
	WaitReady(ctx context.Context, timeout time.Duration) error

	// GetCookies retrieves all cookies visible to the browser.
	GetCookies(ctx context.Context) ([]Cookie, error)
}

// Cookie represents a browser cookie.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	HTTPOnly bool
	Secure   bool
}

// Engine names a Driver implementation.
type Engine string

const (
	EngineChromeDP Engine = "chromedp"
	EngineRod      Engine = "rod"
)

// DefaultUserAgent is a current desktop Chrome user agent. It is shared with
// the HTTP client so API calls present the same fingerprint as the browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"

// DriverConfig holds configuration for browser drivers.
type DriverConfig struct {
	// Headless runs the browser without a visible window.
	Headless bool

	// WindowWidth is the browser window and viewport width.
	WindowWidth int

	// WindowHeight is the browser window and viewport height.
	WindowHeight int

	// UserAgent overrides the browser user agent.
	UserAgent string

	// DisableWebSecurity disables web security (allows cross-origin).
	DisableWebSecurity bool

	// NoSandbox disables the Chrome sandbox, needed in most containers.
	NoSandbox bool

	// DisableFeatures lists Chrome features to turn off.
	DisableFeatures []string

	// UserDataDir specifies the browser profile directory.
	UserDataDir string

	// ExecPath points at a specific Chrome binary. Empty uses auto-detection.
	ExecPath string
}

// DefaultDriverConfig returns configuration tuned to look like a regular
// desktop browser to bot-mitigation layers.
func DefaultDriverConfig() *DriverConfig {
	return &DriverConfig{
		Headless:           false,
		WindowWidth:        1920,
		WindowHeight:       1080,
		UserAgent:          DefaultUserAgent,
		DisableWebSecurity: true,
		NoSandbox:          true,
		DisableFeatures:    []string{"VizDisplayCompositor"},
	}
}

// Clone returns a copy of the config that can be modified independently.
func (c *DriverConfig) Clone() *DriverConfig {
	clone := *c
	clone.DisableFeatures = append([]string(nil), c.DisableFeatures...)
	return &clone
}

// Flag is a single Chrome command line switch.
type Flag struct {
	Name  string
	Value string
}

// StealthFlags returns the switches that suppress automation signals.
// An empty Value means a bare switch.
func (c *DriverConfig) StealthFlags() []Flag {
	flags := []Flag{
		{Name: "disable-blink-features", Value: "AutomationControlled"},
		{Name: "disable-dev-shm-usage"},
		{Name: "disable-infobars"},
	}
	if c.DisableWebSecurity {
		flags = append(flags, Flag{Name: "disable-web-security"})
	}
	if len(c.DisableFeatures) > 0 {
		flags = append(flags, Flag{Name: "disable-features", Value: strings.Join(c.DisableFeatures, ",")})
	}
	if c.NoSandbox {
		flags = append(flags, Flag{Name: "no-sandbox"})
	}
	return flags
}

// Factory creates a driver for the given configuration.
type Factory func(cfg *DriverConfig) Driver

// NewFactory returns the factory for the named engine.
func NewFactory(engine Engine) (Factory, error) {
	switch engine {
	case "", EngineChromeDP:
		return func(cfg *DriverConfig) Driver { return NewChromeDPDriver(cfg) }, nil
	case EngineRod:
		return func(cfg *DriverConfig) Driver { return NewRodDriver(cfg) }, nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", engine)
	}
}

// ErrNotRunning is returned by driver operations before Start.
var ErrNotRunning = errors.New("browser not running")
