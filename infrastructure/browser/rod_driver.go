package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// RodDriver implements Driver using go-rod with stealth page patches.
type RodDriver struct {
	config   *DriverConfig
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	mu       sync.Mutex
	running  bool
}

// NewRodDriver creates a new rod-based browser driver.
func NewRodDriver(config *DriverConfig) *RodDriver {
	if config == nil {
		config = DefaultDriverConfig()
	}
	return &RodDriver{config: config}
}

func (d *RodDriver) buildLauncher() *launcher.Launcher {
	l := launcher.New().
		Headless(d.config.Headless).
		Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", d.config.WindowWidth, d.config.WindowHeight)).
		Delete(flags.Flag("enable-automation"))

	for _, f := range d.config.StealthFlags() {
		if f.Value == "" {
			l = l.Set(flags.Flag(f.Name))
		} else {
			l = l.Set(flags.Flag(f.Name), f.Value)
		}
	}

	if d.config.UserDataDir != "" {
		l = l.UserDataDir(d.config.UserDataDir)
	}
	if d.config.ExecPath != "" {
		l = l.Bin(d.config.ExecPath)
	}
	return l
}

// Start launches the browser and opens a stealth page.
func (d *RodDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("browser already running")
	}

	l := d.buildLauncher().Context(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	d.launcher = l

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		d.cleanup()
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	d.browser = b

	p, err := stealth.Page(b)
	if err != nil {
		d.cleanup()
		return fmt.Errorf("failed to open page: %w", err)
	}
	d.page = p

	if d.config.UserAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: d.config.UserAgent}); err != nil {
			d.cleanup()
			return fmt.Errorf("failed to set user agent: %w", err)
		}
	}
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             d.config.WindowWidth,
		Height:            d.config.WindowHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		d.cleanup()
		return fmt.Errorf("failed to set viewport: %w", err)
	}

	d.running = true
	return nil
}

// Stop closes the browser and releases resources.
func (d *RodDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.cleanup()
	return nil
}

func (d *RodDriver) cleanup() {
	d.running = false
	if d.browser != nil {
		_ = d.browser.Close()
		d.browser = nil
	}
	if d.launcher != nil {
		d.launcher.Kill()
		d.launcher = nil
	}
	d.page = nil
}

// IsRunning returns true if the browser is active.
func (d *RodDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *RodDriver) currentPage() (*rod.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running || d.page == nil {
		return nil, ErrNotRunning
	}
	return d.page, nil
}

// Navigate loads the URL and blocks until the network is idle.
func (d *RodDriver) Navigate(ctx context.Context, url string) error {
	p, err := d.currentPage()
	if err != nil {
		return err
	}
	p = p.Context(ctx)

	wait := p.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	wait()
	return ctx.Err()
}

// WaitReady waits for document.readyState to report "complete".
func (d *RodDriver) WaitReady(ctx context.Context, timeout time.Duration) error {
	p, err := d.currentPage()
	if err != nil {
		return err
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return p.Context(timeoutCtx).Wait(rod.Eval(`() => document.readyState === "complete"`))
}

// GetCookies retrieves all cookies of the browser context.
func (d *RodDriver) GetCookies(ctx context.Context) ([]Cookie, error) {
	d.mu.Lock()
	b := d.browser
	running := d.running
	d.mu.Unlock()

	if !running || b == nil {
		return nil, ErrNotRunning
	}

	networkCookies, err := b.Context(ctx).GetCookies()
	if err != nil {
		return nil, fmt.Errorf("failed to get cookies: %w", err)
	}

	cookies := make([]Cookie, len(networkCookies))
	for i, nc := range networkCookies {
		cookies[i] = Cookie{
			Name:     nc.Name,
			Value:    nc.Value,
			Domain:   nc.Domain,
			Path:     nc.Path,
			HTTPOnly: nc.HTTPOnly,
			Secure:   nc.Secure,
		}
	}
	return cookies, nil
}

var _ Driver = (*RodDriver)(nil)
