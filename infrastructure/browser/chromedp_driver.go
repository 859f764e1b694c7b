package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// ChromeDPDriver implements Driver using chromedp.
type ChromeDPDriver struct {
	config      *DriverConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.Mutex
	running     bool
}

// NewChromeDPDriver creates a new ChromeDP-based browser driver.
func NewChromeDPDriver(config *DriverConfig) *ChromeDPDriver {
	if config == nil {
		config = DefaultDriverConfig()
	}
	return &ChromeDPDriver{
		config: config,
	}
}

// buildExecAllocatorOptions builds chromedp options from config.
func (d *ChromeDPDriver) buildExecAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.config.Headless),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(d.config.WindowWidth, d.config.WindowHeight),
	)

	for _, f := range d.config.StealthFlags() {
		if f.Value == "" {
			opts = append(opts, chromedp.Flag(f.Name, true))
		} else {
			opts = append(opts, chromedp.Flag(f.Name, f.Value))
		}
	}

	if d.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(d.config.UserAgent))
	}
	if d.config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(d.config.UserDataDir))
	}
	if d.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.config.ExecPath))
	}

	return opts
}

// Start initializes the browser instance.
func (d *ChromeDPDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("browser already running")
	}

	// Create allocator context from context.Background() to ensure browser lifecycle
	// is independent of the caller's context
	d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(
		context.Background(),
		d.buildExecAllocatorOptions()...,
	)

	d.ctx, d.cancel = chromedp.NewContext(d.allocCtx)

	// The first Run launches the browser process.
	if err := chromedp.Run(d.ctx, emulation.SetDeviceMetricsOverride(
		int64(d.config.WindowWidth), int64(d.config.WindowHeight), 1, false,
	)); err != nil {
		d.cleanup()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	d.running = true
	return nil
}

// Stop closes the browser and releases resources.
func (d *ChromeDPDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.cleanup()
	return nil
}

func (d *ChromeDPDriver) cleanup() {
	d.running = false
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.allocCancel != nil {
		d.allocCancel()
		d.allocCancel = nil
	}
	d.ctx = nil
	d.allocCtx = nil
}

// IsRunning returns true if the browser is active.
func (d *ChromeDPDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// execContext returns the browser context bounded by ctx's deadline and
// cancellation.
func (d *ChromeDPDriver) execContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	d.mu.Lock()
	browserCtx := d.ctx
	running := d.running
	d.mu.Unlock()

	if !running || browserCtx == nil {
		return nil, nil, ErrNotRunning
	}

	execCtx, cancel := context.WithCancel(browserCtx)
	if deadline, ok := ctx.Deadline(); ok {
		cancel()
		execCtx, cancel = context.WithDeadline(browserCtx, deadline)
	}
	stop := context.AfterFunc(ctx, cancel)
	return execCtx, func() {
		stop()
		cancel()
	}, nil
}

// Navigate loads the URL and blocks until the main frame's current document
// reaches network idle. Bound it with a ctx deadline.
func (d *ChromeDPDriver) Navigate(ctx context.Context, url string) error {
	execCtx, cancel, err := d.execContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	idle := make(chan struct{})
	var (
		once    sync.Once
		mu      sync.Mutex
		tracker idleTracker
	)
	chromedp.ListenTarget(execCtx, func(ev interface{}) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok {
			return
		}
		mu.Lock()
		done := tracker.observe(e)
		mu.Unlock()
		if done {
			once.Do(func() { close(idle) })
		}
	})

	if err := chromedp.Run(execCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			mu.Lock()
			tracker.frame = tree.Frame.ID
			mu.Unlock()
			return nil
		}),
		page.SetLifecycleEventsEnabled(true),
		chromedp.Navigate(url),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	select {
	case <-idle:
		return nil
	case <-execCtx.Done():
		return fmt.Errorf("waiting for network idle: %w", execCtx.Err())
	}
}

// WaitReady polls document.readyState until it reports "complete".
func (d *ChromeDPDriver) WaitReady(ctx context.Context, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCtx, release, err := d.execContext(timeoutCtx)
	if err != nil {
		return err
	}
	defer release()

	var ready bool
	return chromedp.Run(execCtx, chromedp.Poll(
		`document.readyState === "complete"`,
		&ready,
		chromedp.WithPollingInterval(100*time.Millisecond),
		chromedp.WithPollingTimeout(timeout),
	))
}

// GetCookies retrieves all browser cookies.
func (d *ChromeDPDriver) GetCookies(ctx context.Context) ([]Cookie, error) {
	execCtx, cancel, err := d.execContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var networkCookies []*network.Cookie
	if err := chromedp.Run(execCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			networkCookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	); err != nil {
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

// idleTracker follows the lifecycle events of one frame. Each "init" starts
// a new document, so a script-driven reload moves the wait to the new loader.
type idleTracker struct {
	frame  cdp.FrameID
	loader cdp.LoaderID
}

// observe reports whether e is networkIdle for the frame's current document.
// An empty frame matches every frame.
func (t *idleTracker) observe(e *page.EventLifecycleEvent) bool {
	if t.frame != "" && e.FrameID != t.frame {
		return false
	}
	switch e.Name {
	case "init":
		t.loader = e.LoaderID
	case "networkIdle":
		return t.loader != "" && e.LoaderID == t.loader
	}
	return false
}

// Ensure ChromeDPDriver implements Driver
var _ Driver = (*ChromeDPDriver)(nil)
