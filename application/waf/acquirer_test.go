package waf

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"checkin-go/infrastructure/browser"
)

// mockDriver is a mock implementation of browser.Driver for testing.
type mockDriver struct {
	config      *browser.DriverConfig
	running     bool
	startErr    error
	navigateErr error
	// hangNavigate blocks Navigate until its context ends.
	hangNavigate bool
	readyErr    error
	cookies     []browser.Cookie
	cookiesErr  error

	startCalled bool
	stopCalled  bool
	lastURL     string
	profileSeen bool
}

func (m *mockDriver) Start(ctx context.Context) error {
	m.startCalled = true
	if m.startErr != nil {
		return m.startErr
	}
	if _, err := os.Stat(m.config.UserDataDir); err == nil {
		m.profileSeen = true
	}
	m.running = true
	return nil
}
func (m *mockDriver) Stop() error     { m.stopCalled = true; m.running = false; return nil }
func (m *mockDriver) IsRunning() bool { return m.running }
func (m *mockDriver) Navigate(ctx context.Context, url string) error {
	m.lastURL = url
	if m.hangNavigate {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.navigateErr
}
func (m *mockDriver) WaitReady(ctx context.Context, timeout time.Duration) error {
	return m.readyErr
}
func (m *mockDriver) GetCookies(ctx context.Context) ([]browser.Cookie, error) {
	return m.cookies, m.cookiesErr
}

func newTestAcquirer(t *testing.T, driver *mockDriver) *Acquirer {
	t.Helper()
	return NewAcquirer(&Config{
		DriverFactory: func(cfg *browser.DriverConfig) browser.Driver {
			driver.config = cfg
			return driver
		},
		ReadyTimeout: time.Second,
		GraceDelay:   time.Millisecond,
		TempDir:      t.TempDir(),
	})
}

var required = []string{"acw_tc", "cdn_sec_tc", "acw_sc__v2"}

func TestAcquire_AllCookies(t *testing.T) {
	driver := &mockDriver{
		cookies: []browser.Cookie{
			{Name: "acw_tc", Value: "1"},
			{Name: "cdn_sec_tc", Value: "2"},
			{Name: "acw_sc__v2", Value: "3"},
			{Name: "unrelated", Value: "x"},
		},
	}
	a := newTestAcquirer(t, driver)

	got, err := a.Acquire(context.Background(), "Account 1", "https://example.com/login", required)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	want := map[string]string{"acw_tc": "1", "cdn_sec_tc": "2", "acw_sc__v2": "3"}
	if !reflect.DeepEqual(map[string]string(got), want) {
		t.Errorf("Acquire() = %v, want %v", got, want)
	}
	if driver.lastURL != "https://example.com/login" {
		t.Errorf("navigated to %q", driver.lastURL)
	}
	if !driver.profileSeen {
		t.Error("profile directory did not exist while the browser was running")
	}
	if !driver.stopCalled {
		t.Error("Stop was not called")
	}
	if _, err := os.Stat(driver.config.UserDataDir); !os.IsNotExist(err) {
		t.Errorf("profile directory %q was not removed", driver.config.UserDataDir)
	}
}

func TestAcquire_PartialCookies(t *testing.T) {
	driver := &mockDriver{
		cookies: []browser.Cookie{
			{Name: "acw_tc", Value: "1"},
			{Name: "cdn_sec_tc", Value: "2"},
		},
	}
	a := newTestAcquirer(t, driver)

	got, err := a.Acquire(context.Background(), "Account 1", "https://example.com/login", required)
	if !errors.Is(err, ErrIncompleteCookies) {
		t.Fatalf("Acquire() error = %v, want ErrIncompleteCookies", err)
	}
	if got != nil {
		t.Errorf("Acquire() returned partial set %v", got)
	}
	if !driver.stopCalled {
		t.Error("Stop was not called on failure")
	}
	if _, err := os.Stat(driver.config.UserDataDir); !os.IsNotExist(err) {
		t.Error("profile directory was not removed on failure")
	}
}

func TestAcquire_ReadyFailureUsesGraceDelay(t *testing.T) {
	driver := &mockDriver{
		readyErr: errors.New("timeout"),
		cookies:  []browser.Cookie{{Name: "acw_tc", Value: "1"}},
	}
	a := newTestAcquirer(t, driver)

	got, err := a.Acquire(context.Background(), "Account 1", "https://example.com/login", []string{"acw_tc"})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if got["acw_tc"] != "1" {
		t.Errorf("Acquire() = %v", got)
	}
}

func TestAcquire_BrowserErrors(t *testing.T) {
	tests := []struct {
		name     string
		driver   *mockDriver
		wantStop bool
	}{
		{
			name:   "start fails",
			driver: &mockDriver{startErr: errors.New("no chrome")},
		},
		{
			name:     "navigate fails",
			driver:   &mockDriver{navigateErr: errors.New("net::ERR")},
			wantStop: true,
		},
		{
			name:     "cookie read fails",
			driver:   &mockDriver{cookiesErr: errors.New("closed")},
			wantStop: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAcquirer(t, tt.driver)

			got, err := a.Acquire(context.Background(), "Account 1", "https://example.com/login", required)
			if err == nil {
				t.Fatal("Acquire() should fail")
			}
			if got != nil {
				t.Errorf("Acquire() = %v, want nil", got)
			}
			if tt.driver.stopCalled != tt.wantStop {
				t.Errorf("stopCalled = %v, want %v", tt.driver.stopCalled, tt.wantStop)
			}
			if _, err := os.Stat(tt.driver.config.UserDataDir); !os.IsNotExist(err) {
				t.Error("profile directory was not removed")
			}
		})
	}
}

func TestAcquire_NavigationTimeout(t *testing.T) {
	driver := &mockDriver{hangNavigate: true}
	a := NewAcquirer(&Config{
		DriverFactory: func(cfg *browser.DriverConfig) browser.Driver {
			driver.config = cfg
			return driver
		},
		NavigationTimeout: 50 * time.Millisecond,
		TempDir:           t.TempDir(),
	})

	done := make(chan error, 1)
	go func() {
		_, err := a.Acquire(context.Background(), "Account 1", "https://example.com/login", required)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Acquire() error = %v, want context.DeadlineExceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Acquire() did not return after the navigation timeout")
	}
	if !driver.stopCalled {
		t.Error("Stop was not called after the navigation timeout")
	}
}

func TestNewAcquirer_Defaults(t *testing.T) {
	a := NewAcquirer(&Config{})
	if a.config.NavigationTimeout != 30*time.Second {
		t.Errorf("NavigationTimeout = %v, want 30s", a.config.NavigationTimeout)
	}
	if a.config.ReadyTimeout != 5*time.Second {
		t.Errorf("ReadyTimeout = %v, want 5s", a.config.ReadyTimeout)
	}
}

func TestAcquire_CancelledDuringGraceDelay(t *testing.T) {
	driver := &mockDriver{readyErr: errors.New("timeout")}
	a := NewAcquirer(&Config{
		DriverFactory: func(cfg *browser.DriverConfig) browser.Driver {
			driver.config = cfg
			return driver
		},
		GraceDelay: time.Hour,
		TempDir:    t.TempDir(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.Acquire(ctx, "Account 1", "https://example.com/login", required); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestFilter(t *testing.T) {
	cookies := []browser.Cookie{
		{Name: "a", Value: "1"},
		{Name: "b", Value: ""},
		{Name: "c", Value: "3"},
	}

	got := Filter(cookies, []string{"a", "b", "d"})
	want := map[string]string{"a": "1", "b": ""}
	if !reflect.DeepEqual(map[string]string(got), want) {
		t.Errorf("Filter() = %v, want %v", got, want)
	}
}
