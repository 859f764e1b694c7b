package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"checkin-go/domain/account"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvAccounts, EnvProviders, "ACCOUNT_SOURCE",
		"BROWSER_ENGINE", "BROWSER_HEADLESS", "BROWSER_EXEC_PATH", "BROWSER_NAVIGATION_TIMEOUT",
		"BALANCE_STORE", "BALANCE_HASH_FILE", "BALANCE_SQLITE_PATH",
		"MONGODB_URI", "MONGODB_DATABASE",
		"GOTIFY_URL", "GOTIFY_TOKEN", "GOTIFY_PRIORITY",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "WEBHOOK_URL",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM", "SMTP_TO",
		"LOG_LEVEL", "LOG_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.AccountSource != SourceConfig {
		t.Errorf("AccountSource = %q, want config", cfg.AccountSource)
	}
	if cfg.Browser.Engine != "chromedp" {
		t.Errorf("Browser.Engine = %q, want chromedp", cfg.Browser.Engine)
	}
	if cfg.Browser.ReadyTimeout != 5*time.Second || cfg.Browser.GraceDelay != 3*time.Second {
		t.Errorf("Browser waits = %v / %v", cfg.Browser.ReadyTimeout, cfg.Browser.GraceDelay)
	}
	if cfg.Browser.NavigationTimeout != 30*time.Second {
		t.Errorf("Browser.NavigationTimeout = %v, want 30s", cfg.Browser.NavigationTimeout)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("HTTP.Timeout = %v, want 30s", cfg.HTTP.Timeout)
	}
	if cfg.Store.Backend != StoreFile || cfg.Store.HashFile != "balance_hash.txt" {
		t.Errorf("Store = %+v", cfg.Store)
	}
}

func TestLoader_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := NewLoader(afero.NewMemMapFs()).Load(Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Accounts) != 0 {
		t.Errorf("Accounts = %v, want none", cfg.Accounts)
	}
	registry, err := cfg.ProviderRegistry()
	if err != nil {
		t.Fatalf("ProviderRegistry() error = %v", err)
	}
	if registry.Get("anyrouter") == nil || registry.Get("agentrouter") == nil {
		t.Errorf("built-in providers missing: %v", registry.List())
	}
}

const sampleYAML = `
accounts:
  - name: Main
    cookies:
      session: abc
    api_user: "1"
  - cookies: "session=def; theme=dark"
    api_user: "2"
    provider: custom
providers:
  custom:
    domain: https://custom.example
    sign_in_path: ""
browser:
  engine: rod
  headless: true
  ready_timeout: 2s
store:
  backend: sqlite
  sqlite_path: /tmp/state.db
notify:
  gotify:
    url: https://push.example
    token: tok
`

func TestLoader_YAML(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "checkin.yaml", []byte(sampleYAML), 0o644)

	cfg, err := NewLoader(fs).Load(Options{ConfigPath: "checkin.yaml"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Accounts) != 2 {
		t.Fatalf("Accounts = %d, want 2", len(cfg.Accounts))
	}
	if got := cfg.Accounts[0].Credentials.Form(); got != account.FormMapping {
		t.Errorf("first account form = %v, want mapping", got)
	}
	if got := cfg.Accounts[1].Credentials.Form(); got != account.FormDelimited {
		t.Errorf("second account form = %v, want delimited", got)
	}

	if cfg.Browser.Engine != "rod" || !cfg.Browser.Headless || cfg.Browser.ReadyTimeout != 2*time.Second {
		t.Errorf("Browser = %+v", cfg.Browser)
	}
	if cfg.Browser.GraceDelay != 3*time.Second {
		t.Errorf("GraceDelay = %v, want default 3s kept", cfg.Browser.GraceDelay)
	}
	if cfg.Store.Backend != StoreSQLite || cfg.Store.SQLitePath != "/tmp/state.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}

	registry, err := cfg.ProviderRegistry()
	if err != nil {
		t.Fatalf("ProviderRegistry() error = %v", err)
	}
	custom := registry.Get("custom")
	if custom == nil {
		t.Fatal("custom provider not registered")
	}
	if custom.NeedsManualCheckIn {
		t.Error("custom provider with empty sign_in_path should check in on user info")
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAccounts, `[{"cookies":"session=x","api_user":"9","provider":"agentrouter"}]`)
	t.Setenv(EnvProviders, `{"anyrouter":{"domain":"https://mirror.example","bypass_method":"waf_cookies","waf_cookie_names":["acw_tc"]}}`)
	t.Setenv("BALANCE_HASH_FILE", "state/hash.txt")
	t.Setenv("BROWSER_HEADLESS", "true")
	t.Setenv("BROWSER_NAVIGATION_TIMEOUT", "45s")
	t.Setenv("GOTIFY_PRIORITY", "7")
	t.Setenv("SMTP_TO", "a@example.com, b@example.com")
	t.Setenv("LOG_LEVEL", "DEBUG")

	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "checkin.yaml", []byte(sampleYAML), 0o644)

	cfg, err := NewLoader(fs).Load(Options{ConfigPath: "checkin.yaml"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Accounts) != 1 || cfg.Accounts[0].APIUser != "9" {
		t.Errorf("Accounts not replaced by env: %+v", cfg.Accounts)
	}
	if cfg.Store.HashFile != "state/hash.txt" {
		t.Errorf("HashFile = %q", cfg.Store.HashFile)
	}
	if !cfg.Browser.Headless {
		t.Error("Headless should be true")
	}
	if cfg.Browser.NavigationTimeout != 45*time.Second {
		t.Errorf("NavigationTimeout = %v, want 45s", cfg.Browser.NavigationTimeout)
	}
	if cfg.Notify.Gotify.Priority != 7 {
		t.Errorf("Gotify.Priority = %d, want 7", cfg.Notify.Gotify.Priority)
	}
	if strings.Join(cfg.Notify.Email.To, ",") != "a@example.com,b@example.com" {
		t.Errorf("Email.To = %v", cfg.Notify.Email.To)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}

	registry, err := cfg.ProviderRegistry()
	if err != nil {
		t.Fatalf("ProviderRegistry() error = %v", err)
	}
	if got := registry.Get("anyrouter").Domain; got != "https://mirror.example" {
		t.Errorf("anyrouter domain = %q, want env override", got)
	}
	if registry.Get("custom") == nil {
		t.Error("YAML provider should survive env provider merge")
	}
}

func TestLoader_EnvFile(t *testing.T) {
	clearEnv(t)
	const key = "CHECKIN_TEST_FROM_DOTENV"
	t.Cleanup(func() { os.Unsetenv(key) })

	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "custom.env", []byte(key+"=loaded\nBALANCE_STORE=mongo\n"), 0o644)

	cfg, err := NewLoader(fs).Load(Options{EnvFile: "custom.env"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if os.Getenv(key) != "loaded" {
		t.Errorf("%s = %q, want loaded", key, os.Getenv(key))
	}
	// BALANCE_STORE was already set (blank) by clearEnv, so the file must not win.
	if cfg.Store.Backend != StoreFile {
		t.Errorf("Store.Backend = %q, existing environment should take precedence", cfg.Store.Backend)
	}
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
		opts Options
	}{
		{name: "missing named env file", opts: Options{EnvFile: "nope.env"}},
		{name: "missing config file", opts: Options{ConfigPath: "nope.yaml"}},
		{name: "bad yaml", yaml: "accounts: [", opts: Options{ConfigPath: "c.yaml"}},
		{name: "bad accounts json", env: map[string]string{EnvAccounts: "{"}},
		{name: "bad providers json", env: map[string]string{EnvProviders: "[]"}},
		{name: "unknown engine", env: map[string]string{"BROWSER_ENGINE": "webkit"}},
		{name: "unknown store", env: map[string]string{"BALANCE_STORE": "redis"}},
		{name: "gotify without token", env: map[string]string{"GOTIFY_URL": "https://push.example"}},
		{name: "telegram without chat", env: map[string]string{"TELEGRAM_BOT_TOKEN": "123:abc"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "provider without domain", env: map[string]string{EnvProviders: `{"x":{}}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			fs := afero.NewMemMapFs()
			if tt.yaml != "" {
				afero.WriteFile(fs, "c.yaml", []byte(tt.yaml), 0o644)
			}

			if _, err := NewLoader(fs).Load(tt.opts); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a ,, b,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("splitList() = %v", got)
	}
}
