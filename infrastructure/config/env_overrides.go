package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"checkin-go/domain/account"
	"checkin-go/domain/provider"
)

// Environment variables read by applyEnvOverrides.
const (
	EnvAccounts  = "ANYROUTER_ACCOUNTS"
	EnvProviders = "PROVIDERS"
)

func applyEnvOverrides(cfg *Config) error {
	if err := applyDomainEnvOverrides(cfg); err != nil {
		return err
	}
	applyBrowserEnvOverrides(cfg)
	applyStoreEnvOverrides(cfg)
	applyNotifyEnvOverrides(cfg)
	applyLogEnvOverrides(cfg)
	return nil
}

// applyDomainEnvOverrides reads the JSON account list and provider map.
// Accounts replace the configured list; providers merge over it by key.
func applyDomainEnvOverrides(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvAccounts)); v != "" {
		var accounts []*account.Account
		if err := json.Unmarshal([]byte(v), &accounts); err != nil {
			return fmt.Errorf("%s must be a JSON array: %w", EnvAccounts, err)
		}
		cfg.Accounts = accounts
	}
	if v := strings.TrimSpace(os.Getenv(EnvProviders)); v != "" {
		var defs map[string]provider.Definition
		if err := json.Unmarshal([]byte(v), &defs); err != nil {
			return fmt.Errorf("%s must be a JSON object: %w", EnvProviders, err)
		}
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]provider.Definition, len(defs))
		}
		maps.Copy(cfg.Providers, defs)
	}
	if v := os.Getenv("ACCOUNT_SOURCE"); v != "" {
		cfg.AccountSource = v
	}
	return nil
}

func applyBrowserEnvOverrides(cfg *Config) {
	if v := os.Getenv("BROWSER_ENGINE"); v != "" {
		cfg.Browser.Engine = v
	}
	if v := os.Getenv("BROWSER_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Browser.Headless = b
		}
	}
	if v := os.Getenv("BROWSER_EXEC_PATH"); v != "" {
		cfg.Browser.ExecPath = v
	}
	if v := os.Getenv("BROWSER_NAVIGATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Browser.NavigationTimeout = d
		}
	}
}

func applyStoreEnvOverrides(cfg *Config) {
	if v := os.Getenv("BALANCE_STORE"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("BALANCE_HASH_FILE"); v != "" {
		cfg.Store.HashFile = v
	}
	if v := os.Getenv("BALANCE_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("MONGODB_DATABASE"); v != "" {
		cfg.Mongo.Database = v
	}
}

func applyNotifyEnvOverrides(cfg *Config) {
	n := &cfg.Notify
	if v := os.Getenv("GOTIFY_URL"); v != "" {
		n.Gotify.URL = v
	}
	if v := os.Getenv("GOTIFY_TOKEN"); v != "" {
		n.Gotify.Token = v
	}
	if v := os.Getenv("GOTIFY_PRIORITY"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			n.Gotify.Priority = p
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		n.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		n.Telegram.ChatID = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		n.Webhook.URL = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		n.Email.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			n.Email.Port = p
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		n.Email.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		n.Email.Password = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		n.Email.From = v
	}
	if v := os.Getenv("SMTP_TO"); v != "" {
		n.Email.To = splitList(v)
	}
}

func applyLogEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		cfg.Log.Dir = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
