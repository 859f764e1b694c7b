// Package config loads run configuration from a .env file, an optional YAML
// file and environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"checkin-go/domain/account"
	"checkin-go/domain/provider"
)

// DefaultEnvFile is loaded when no env file is named. It may be absent.
const DefaultEnvFile = ".env"

// Account sources.
const (
	SourceConfig = "config"
	SourceMongo  = "mongo"
)

// Balance store backends.
const (
	StoreFile   = "file"
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
)

// Config is the complete run configuration.
type Config struct {
	// AccountSource selects where accounts come from.
	AccountSource string                         `yaml:"account_source" validate:"oneof=config mongo"`
	Accounts      []*account.Account             `yaml:"accounts"`
	Providers     map[string]provider.Definition `yaml:"providers"`

	Browser BrowserConfig `yaml:"browser"`
	HTTP    HTTPConfig    `yaml:"http"`
	Store   StoreConfig   `yaml:"store"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Notify  NotifyConfig  `yaml:"notify"`
	Log     LogConfig     `yaml:"log"`
}

// BrowserConfig configures WAF cookie acquisition.
type BrowserConfig struct {
	Engine            string        `yaml:"engine" validate:"oneof=chromedp rod"`
	Headless          bool          `yaml:"headless"`
	ExecPath          string        `yaml:"exec_path"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" validate:"gte=0"`
	ReadyTimeout      time.Duration `yaml:"ready_timeout" validate:"gte=0"`
	GraceDelay        time.Duration `yaml:"grace_delay" validate:"gte=0"`
}

// HTTPConfig configures the provider API client.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// StoreConfig selects and configures the balance hash store.
type StoreConfig struct {
	Backend    string `yaml:"backend" validate:"oneof=file mongo sqlite"`
	HashFile   string `yaml:"hash_file" validate:"required_if=Backend file"`
	SQLitePath string `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`
	Scope      string `yaml:"scope"`
}

// MongoConfig locates the MongoDB database used by the mongo account source
// and balance store.
type MongoConfig struct {
	URI      string `yaml:"uri" validate:"required"`
	Database string `yaml:"database" validate:"required"`
}

// NotifyConfig enables notification channels. A channel is enabled when its
// primary field is set.
type NotifyConfig struct {
	Gotify   GotifyConfig   `yaml:"gotify"`
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Email    EmailConfig    `yaml:"email"`
}

type GotifyConfig struct {
	URL      string `yaml:"url" validate:"omitempty,url"`
	Token    string `yaml:"token" validate:"required_with=URL"`
	Priority int    `yaml:"priority" validate:"gte=0,lte=10"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
}

type WebhookConfig struct {
	URL            string `yaml:"url" validate:"omitempty,url"`
	TitleKey       string `yaml:"title_key"`
	BodyKey        string `yaml:"body_key"`
	ContentTypeKey string `yaml:"content_type_key"`
}

type EmailConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port" validate:"gte=0,lte=65535"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	From        string   `yaml:"from" validate:"omitempty,email"`
	To          []string `yaml:"to" validate:"required_with=Host,dive,email"`
	ImplicitTLS bool     `yaml:"implicit_tls"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		AccountSource: SourceConfig,
		Browser: BrowserConfig{
			Engine:            "chromedp",
			NavigationTimeout: 30 * time.Second,
			ReadyTimeout:      5 * time.Second,
			GraceDelay:        3 * time.Second,
		},
		HTTP: HTTPConfig{Timeout: 30 * time.Second},
		Store: StoreConfig{
			Backend:    StoreFile,
			HashFile:   "balance_hash.txt",
			SQLitePath: "checkin.db",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "checkin",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Options names the files Load reads.
type Options struct {
	// ConfigPath is an optional YAML file. Empty skips it.
	ConfigPath string
	// EnvFile is a dotenv file. Empty tries DefaultEnvFile and ignores its
	// absence; a named file must exist.
	EnvFile string
}

// Loader reads configuration files from a filesystem.
type Loader struct {
	fs       afero.Fs
	validate *validator.Validate
}

// NewLoader creates a loader. A nil fs uses the OS filesystem.
func NewLoader(fs afero.Fs) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Loader{fs: fs, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Load builds the configuration: defaults, then the YAML file, then the
// environment (after the dotenv file has been merged into it).
func Load(opts Options) (*Config, error) {
	return NewLoader(nil).Load(opts)
}

// Load builds the configuration. See the package-level Load.
func (l *Loader) Load(opts Options) (*Config, error) {
	if err := l.loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if opts.ConfigPath != "" {
		if err := l.loadYAML(opts.ConfigPath, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := l.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and provider definitions.
func (l *Loader) Validate(cfg *Config) error {
	if err := l.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := cfg.ProviderRegistry(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (l *Loader) loadEnvFile(path string) error {
	required := path != ""
	if !required {
		path = DefaultEnvFile
	}

	f, err := l.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to open env file %s: %w", path, err)
	}
	defer f.Close()

	values, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse env file %s: %w", path, err)
	}

	// Variables already present in the environment win, as godotenv.Load does.
	for key, value := range values {
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

func (l *Loader) loadYAML(path string, cfg *Config) error {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ProviderRegistry returns the built-in providers overlaid with configured
// definitions of the same key.
func (c *Config) ProviderRegistry() (*provider.Registry, error) {
	r := provider.NewDefaultRegistry()
	if err := r.RegisterDefinitions(c.Providers); err != nil {
		return nil, err
	}
	return r, nil
}
