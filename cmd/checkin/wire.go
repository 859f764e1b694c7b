package main

import (
	"context"
	"errors"
	"log/slog"

	"checkin-go/application"
	"checkin-go/application/checkin"
	"checkin-go/application/waf"
	"checkin-go/domain/account"
	"checkin-go/domain/balance"
	"checkin-go/infrastructure/browser"
	"checkin-go/infrastructure/config"
	"checkin-go/infrastructure/httpclient"
	"checkin-go/infrastructure/notify"
	"checkin-go/infrastructure/repository"
)

// app holds everything built from the configuration for one run.
type app struct {
	runner  *application.Runner
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// runOptions are the command line switches that adjust the loaded config.
type runOptions struct {
	DryRun   bool
	Headless bool
}

func buildApp(ctx context.Context, cfg *config.Config, opts runOptions, logger *slog.Logger) (*app, error) {
	a := &app{}

	var mongoDB *repository.MongoDB
	if usesMongo(cfg) {
		mongoCfg := repository.DefaultMongoDBConfig()
		mongoCfg.URI = cfg.Mongo.URI
		mongoCfg.Database = cfg.Mongo.Database

		db, err := repository.NewMongoDB(ctx, mongoCfg, logger)
		if err != nil {
			return nil, err
		}
		mongoDB = db
		a.closers = append(a.closers, func() error { return db.Close(context.Background()) })
	}

	providers, err := cfg.ProviderRegistry()
	if err != nil {
		a.Close()
		return nil, err
	}

	store, closeStore, err := buildStore(ctx, cfg, mongoDB, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}
	if opts.DryRun {
		store = balance.ReadOnly(store)
	}

	acquirer, err := buildAcquirer(cfg, opts, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.HTTP.Timeout

	var notifier notify.Notifier = buildNotifier(cfg, logger)
	if opts.DryRun {
		notifier = notify.NoOp{}
	}

	a.runner = application.NewRunner(&application.RunnerConfig{
		Accounts:  account.NewService(buildAccountRepository(cfg, mongoDB, logger)),
		Providers: providers,
		Executor: checkin.NewExecutor(&checkin.Config{
			Acquirer: acquirer,
			HTTP:     httpCfg,
			Logger:   logger,
		}),
		Store:    store,
		Notifier: notifier,
		Output:   stdout,
		Logger:   logger,
	})
	return a, nil
}

func usesMongo(cfg *config.Config) bool {
	return cfg.AccountSource == config.SourceMongo || cfg.Store.Backend == config.StoreMongo
}

func buildAccountRepository(cfg *config.Config, db *repository.MongoDB, logger *slog.Logger) account.Repository {
	if cfg.AccountSource == config.SourceMongo && db != nil {
		return repository.NewMongoAccountRepository(db, logger)
	}
	return account.NewStaticRepository(cfg.Accounts)
}

// buildStore returns the configured balance store and, when it holds a
// resource, a function releasing it.
func buildStore(ctx context.Context, cfg *config.Config, db *repository.MongoDB, logger *slog.Logger) (balance.Store, func() error, error) {
	switch cfg.Store.Backend {
	case config.StoreMongo:
		if db == nil {
			return nil, nil, errors.New("mongo balance store requires a MongoDB connection")
		}
		return repository.NewMongoHashStore(db, cfg.Store.Scope, logger), nil, nil
	case config.StoreSQLite:
		s, err := repository.OpenSQLiteHashStore(ctx, cfg.Store.SQLitePath, cfg.Store.Scope)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return repository.NewFileHashStore(nil, cfg.Store.HashFile), nil, nil
	}
}

func buildAcquirer(cfg *config.Config, opts runOptions, logger *slog.Logger) (*waf.Acquirer, error) {
	factory, err := browser.NewFactory(browser.Engine(cfg.Browser.Engine))
	if err != nil {
		return nil, err
	}

	driverCfg := browser.DefaultDriverConfig()
	driverCfg.Headless = cfg.Browser.Headless || opts.Headless
	driverCfg.ExecPath = cfg.Browser.ExecPath

	return waf.NewAcquirer(&waf.Config{
		DriverFactory:     factory,
		Browser:           driverCfg,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		ReadyTimeout:      cfg.Browser.ReadyTimeout,
		GraceDelay:        cfg.Browser.GraceDelay,
		Logger:            logger,
	}), nil
}

// buildNotifier fans out to every configured channel. With none configured
// the report is only printed.
func buildNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	n := cfg.Notify
	var channels []notify.Notifier

	if n.Gotify.URL != "" {
		channels = append(channels, notify.NewGotify(&notify.GotifyConfig{
			URL:      n.Gotify.URL,
			Token:    n.Gotify.Token,
			Priority: n.Gotify.Priority,
		}))
	}
	if n.Telegram.BotToken != "" {
		channels = append(channels, notify.NewTelegram(&notify.TelegramConfig{
			BotToken: n.Telegram.BotToken,
			ChatID:   n.Telegram.ChatID,
		}))
	}
	if n.Webhook.URL != "" {
		wh := notify.DefaultWebhookConfig(n.Webhook.URL)
		if n.Webhook.TitleKey != "" {
			wh.TitleKey = n.Webhook.TitleKey
		}
		if n.Webhook.BodyKey != "" {
			wh.BodyKey = n.Webhook.BodyKey
		}
		if n.Webhook.ContentTypeKey != "" {
			wh.ContentTypeKey = n.Webhook.ContentTypeKey
		}
		channels = append(channels, notify.NewWebhook(wh))
	}
	if n.Email.Host != "" {
		channels = append(channels, notify.NewEmail(&notify.EmailConfig{
			Host:        n.Email.Host,
			Port:        n.Email.Port,
			Username:    n.Email.Username,
			Password:    n.Email.Password,
			From:        n.Email.From,
			To:          n.Email.To,
			ImplicitTLS: n.Email.ImplicitTLS,
		}))
	}

	if len(channels) == 0 {
		logger.Info("No notification channel configured, report will only be printed")
		return notify.NoOp{}
	}
	return notify.NewMulti(logger, channels...)
}
