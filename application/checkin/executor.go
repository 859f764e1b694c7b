package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"checkin-go/domain/account"
	"checkin-go/domain/provider"
	"checkin-go/infrastructure/httpclient"
)

// CookieAcquirer obtains WAF cookies for a provider login page.
type CookieAcquirer interface {
	Acquire(ctx context.Context, label, loginURL string, required []string) (account.CookieSet, error)
}

// Config holds configuration for the Executor.
type Config struct {
	Acquirer CookieAcquirer
	HTTP     *httpclient.Config
	Logger   *slog.Logger
}

// Executor runs the check-in pipeline for a single account.
type Executor struct {
	acquirer CookieAcquirer
	http     *httpclient.Config
	logger   *slog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(cfg *Config) *Executor {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpCfg := cfg.HTTP
	if httpCfg == nil {
		httpCfg = httpclient.DefaultConfig()
	}
	return &Executor{
		acquirer: cfg.Acquirer,
		http:     httpCfg,
		logger:   logger,
	}
}

// Run checks in one account. Failures are returned inside the Outcome; Run
// never panics.
func (e *Executor) Run(ctx context.Context, acc *account.Account, prov *provider.Provider) (out Outcome) {
	logger := e.logger.With("account", acc.DisplayName())

	defer func() {
		if r := recover(); r != nil {
			msg := Truncate(fmt.Sprint(r), errorExcerpt)
			logger.Error("Error occurred during check-in process", "error", msg)
			out = Failed(newError(KindTransport, "%s...", msg))
		}
	}()

	logger.Info("Using provider", "provider", prov.Name, "domain", prov.Domain)

	userCookies := account.Normalize(acc.Credentials)
	if len(userCookies) == 0 {
		logger.Error("Invalid configuration format")
		return Failed(newError(KindConfiguration, "Invalid configuration format"))
	}

	wafCookies := account.CookieSet{}
	if prov.NeedsWAFCookies {
		acquired, err := e.acquireWAF(ctx, acc, prov)
		if err != nil {
			logger.Error("Unable to get WAF cookies", "error", err)
			return Failed(newError(KindAcquisition, "Unable to get WAF cookies: %s", Truncate(err.Error(), errorExcerpt)))
		}
		wafCookies = acquired
	} else {
		logger.Info("Bypass WAF not required, using user cookies directly")
	}

	cookies := account.Merge(wafCookies, userCookies)

	header := http.Header{}
	header.Set(prov.APIUserKey, acc.APIUser)

	session, err := httpclient.NewSession(e.http, prov.Domain, cookies, header)
	if err != nil {
		logger.Error("Failed to create HTTP session", "error", err)
		return Failed(newError(KindConfiguration, "%s", Truncate(err.Error(), errorExcerpt)))
	}
	defer session.Close()

	info, fetchErr := e.fetchUserInfo(ctx, session, prov)
	if info.Success {
		logger.Info(info.Display)
	} else {
		logger.Warn(info.Error)
	}

	if !prov.NeedsManualCheckIn {
		if fetchErr != nil {
			return Outcome{UserInfo: info, Err: newError(KindTransport, "%s...", Truncate(fetchErr.Error(), errorExcerpt))}
		}
		logger.Info("Check-in completed automatically (triggered by user info request)")
		return Outcome{Success: true, UserInfo: info}
	}

	if cerr := e.checkIn(ctx, logger, session, prov); cerr != nil {
		return Outcome{UserInfo: info, Err: cerr}
	}
	return Outcome{Success: true, UserInfo: info}
}

func (e *Executor) acquireWAF(ctx context.Context, acc *account.Account, prov *provider.Provider) (account.CookieSet, error) {
	if e.acquirer == nil {
		return nil, errors.New("no browser configured")
	}
	cookies, err := e.acquirer.Acquire(ctx, acc.DisplayName(), prov.LoginURL(), prov.WAFCookieNames)
	if err != nil {
		return nil, err
	}
	if len(cookies) == 0 {
		return nil, errors.New("no WAF cookies returned")
	}
	return cookies, nil
}

// fetchUserInfo always returns a UserInfo; the error is set only when the
// request itself failed.
func (e *Executor) fetchUserInfo(ctx context.Context, session *httpclient.Session, prov *provider.Provider) (*UserInfo, error) {
	resp, err := session.Get(ctx, prov.UserInfoURL())
	if err != nil {
		return userInfoError(err), err
	}
	return ParseUserInfo(resp), nil
}

func (e *Executor) checkIn(ctx context.Context, logger *slog.Logger, session *httpclient.Session, prov *provider.Provider) *Error {
	logger.Info("Executing check-in")

	resp, err := session.PostJSON(ctx, prov.SignInURL(), nil)
	if err != nil {
		logger.Error("Error occurred during check-in process", "error", err)
		return newError(KindTransport, "%s...", Truncate(err.Error(), errorExcerpt))
	}
	logger.Info("Check-in response", "status", resp.StatusCode)

	if cerr := ClassifyCheckin(resp); cerr != nil {
		logger.Warn("Check-in failed", "error", cerr.Message)
		return cerr
	}
	logger.Info("Check-in successful")
	return nil
}
