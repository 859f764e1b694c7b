// Package application orchestrates one check-in pass over all accounts.
package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"checkin-go/application/checkin"
	"checkin-go/application/report"
	"checkin-go/domain/account"
	"checkin-go/domain/balance"
	"checkin-go/domain/provider"
	"checkin-go/infrastructure/notify"
)

// AccountExecutor checks in a single account.
type AccountExecutor interface {
	Run(ctx context.Context, acc *account.Account, prov *provider.Provider) checkin.Outcome
}

// RunnerConfig holds the Runner's collaborators.
type RunnerConfig struct {
	Accounts  *account.Service
	Providers *provider.Registry
	Executor  AccountExecutor
	Store     balance.Store
	Notifier  notify.Notifier

	// Output receives the rendered report whenever one is produced.
	Output io.Writer

	// Now stamps the run. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Result describes a completed pass.
type Result struct {
	Summary  *report.Summary
	Decision balance.Decision
	// Report is the rendered Markdown, empty in silent mode.
	Report   string
	Notified bool
	ExitCode int
}

// Runner processes accounts sequentially and decides whether to notify.
type Runner struct {
	accounts  *account.Service
	providers *provider.Registry
	executor  AccountExecutor
	store     balance.Store
	notifier  notify.Notifier
	output    io.Writer
	now       func() time.Time
	logger    *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(cfg *RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NoOp{}
	}
	output := cfg.Output
	if output == nil {
		output = io.Discard
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	providers := cfg.Providers
	if providers == nil {
		providers = provider.NewDefaultRegistry()
	}
	return &Runner{
		accounts:  cfg.Accounts,
		providers: providers,
		executor:  cfg.Executor,
		store:     cfg.Store,
		notifier:  notifier,
		output:    output,
		now:       now,
		logger:    logger,
	}
}

// Run performs one pass. The returned error is non-nil only when accounts
// cannot be loaded or ctx is cancelled; in both cases no report is produced.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	execTime := r.now()
	r.logger.Info("Multi-account check-in started", "time", execTime.Format(report.TimeLayout))

	accounts, err := r.accounts.ListAccounts(ctx)
	if err != nil {
		r.logger.Error("Unable to load account configuration", "error", err)
		return nil, err
	}
	r.logger.Info("Found account configurations", "count", len(accounts))

	tracker := balance.NewTracker(r.store, r.logger)
	tracker.LoadPrevious(ctx)

	summary := &report.Summary{ExecTime: execTime}
	snapshot := balance.Snapshot{}

	for _, acc := range accounts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec := r.runAccount(ctx, acc, snapshot)
		summary.Add(rec)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decision := tracker.Commit(ctx, snapshot)
	result := &Result{
		Summary:  summary,
		Decision: decision,
		ExitCode: report.ExitCode(summary.SuccessCount),
	}

	r.logger.Info("Check-in results",
		"success", summary.SuccessCount,
		"total", summary.Total(),
	)

	if !report.ShouldNotify(summary.SuccessCount, summary.Total(), decision.Changed) {
		r.logger.Info("All successful and no balance change, silent mode")
		return result, nil
	}

	result.Report = report.Render(summary)
	fmt.Fprintln(r.output, result.Report)

	msg := notify.Message{Title: report.Title, Body: result.Report, ContentType: report.ContentType}
	if err := r.notifier.Push(ctx, msg); err != nil {
		r.logger.Warn("Failed to send notification", "notifier", r.notifier.Name(), "error", err)
	} else {
		result.Notified = true
		r.logger.Info("Notification sent", "notifier", r.notifier.Name())
	}
	return result, nil
}

// runAccount checks in one account and records its balance in snapshot when
// both the check-in and the user info succeeded.
func (r *Runner) runAccount(ctx context.Context, acc *account.Account, snapshot balance.Snapshot) report.Record {
	name := acc.DisplayName()
	logger := r.logger.With("account", name)

	prov, err := r.providers.Resolve(acc.ProviderKey())
	if err != nil {
		logger.Error("Provider lookup failed", "error", err)
		return report.Record{Name: name, Message: fmt.Sprintf("Provider %q not found in configuration", acc.ProviderKey())}
	}

	out := r.executor.Run(ctx, acc, prov)
	rec := report.FromOutcome(name, out)

	if out.Success && out.UserInfo != nil && out.UserInfo.Success {
		snapshot[acc.BalanceKey()] = balance.Balance{
			Quota: out.UserInfo.Quota,
			Used:  out.UserInfo.UsedQuota,
		}
	}

	if rec.Success {
		logger.Info("Check-in successful")
	} else {
		logger.Warn("Check-in failed", "message", rec.Message)
	}
	return rec
}
