// Package main is the entry point for the check-in runner.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli"

	"checkin-go/infrastructure/config"
	"checkin-go/infrastructure/logging"
)

var stdout io.Writer = os.Stdout

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	exitCode := 1

	app := cli.NewApp()
	app.Name = "checkin"
	app.Usage = "multi-account check-in for WAF-protected new-api sites"
	app.HideVersion = true
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "YAML configuration file", EnvVar: "CHECKIN_CONFIG"},
		cli.StringFlag{Name: "env-file", Usage: "dotenv file loaded before reading the environment (default .env if present)"},
		cli.BoolFlag{Name: "dry-run", Usage: "render the report without notifying or saving the balance hash"},
		cli.BoolFlag{Name: "headless", Usage: "run the browser without a window"},
	}
	app.Action = func(c *cli.Context) error {
		exitCode = checkinAction(c)
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:  "providers",
			Usage: "list known provider definitions",
			Action: func(c *cli.Context) error {
				exitCode = providersAction(c)
				return nil
			},
		},
	}

	if err := app.Run(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.Load(config.Options{
		ConfigPath: c.GlobalString("config"),
		EnvFile:    c.GlobalString("env-file"),
	})
}

func checkinAction(c *cli.Context) int {
	cfg, err := loadConfig(c)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		return 1
	}

	level, _ := logging.ParseLevel(cfg.Log.Level)
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.JSON = cfg.Log.JSON
	logCfg.Dir = cfg.Log.Dir
	logCfg.Console = true

	logger, closeLog, err := logging.Setup(logCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logging:", err)
		return 1
	}
	defer closeLog()

	logger = logger.With("run_id", uuid.NewString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, runOptions{DryRun: c.Bool("dry-run"), Headless: c.Bool("headless")}, logger)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return 1
	}
	defer a.Close()

	result, err := a.runner.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Program interrupted by user")
		}
		return 1
	}
	return result.ExitCode
}

func providersAction(c *cli.Context) int {
	cfg, err := loadConfig(c)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		return 1
	}
	registry, err := cfg.ProviderRegistry()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	for _, name := range registry.List() {
		p := registry.Get(name)
		checkIn := "auto"
		if p.NeedsManualCheckIn {
			checkIn = "manual"
		}
		waf := "-"
		if p.NeedsWAFCookies {
			waf = strings.Join(p.WAFCookieNames, ",")
		}
		fmt.Fprintf(stdout, "%-14s %-28s check-in=%-6s waf=%s\n", name, p.Domain, checkIn, waf)
	}
	return 0
}
