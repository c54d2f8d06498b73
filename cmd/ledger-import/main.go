package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"talentdesk/internal/cli"
	"talentdesk/internal/config"
	"talentdesk/internal/core"
	"talentdesk/internal/ledger/memory"
	applog "talentdesk/internal/log"
	"talentdesk/internal/services"
)

const usage = `ledger-import - load a JSON ledger into the SQLite store

Usage:
  ledger-import -file=ledger.json [-dry-run] [-timeout=2m]

Every record is validated before anything is written; a failed import
writes nothing. On success a ledger-changed event is published when
AMQP_URL is set, so running report workers re-export.
`

type options struct {
	file    string
	dryRun  bool
	timeout time.Duration
}

func parseFlags(args []string, out io.Writer) (options, error) {
	fs := flag.NewFlagSet("ledger-import", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, usage) }

	var opts options
	fs.StringVar(&opts.file, "file", "", "JSON ledger file to import")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Validate the file without writing")
	fs.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Timeout for the import")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.file == "" {
		return options{}, errors.New("-file is required")
	}
	return opts, nil
}

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentImport)

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	summary, err := run(ctx, logger, cfg, opts)
	if err != nil {
		logger.Error("Import failed", "file", opts.file, "error", err)
		os.Exit(1)
	}
	logger.Info("Import finished",
		"file", opts.file,
		"dry_run", opts.dryRun,
		"users", summary.Users,
		"talents", summary.Talents,
		"expenses", summary.Expenses,
		"payments", summary.Payments,
		"incomes", summary.Incomes)
}

type summary struct {
	Users, Talents, Expenses, Payments, Incomes int
}

func summarize(l core.Ledger) summary {
	return summary{len(l.Users), len(l.Talents), len(l.Expenses), len(l.Payments), len(l.Incomes)}
}

func run(ctx context.Context, logger *applog.Logger, cfg *config.Config, opts options) (summary, error) {
	raw, err := os.ReadFile(opts.file)
	if err != nil {
		return summary{}, fmt.Errorf("read ledger file: %w", err)
	}
	l, err := memory.Decode(raw)
	if err != nil {
		return summary{}, err
	}
	if opts.dryRun {
		return summarize(l), nil
	}

	if cfg.DataBackend != "sqlite" {
		return summary{}, fmt.Errorf("import needs DATA_BACKEND=sqlite, got %q", cfg.DataBackend)
	}
	store, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return summary{}, err
	}
	defer store.Cleanup()

	var publisher services.Publisher
	if store.Publisher != nil {
		publisher = store.Publisher
	}
	if err := services.NewLedgerService(store.Backend, publisher, nil, nil).ImportLedger(ctx, l); err != nil {
		return summary{}, err
	}
	return summarize(l), nil
}
