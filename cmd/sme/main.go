package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spektr-org/sme/config"
	"github.com/spektr-org/sme/oracle"
	"github.com/spektr-org/sme/source"
)

// ============================================================================
// SME CLI — Budgeted outcome-probability oracle
// ============================================================================

const version = "0.1.0"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v       *viper.Viper
	envFile string
	cfg     *config.Config
	log     *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "sme",
		Short: "Ask a budgeted oracle for outcome probabilities over a labeled dataset",
		Long: `sme loads an aligned feature table and outcome table and answers
"what fraction of rows matching these constraints have outcome 1?".
Each oracle answers at most --budget questions.

Examples:
  sme --profile streamflix ask subscription_plan=basic monthly_price=9.99
  sme --features x.csv --outcome y.csv --outcome-column will_churn row 12
  sme --profile ecommerce session < questions.jsonl
  sme --profile ecommerce serve --addr :8080`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("profile", "", "Bundled dataset: ecommerce or streamflix")
	pf.String("base-url", "", "Directory or URL holding the profile's files")
	pf.String("features", "", "Feature table (path or http(s) URL; .csv, .tsv or .xlsx)")
	pf.String("outcome", "", "Outcome table aligned row-by-row with the features")
	pf.String("outcome-column", "", "Name of the 0/1 outcome column")
	pf.Int64("budget", oracle.DefaultBudget, "Number of questions the oracle answers")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.Duration("fetch-timeout", source.DefaultTimeout, "Timeout for one HTTP fetch")
	pf.StringVar(&a.envFile, "env-file", "", "KEY=value file loaded before reading SME_* variables (default .env if present)")

	for key, flag := range map[string]string{
		"profile":        "profile",
		"base_url":       "base-url",
		"features":       "features",
		"outcome":        "outcome",
		"outcome_column": "outcome-column",
		"budget":         "budget",
		"log_level":      "log-level",
		"fetch_timeout":  "fetch-timeout",
	} {
		mustBind(a.v.BindPFlag(key, pf.Lookup(flag)))
	}

	root.AddCommand(
		newAskCmd(a),
		newSessionCmd(a),
		newRowCmd(a),
		newDescribeCmd(a),
		newServeCmd(a),
	)
	return root
}

// mustBind panics on a flag binding error; only a misspelled flag name in
// this package can cause one.
func mustBind(err error) {
	if err != nil {
		panic(fmt.Sprintf("sme: %v", err))
	}
}

// init loads the environment file, resolves the configuration, and builds
// the logger. Help and completion never reach it.
func (a *app) init() error {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(a.log)
	return nil
}

// open fetches both tables and builds a fresh oracle with its own budget.
func (a *app) open(ctx context.Context) (*oracle.Oracle, error) {
	if err := a.init(); err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: a.cfg.FetchTimeout}
	features := source.ResolveWithClient(a.cfg.Features, client)
	outcome := source.ResolveWithClient(a.cfg.Outcome, client)

	a.log.Info("loading dataset",
		"features", features.Name(),
		"outcome", outcome.Name(),
		"outcome_column", a.cfg.OutcomeColumn,
	)
	o, err := oracle.Open(ctx, features, outcome, a.cfg.OutcomeColumn,
		oracle.WithBudget(a.cfg.Budget),
		oracle.WithLogger(a.log),
	)
	if err != nil {
		return nil, err
	}
	a.log.Info("oracle ready",
		"oracle_id", o.ID().String(),
		"rows", o.Store().RowCount(),
		"budget", o.Budget(),
	)
	return o, nil
}
