// Package cli implements the ledgerctl operator commands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
	"github.com/odyssey-erp/odyssey-ledger/internal/app"
)

// Output formats accepted by --format.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return 1
}

// Options configures the root command. Zero values use the process defaults.
type Options struct {
	Stdout     io.Writer
	Stderr     io.Writer
	Now        func() time.Time
	LoadConfig func() (*app.Config, error)
}

// globals holds the persistent flags and the state derived from them.
type globals struct {
	opts Options

	datasetPath  string
	format       string
	period       string
	from         string
	to           string
	asOf         string
	baseCurrency string
	verbose      bool

	cfg    *app.Config
	logger *slog.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LoadConfig == nil {
		opts.LoadConfig = app.LoadConfig
	}
	g := &globals{opts: opts}

	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Build ledger reports from a dataset file",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.init()
		},
	}
	rootCmd.SetOut(opts.Stdout)
	rootCmd.SetErr(opts.Stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.datasetPath, "dataset", "d", "", "path to a dataset JSON file")
	flags.StringVarP(&g.format, "format", "f", FormatTable, "output format: table, json or csv")
	flags.StringVar(&g.period, "period", "", "period token such as this_month or last_quarter")
	flags.StringVar(&g.from, "from", "", "range start (YYYY-MM-DD)")
	flags.StringVar(&g.to, "to", "", "range end (YYYY-MM-DD)")
	flags.StringVar(&g.asOf, "as-of", "", "cutoff date (YYYY-MM-DD)")
	flags.StringVar(&g.baseCurrency, "base-currency", "", "override LEDGER_BASE_CURRENCY")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "log at info level")

	rootCmd.AddCommand(
		newReportCommand(g),
		newPackCommand(g),
		newCheckCommand(g),
		newPeriodsCommand(g),
		newWatchCommand(g),
		newEnqueueCommand(g),
	)
	return rootCmd
}

func (g *globals) init() error {
	switch g.format {
	case FormatTable, FormatJSON, FormatCSV:
	default:
		return fmt.Errorf("unknown format %q", g.format)
	}
	cfg, err := g.opts.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if g.baseCurrency != "" {
		cfg.LedgerBaseCurrency = strings.ToUpper(strings.TrimSpace(g.baseCurrency))
	}
	g.cfg = cfg

	logCfg := *cfg
	logCfg.LogLevel = "warn"
	if g.verbose {
		logCfg.LogLevel = "info"
	}
	logCfg.AppEnv = "production"
	g.logger = app.NewLoggerTo(g.opts.Stderr, &logCfg)
	return nil
}

// query builds the report scope from the persistent flags.
func (g *globals) query() (analytics.Query, error) {
	var q analytics.Query
	q.Period = strings.TrimSpace(g.period)
	var err error
	if q.From, err = parseFlagDate("from", g.from); err != nil {
		return q, err
	}
	if q.To, err = parseFlagDate("to", g.to); err != nil {
		return q, err
	}
	if q.AsOf, err = parseFlagDate("as-of", g.asOf); err != nil {
		return q, err
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From.Time) {
		return q, errors.New("--to is before --from")
	}
	return q, nil
}

// service wires a report service over the dataset file.
func (g *globals) service() (*analytics.Service, error) {
	if g.datasetPath == "" {
		return nil, errors.New("--dataset is required")
	}
	svc := analytics.NewService(fileRepository{path: g.datasetPath}, nil, g.cfg.LedgerOptions(), g.logger)
	svc.WithNow(g.opts.Now)
	return svc, nil
}

func parseFlagDate(name, value string) (accounting.Date, error) {
	d, err := accounting.ParseDate(value)
	if err != nil {
		return accounting.Date{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}
