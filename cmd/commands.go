package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/guttosm/cryptopulse/config"
	"github.com/guttosm/cryptopulse/internal/app"
	"github.com/guttosm/cryptopulse/internal/cache"
	"github.com/guttosm/cryptopulse/internal/changefeed"
	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/guttosm/cryptopulse/internal/ingestion"
	"github.com/guttosm/cryptopulse/internal/logger"
	"github.com/guttosm/cryptopulse/internal/warehouse"
)

// openWarehouse is an indirection for unit testing; defaults to warehouse.Open
var openWarehouse = warehouse.Open

// errBatchFailed is returned by load when no file of the batch loaded.
var errBatchFailed = errors.New("batch failed")

// newRootCmd builds the cryptopulse command tree:
//
//	cryptopulse bootstrap       create schemas, tables and the landing directory
//	cryptopulse load <batch>    load <LOADER_DATA_DIR>/<batch>/*.csv into the raw layer
//	cryptopulse refresh         recompute every derivation once, or keep them fresh with --watch
//	cryptopulse serve           run the dashboard API
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cryptopulse",
		Short:         "Crypto broker ELT pipeline",
		Long:          "cryptopulse loads raw CSV batches into a SQL warehouse, keeps derived trading tables fresh and serves a read-only dashboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			config.LoadConfig()
			logger.Init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Close()
		},
	}
	root.AddCommand(newBootstrapCmd(), newLoadCmd(), newRefreshCmd(), newServeCmd())
	return root
}

func newBootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the warehouse layout and the landing directory (idempotent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return logged(runBootstrap(cmd.Context(), config.AppConfig))
		},
	}
}

func runBootstrap(ctx context.Context, cfg config.Config) error {
	w, err := openWarehouse(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	return warehouse.Bootstrap(ctx, w, cfg)
}

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <batch>",
		Short: "Load every CSV file of a batch directory into the raw tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return logged(runLoad(cmd.Context(), config.AppConfig, args[0], cmd.OutOrStdout()))
		},
	}
}

func runLoad(ctx context.Context, cfg config.Config, batch string, out io.Writer) error {
	w, err := openWarehouse(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	feed, err := changefeed.New(cfg, w)
	if err != nil {
		return err
	}
	defer func() { _ = feed.Close() }()

	report, err := ingestion.ProcessBatch(ctx, cfg.Loader.DataDir, batch, w, ingestion.Options{
		BatchSize: cfg.Loader.BatchSize,
		Publisher: feed,
	})
	if report != nil {
		ingestion.RenderReport(out, report, !color.NoColor)
	}
	if err != nil {
		return err
	}
	if ingestion.ExitCode(report, nil) != 0 {
		return fmt.Errorf("%w: %s", errBatchFailed, batch)
	}
	return nil
}

func newRefreshCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute the derived tables",
		Long: "Without --watch every derivation is recomputed once and a freshness table is printed. " +
			"With --watch the scheduler keeps them fresh until interrupted, publishing to the cache store.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return logged(runRefreshWatch(ctx, config.AppConfig))
			}
			return logged(runRefresh(cmd.Context(), config.AppConfig, cmd.OutOrStdout()))
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep derivations fresh until interrupted")
	return cmd
}

func runRefresh(ctx context.Context, cfg config.Config, out io.Writer) error {
	w, err := openWarehouse(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	store, err := cache.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sched, err := app.NewScheduler(cfg, w, store)
	if err != nil {
		return err
	}
	runErr := sched.RunOnce(ctx, true)
	states, err := sched.States(ctx)
	if err != nil {
		return err
	}
	renderStates(out, states)
	return runErr
}

func runRefreshWatch(ctx context.Context, cfg config.Config) error {
	w, err := openWarehouse(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	store, err := cache.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	feed, err := changefeed.New(cfg, w)
	if err != nil {
		return err
	}
	defer func() { _ = feed.Close() }()

	sched, err := app.NewScheduler(cfg, w, store)
	if err != nil {
		return err
	}
	return sched.Run(ctx, feed)
}

// renderStates prints one row per derivation.
func renderStates(out io.Writer, states []models.DerivationState) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Derivation", "Target lag", "Rows", "Refreshed at", "Elapsed", "Error"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, st := range states {
		refreshed := "-"
		if st.RefreshedAt != nil {
			refreshed = st.RefreshedAt.UTC().Format(time.RFC3339)
		}
		status := st.LastError
		if status == "" {
			status = color.GreenString("ok")
		} else {
			status = color.RedString(status)
		}
		table.Append([]string{
			st.Name,
			st.TargetLag,
			fmt.Sprintf("%d", st.Rows),
			refreshed,
			st.Duration.Round(time.Millisecond).String(),
			status,
		})
	}
	table.Render()
}

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port == "" {
				port = config.AppConfig.Server.Port
			}
			ctx := cmd.Context()
			logger.L().Info().Msg("starting API server")

			a, err := app.InitializeApp(ctx)
			if err != nil {
				return logged(fmt.Errorf("app init error: %w", err))
			}

			bg, cancel := context.WithCancel(ctx)
			a.Start(bg)

			cleanup := func() {
				cancel()
				if err := a.Close(); err != nil {
					logger.L().Warn().Err(err).Msg("cleanup finished with errors")
				}
			}
			server, err := startServer(a.Router, port)
			if err != nil {
				cleanup()
				return logged(err)
			}
			return logged(gracefulShutdown(ctx, server, cleanup))
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "port for the API server (default SERVER_PORT)")
	return cmd
}

// logged reports a command failure once, through the structured logger.
func logged(err error) error {
	if err != nil {
		logger.L().Error().Err(err).Msg("command failed")
	}
	return err
}
