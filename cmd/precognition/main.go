// Package main provides the entry point for the precognition service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/precognition/internal/config"
	"github.com/yourusername/precognition/internal/database"
	"github.com/yourusername/precognition/internal/health"
	applogger "github.com/yourusername/precognition/internal/logger"
	"github.com/yourusername/precognition/internal/metrics"
	"github.com/yourusername/precognition/internal/models"
	"github.com/yourusername/precognition/internal/repository"
	"github.com/yourusername/precognition/internal/scheduler"
	"github.com/yourusername/precognition/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile      string
	marketID        string
	tradesFile      string
	cutoffHours     float64
	sweepHours      int
	runID           string
	historyLimit    int
	includeResolved bool

	appLog *logrus.Logger
	cfg    *config.Config
	db     *database.DB
	repos  *repository.Repositories
	crowd  *service.CrowdService
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")

	ingestCmd.Flags().StringVarP(&tradesFile, "file", "f", "", "Path to a JSON array of trades (defaults to stdin)")

	snapshotCmd.Flags().StringVarP(&marketID, "market", "m", "", "Snapshot a single market instead of all markets")
	snapshotCmd.Flags().BoolVar(&includeResolved, "include-resolved", false, "Also snapshot resolved markets")

	backfillCmd.Flags().StringVarP(&marketID, "market", "m", "", "Market to backfill")
	backfillCmd.MarkFlagRequired("market")

	historyCmd.Flags().StringVarP(&marketID, "market", "m", "", "Market to show history for")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Maximum number of snapshots to return")
	historyCmd.MarkFlagRequired("market")

	backtestCmd.Flags().Float64Var(&cutoffHours, "cutoff-hours", 0, "Hours before close to replay snapshots at (default from config)")
	backtestCmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (generated when empty)")

	sweepCmd.Flags().IntVar(&sweepHours, "max-hours", 0, "Largest hourly cutoff to evaluate (default from config)")
	sweepCmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (generated when empty)")
}

var rootCmd = &cobra.Command{
	Use:   "precognition",
	Short: "Crowd-wisdom probability estimates for binary prediction markets",
	Long: `Precognition infers per-wallet beliefs from the trade log, weights them
by historical accuracy, and fuses them into market probability estimates.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return setupDependencies(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduled snapshot and recompute pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a batch of trades from a JSON file or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context())
	},
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute wallet metrics, weights, and snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		return crowd.RecomputePipeline(cmd.Context())
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Build and persist crowd snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		now := time.Now().UTC()

		if marketID != "" {
			snap, err := crowd.BuildMarketSnapshot(ctx, marketID, now, true)
			if err != nil {
				return err
			}
			return printJSON(snap)
		}

		built, err := crowd.SnapshotAllMarkets(ctx, now, includeResolved)
		if err != nil {
			return err
		}
		appLog.WithField("snapshots", built).Info("Snapshot pass complete")
		return nil
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Backfill evenly spaced snapshots across a market's trade history",
	RunE: func(cmd *cobra.Command, args []string) error {
		built, err := crowd.BackfillSnapshots(cmd.Context(), marketID)
		if err != nil {
			return err
		}
		appLog.WithFields(logrus.Fields{
			"market_id": marketID,
			"snapshots": built,
		}).Info("Backfill complete")
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show a market's persisted snapshot history, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		snaps, err := crowd.SnapshotHistory(cmd.Context(), marketID, historyLimit)
		if err != nil {
			return err
		}
		return printJSON(snaps)
	},
}

var screenerCmd = &cobra.Command{
	Use:   "screener",
	Short: "List markets where the crowd signal diverges most from price",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := crowd.Screener(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(rows)
	},
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Score replayed crowd snapshots against resolved outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := crowd.RunBacktest(cmd.Context(), cutoffHours, runID)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a backtest at every hourly cutoff up to a maximum",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := crowd.RunBacktestSweep(cmd.Context(), sweepHours, runID)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, ingestCmd, recomputeCmd, snapshotCmd, backfillCmd, historyCmd, screenerCmd, backtestCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}

	if cfg.AWS.SecretsEnabled {
		if err := config.LoadSecretsFromAWS(cfg, cfg.AWS.Region, cfg.AWS.SecretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	return config.Validate(cfg)
}

func setupDependencies(ctx context.Context) error {
	appLog = applogger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
	}).Info("Precognition starting")

	var err error
	db, err = database.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	repos, err = repository.NewRepositories(db, cfg.WeightCacheTTL())
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	crowd = service.NewCrowdService(repos, cfg, appLog)
	return nil
}

func runServe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Logger:      appLog,
		DB:          db,
	})
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = metrics.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, appLog)
		metricsServer.Start()
	}

	sched := scheduler.NewScheduler(crowd, appLog)
	if cfg.Scheduler.Enabled {
		if err := sched.ScheduleSnapshots(cfg.Scheduler.SnapshotSchedule); err != nil {
			return err
		}
		if err := sched.ScheduleRecompute(cfg.Scheduler.RecomputeSchedule); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		appLog.WithField("next_run", sched.GetNextRun()).Info("Scheduler running")
	} else {
		appLog.Warn("Scheduler disabled, serving health and metrics only")
	}

	healthServer.SetReady(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		appLog.WithField("signal", sig.String()).Info("Shutting down")
	case <-ctx.Done():
	}

	healthServer.SetReady(false)
	if cfg.Scheduler.Enabled {
		if err := sched.Stop(); err != nil {
			appLog.WithError(err).Error("Failed to stop scheduler")
		}
	}
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("Failed to stop metrics server")
		}
	}
	return nil
}

func runIngest(ctx context.Context) error {
	in := os.Stdin
	if tradesFile != "" {
		f, err := os.Open(tradesFile)
		if err != nil {
			return fmt.Errorf("failed to open trades file: %w", err)
		}
		defer f.Close()
		in = f
	}

	var trades []models.Trade
	if err := json.NewDecoder(in).Decode(&trades); err != nil {
		return fmt.Errorf("failed to decode trades: %w", err)
	}

	inserted, err := crowd.IngestTrades(ctx, trades)
	if err != nil {
		return err
	}
	appLog.WithFields(logrus.Fields{
		"received": len(trades),
		"inserted": inserted,
	}).Info("Ingestion complete")
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
