// Package main provides betctl, the operator CLI for the betting core.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/siggy2543/mysportsbet-sub000/internal/calibration"
	"github.com/siggy2543/mysportsbet-sub000/internal/config"
	"github.com/siggy2543/mysportsbet-sub000/internal/database"
	"github.com/siggy2543/mysportsbet-sub000/internal/logger"
	"github.com/siggy2543/mysportsbet-sub000/internal/odds"
	"github.com/siggy2543/mysportsbet-sub000/internal/repository"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "betctl",
		Short: "Operator CLI for the betting core service",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(dashboardCmd())
	root.AddCommand(usageCmd())
	root.AddCommand(recomputeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads and validates configuration for CLI commands.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// connect opens the database and builds the repositories.
func connect(ctx context.Context, cfg *config.Config) (*database.DB, *repository.Repositories, error) {
	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, repos, nil
}

func dashboardCmd() *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the performance dashboard over recent settled predictions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, repos, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			dash := calibration.NewDashboard(repos.Outcome, repos.Bucket, cfg.Calibration.MinSampleSize)
			report, err := dash.Build(ctx, limit)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(report)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 1000, "number of recent settled predictions to analyze")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the report as JSON")
	return cmd
}

func printReport(r *calibration.Report) {
	fmt.Printf("Performance dashboard (%s)\n\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("  Total bets:        %d\n", r.TotalBets)
	fmt.Printf("  Win rate:          %.1f%%\n", r.WinRate*100)
	fmt.Printf("  Total staked:      %s\n", r.TotalStaked.StringFixed(2))
	fmt.Printf("  Profit/loss:       %s\n", r.TotalProfitLoss.StringFixed(2))
	fmt.Printf("  ROI:               %s\n", r.ROI.StringFixed(4))
	fmt.Printf("  Avg confidence:    %.1f\n", r.AvgConfidence)
	fmt.Printf("  Calibration error: %.3f\n", r.CalibrationError)
	fmt.Printf("  Kelly efficiency:  %.2f\n", r.KellyEfficiency)

	if len(r.Buckets) > 0 {
		fmt.Printf("\n  %-14s %-8s %8s %8s %10s %8s\n", "sport", "bucket", "preds", "correct", "accuracy", "factor")
		for i := range r.Buckets {
			b := &r.Buckets[i]
			fmt.Printf("  %-14s %-8s %8d %8d %9.1f%% %8.3f\n",
				b.Sport, b.Bucket, b.Predictions, b.Correct, b.Accuracy()*100, b.AdjustmentFactor)
		}
	}

	if len(r.FeatureImportance) > 0 {
		fmt.Println("\n  Feature importance (correlation with correctness):")
		for _, fi := range r.FeatureImportance {
			fmt.Printf("    %-22s %+.3f\n", fi.Feature, fi.Correlation)
		}
	}

	fmt.Println("\n  Recommendations:")
	for _, rec := range r.Recommendations {
		fmt.Printf("    - %s\n", rec)
	}
}

func usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Report the upstream request budget by probing the odds API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.OddsAPI.UpstreamTimeout()+5*time.Second)
			defer cancel()

			log := logger.NewLogger("error", cfg.App.Environment)
			client := odds.NewClient(cfg.OddsAPI, log)
			budget := odds.NewBudget(cfg.OddsAPI.MonthlyQuota)

			// One cheap real request; the response headers carry the
			// authoritative quota counters.
			sport := cfg.Sports[0].Key
			_, quota, err := client.ListEvents(ctx, sport)
			if quota != nil {
				budget.Sync(quota.Used, quota.Remaining)
			}
			if err != nil {
				return fmt.Errorf("upstream probe failed: %w", err)
			}

			u := budget.Usage()
			fmt.Printf("Budget period:      %s\n", u.BudgetPeriod)
			fmt.Printf("Requests used:      %d\n", u.RequestsUsed)
			fmt.Printf("Requests remaining: %d\n", u.RequestsRemaining)
			return nil
		},
	}
}

func recomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Recompute adjustment factors for all pending calibration buckets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			db, repos, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			log := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
			engine := calibration.NewEngine(repos.Bucket, repos.Prediction, repos.Outcome, cfg.Calibration, log)
			n, err := engine.RecomputeAll(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Recomputed %d bucket(s)\n", n)
			return nil
		},
	}
}
