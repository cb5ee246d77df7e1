package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/split2ynab/backend/internal/app"
	"github.com/split2ynab/backend/internal/config"
	"github.com/split2ynab/backend/internal/logging"
	"github.com/split2ynab/backend/internal/models"
	"github.com/split2ynab/backend/internal/services"
	"go.uber.org/zap"
)

type rootOptions struct {
	cfgFile string
	envFile string
	v       *viper.Viper
}

func newRootCmd() *cobra.Command {
	cmd, _ := buildRootCmd()
	return cmd
}

func buildRootCmd() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "split2ynab",
		Short:         "Sync your share of Splitwise expenses into a YNAB account",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), app.ModeSync)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("budget", "", "YNAB budget name or id")
	flags.String("account", "", "YNAB account name or id")
	flags.String("start-date", "", "ignore expenses dated before this day (YYYY-MM-DD)")
	flags.Int("limit", 0, "send at most this many transactions per run (0 = no cap)")
	flags.Bool("nowrite", false, "compute everything but write nothing")
	flags.Bool("writeback", false, "persist the watermark after a successful write")
	flags.Bool("loop", false, "repeat every --delay milliseconds until interrupted")
	flags.Int("delay", 60000, "loop interval in milliseconds")
	flags.Bool("debug", false, "log every record at each stage")
	flags.Bool("budget-ccs", false, "fund credit card payment categories after syncing")
	flags.String("http-addr", "", "serve /health, /status and /metrics on this address in loop mode")

	bind := map[string]string{
		"ynab.budget":  "budget",
		"ynab.account": "account",
		"start_date":   "start-date",
		"limit":        "limit",
		"nowrite":      "nowrite",
		"writeback":    "writeback",
		"loop":         "loop",
		"delay":        "delay",
		"debug":        "debug",
		"budget_ccs":   "budget-ccs",
		"http.addr":    "http-addr",
	}
	for key, flag := range bind {
		_ = opts.v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Sync expenses, then fund credit cards when --budget-ccs is set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), app.ModeSync)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "fund",
		Short: "Fund credit card payment categories only",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), app.ModeFund)
		},
	})

	return rootCmd, opts
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", o.envFile, err)
	}

	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
		if err := o.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config.BindEnv(o.v)
	return config.Load(o.v)
}

func (o *rootOptions) run(ctx context.Context, mode string) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:       cfg.LogLevel(),
		Format:      cfg.Log.Format,
		Development: cfg.Debug,
	})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	application, cleanup, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	scheduler := application.Scheduler(mode)

	if !cfg.Loop {
		err := scheduler.RunOnce(ctx)
		printSummary(application.Status.Snapshot())
		return err
	}

	if srv := application.StatusServer(); srv != nil {
		go func() {
			logger.Info("status server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("status server forced to shutdown", zap.Error(err))
			}
		}()
	}

	logger.Info("looping", zap.Duration("delay", cfg.DelayDuration()), zap.String("mode", mode))
	return scheduler.Run(ctx)
}

func printSummary(status services.Status) {
	if run := status.LastRun; run != nil && run.Error == "" {
		switch {
		case run.DryRun:
			pterm.Info.Printf("Dry run: %d transactions pending, nothing written\n", run.Converted)
		case run.Written() == 0:
			pterm.Info.Println("Nothing to send")
		default:
			pterm.Success.Printf("Sent %d transactions (%d updated, %d created)\n", run.Written(), run.Updated, run.Created)
		}
		if run.WatermarkAdvanced {
			pterm.Info.Printf("Watermark advanced to %s\n", models.FormatWatermark(*run.Watermark))
		}
	}

	if funding := status.LastFunding; funding != nil && len(funding.Adjustments) > 0 {
		data := pterm.TableData{{"Category", "Owed", "Available", "Delta", "Budgeted", "Applied"}}
		for _, adj := range funding.Adjustments {
			applied := strconv.FormatBool(adj.Applied)
			if adj.Error != "" {
				applied = adj.Error
			}
			data = append(data, []string{
				adj.Category,
				formatMilliunits(adj.NeededBalance),
				formatMilliunits(adj.CategoryBalance),
				formatMilliunits(adj.Delta),
				formatMilliunits(adj.NewBudgeted),
				applied,
			})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}
}

func formatMilliunits(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%03d", sign, v/1000, v%1000)
}
