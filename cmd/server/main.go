package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Leumas-Tech/leumas-education/internal/config"
	"github.com/Leumas-Tech/leumas-education/internal/serverapp"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	addr       string
	verbose    bool
	skipWarm   bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "leumas-server",
	Short: "Serve the daily practice API",
	Long: `Serves today's tasks, proof submission, auto-grading, the tutor chat
and the activity heatmap for every configured practice.

Settings come from the YAML config file and LEUMAS_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: serve,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "leumas.yml", "path to the YAML config file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&skipWarm, "no-warm", false, "skip rebuilding heatmaps at startup")
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()
	if addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := serverapp.New(ctx, serverapp.Options{Config: cfg, Logger: logger})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	defer app.Close()

	logger.Info("starting",
		zap.String("store", cfg.Store.Driver),
		zap.String("llm", cfg.LLM.Provider),
		zap.Int("practices", len(cfg.Practices)))

	if !skipWarm {
		if err := app.Warm(ctx); err != nil {
			logger.Warn("heatmap warm-up failed", zap.Error(err))
		}
	}
	return serverapp.Run(ctx, cfg.Server.Addr, app.Handler, logger)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
