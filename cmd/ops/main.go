package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Leumas-Tech/leumas-education/internal/config"
	"github.com/Leumas-Tech/leumas-education/internal/ops"
	"github.com/Leumas-Tech/leumas-education/internal/serverapp"
	"github.com/Leumas-Tech/leumas-education/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:          "leumas-ops",
	Short:        "Maintenance commands for the practice record store",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export every record of the configured practices to a tar.gz archive",
	RunE:  runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore [archive]",
	Short: "Import records from a backup archive into the configured store",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

var drillCmd = &cobra.Command{
	Use:   "drill",
	Short: "Back up, restore into a scratch store and compare digests",
	RunE:  runDrill,
}

var todayCmd = &cobra.Command{
	Use:   "today [practice]",
	Short: "Print today's task for a practice, creating it if needed",
	Args:  cobra.ExactArgs(1),
	RunE:  runToday,
}

var nextCmd = &cobra.Command{
	Use:   "next [practice]",
	Short: "Create the next task of today for a practice",
	Args:  cobra.ExactArgs(1),
	RunE:  runNext,
}

var grassCmd = &cobra.Command{
	Use:   "grass [practice]",
	Short: "Print the heatmap and streak of a practice",
	Args:  cobra.ExactArgs(1),
	RunE:  runGrass,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the heatmap records of every configured practice",
	RunE:  runRefresh,
}

var (
	backupOut string
	drillDir  string
	better    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "leumas.yml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	backupCmd.Flags().StringVarP(&backupOut, "out", "o", "", "output archive path (.tar.gz)")
	drillCmd.Flags().StringVar(&drillDir, "work-dir", os.TempDir(), "directory for the drill archive")
	nextCmd.Flags().BoolVar(&better, "better", false, "ask for a harder variant")

	rootCmd.AddCommand(backupCmd, restoreCmd, drillCmd, todayCmd, nextCmd, grassCmd, refreshCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	return store.Open(ctx, store.Config{Driver: cfg.Store.Driver, DSN: cfg.Store.DSN, DataDir: cfg.DataDir})
}

func openApp(ctx context.Context) (*serverapp.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return serverapp.New(ctx, serverapp.Options{Config: cfg, Logger: logger})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func stamp() string {
	return time.Now().UTC().Format("20060102T150405Z")
}

func writeArchive(ctx context.Context, st store.Store, colls []string, path string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := ops.Export(ctx, st, colls, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func runBackup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	out := backupOut
	if out == "" {
		out = filepath.Join("backups", "leumas-"+stamp()+".tar.gz")
	}
	n, err := writeArchive(ctx, st, ops.Collections(cfg.Slugs()), out)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%d records)\n", out, n)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := ops.Import(ctx, st, f)
	if err != nil {
		return err
	}
	fmt.Printf("restored %d records\n", n)
	return nil
}

func runDrill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	colls := ops.Collections(cfg.Slugs())
	archive := filepath.Join(drillDir, "leumas-drill-"+stamp()+".tar.gz")
	if _, err := writeArchive(ctx, st, colls, archive); err != nil {
		return err
	}

	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()
	scratch := store.NewMemoryStore()
	if _, err := ops.Import(ctx, scratch, f); err != nil {
		return err
	}

	srcDigest, err := ops.Digest(ctx, st, colls)
	if err != nil {
		return err
	}
	restoredDigest, err := ops.Digest(ctx, scratch, colls)
	if err != nil {
		return err
	}
	if srcDigest != restoredDigest {
		return fmt.Errorf("digest mismatch after restore: src=%s restored=%s", srcDigest, restoredDigest)
	}

	fmt.Println("backup:", archive)
	fmt.Println("digest:", srcDigest)
	return nil
}

func runToday(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	t, err := app.Tasks.GetOrCreateToday(cmd.Context(), args[0], true)
	if err != nil {
		return err
	}
	return printJSON(t)
}

func runNext(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	e, err := app.Tasks.CreateNext(cmd.Context(), args[0], better)
	if err != nil {
		return err
	}
	return printJSON(e)
}

func runGrass(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	v, err := app.Grass.Read(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(v.Stats)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Warm(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("refreshed %d practices\n", len(app.Config.Practices))
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
