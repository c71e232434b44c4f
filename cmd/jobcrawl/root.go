package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/logger"
	"jobcrawl-engine/internal/poll"
	"jobcrawl-engine/internal/secrets"
	"jobcrawl-engine/internal/store"
)

const defaultCfgPath = "config/config.yml"

var (
	cfgFile string
	dataDir string
	debug   bool

	rootCmd = &cobra.Command{
		Use:          "jobcrawl",
		Short:        "Crawl recent job postings from Saramin",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <data-dir>/config.yml, created on first run)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default $"+config.EnvDataDir+" or .)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(crawlCommand())
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(exportCommand())
	rootCmd.AddCommand(jobsCommand())
}

// app is everything a subcommand needs after bootstrap.
type app struct {
	cfg     config.Config
	cfgPath string
	log     logger.Interface
	store   store.Store
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = a.log.Sync()
}

func loadApp(ctx context.Context) (*app, error) {
	dir := dataDir
	if dir == "" {
		dir = os.Getenv(config.EnvDataDir)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	if err := config.LoadDotEnv(filepath.Join(dir, ".env"), ".env"); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path := cfgFile
	if path == "" {
		var err error
		path, err = config.EnsureUserConfig(dir, defaultCfgPath)
		if err != nil {
			return nil, fmt.Errorf("config bootstrap failed: %w", err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if dataDir != "" || cfg.App.DataDir == "" || cfg.App.DataDir == "." {
		cfg.App.DataDir = dir
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	config.OverlayEnv(&cfg)
	secrets.ResolveStorePassword(&cfg)

	cfg, vr := config.NormalizeAndValidate(cfg)
	if err := vr.Err(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	for _, w := range vr.Warnings {
		log.Warn("config warning", "warning", w)
	}

	st, err := store.OpenStore(ctx, store.Options{
		Driver:    cfg.Store.Driver,
		Path:      cfg.StorePath(),
		DSN:       cfg.Store.DSN,
		Password:  cfg.Store.Password,
		BatchSize: cfg.Store.BatchSize,
	})
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	log.Debug("app loaded", "config", path, "data_dir", cfg.App.DataDir, "store", cfg.Store.Driver)

	return &app{cfg: cfg, cfgPath: path, log: log, store: st}, nil
}

// newRunner builds a crawl session runner. withExport also wires the
// configured export target.
func (a *app) newRunner(ctx context.Context, withExport bool) (*poll.Runner, func(), error) {
	fetcher, closeFetcher, err := poll.BuildFetcher(ctx, a.cfg, a.log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = closeFetcher() }

	r := &poll.Runner{
		Cfg:      a.cfg,
		Store:    a.store,
		Fetcher:  fetcher,
		LockPath: filepath.Join(a.cfg.App.DataDir, "crawl.lock"),
		Log:      a.log.WithComponent("poll"),
	}

	if withExport || a.cfg.Export.AfterCrawl {
		exp, closeExp, err := poll.BuildExporter(ctx, a.cfg, a.log.WithComponent("export"))
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		r.Exporter = exp
		prev := cleanup
		cleanup = func() { prev(); _ = closeExp() }
	}
	return r, cleanup, nil
}
