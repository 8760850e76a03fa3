package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/andeslee444/Project-H/internal/cleanup"
	"github.com/andeslee444/Project-H/internal/config"
	"github.com/andeslee444/Project-H/internal/exitcodes"
	"github.com/andeslee444/Project-H/internal/history"
	"github.com/andeslee444/Project-H/internal/logging"
	"github.com/andeslee444/Project-H/internal/metrics"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	dir := flag.String("dir", "", "Project directory to clean (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Report what would be removed without removing anything")
	keepSelf := flag.Bool("keep-self", false, "Do not remove the executable after cleanup")
	flag.Parse()

	// Load configuration: built-in manifest unless a config file is given
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			logging.New().Printf("ERROR: Failed to load config: %v", err)
			os.Exit(exitcodes.InvalidConfig)
		}
	} else {
		cfg = config.Default()
	}
	if *dir != "" {
		cfg.BaseDir = *dir
	}

	// Initialize logger
	logger := logging.NewWithConfig(cfg)

	logger.Printf("Cleanup starting, base_dir: %s", cfg.BaseDir)
	if *dryRun {
		logger.Println("DRY RUN MODE: No files will be removed")
	}

	// Initialize metrics (Prometheus)
	metrics.Init()
	if cfg.Prometheus.Port > 0 {
		addr := cfg.PrometheusAddress()
		logger.Printf("Starting Prometheus metrics on %s", addr)
		metrics.StartServer(addr, logger)
	}

	// Initialize database for removal history
	var db *history.RemovalDB
	if cfg.DatabasePath != "" {
		logger.Printf("Opening removal database: %s", cfg.DatabasePath)
		db, err = history.NewRemovalDB(cfg.DatabasePath)
		if err != nil {
			logger.Printf("ERROR: Failed to open database: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: Failed to close database: %v", err)
			}
		}()
	}

	// Create context for graceful shutdown of the metrics server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Self-removal targets the running executable. The cleaner handles
	// dry-run itself so the pass is still announced without removing.
	selfPath := ""
	if cfg.RemoveSelf && !*keepSelf {
		selfPath, err = os.Executable()
		if err != nil {
			logger.Printf("WARN: Cannot resolve own executable, skipping self-removal: %v", err)
			selfPath = ""
		}
	}

	cleaner := cleanup.NewCleaner(logger, *dryRun, db)
	summary, err := cleaner.Run(cfg, selfPath)
	if err != nil {
		logger.Printf("ERROR: Cleanup failed: %v", err)
		os.Exit(exitcodes.RuntimeError)
	}

	if cfg.Prometheus.Port > 0 {
		metrics.Shutdown(ctx, logger)
	}

	// Per-item failures are reported, not fatal: exit 0 regardless
	logger.Printf("Done: removed=%d skipped=%d errors=%d bytes_freed=%d",
		summary.Removed, summary.Skipped, summary.Errors, summary.BytesFreed)
}
