package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/restan/tethbox/internal/config"
	"github.com/restan/tethbox/internal/db"
	"github.com/restan/tethbox/internal/logging"
	"github.com/restan/tethbox/internal/metrics"
	"github.com/restan/tethbox/internal/services"
	"github.com/restan/tethbox/internal/session"
	"github.com/restan/tethbox/internal/tethbox"
	"github.com/restan/tethbox/internal/tui"
	"github.com/restan/tethbox/internal/version"
	"go.uber.org/zap"
)

func main() {
	configPathFlag := flag.String("config", "", "Path to JSON or YAML configuration file (default: ~/.config/tethbox/config.json)")
	baseURLFlag := flag.String("base-url", "", "Mailbox server URL (overrides config and TETHBOX_BASE_URL)")
	exportFlag := flag.String("export-archive", "", "Write every archived message to this mbox file and exit")
	versionFlag := flag.Bool("version", false, "Show version information and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n\n", version.GetVersionString())
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                    # Run with default configuration\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --base-url https://tethbox.example # Use another mailbox server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --export-archive saved.mbox         # Export the local archive\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  TETHBOX_CONFIG        Override default config file path\n")
		fmt.Fprintf(os.Stderr, "  TETHBOX_BASE_URL      Mailbox server URL\n")
		fmt.Fprintf(os.Stderr, "  TETHBOX_ROUTE_STYLE   legacy or account\n")
		fmt.Fprintf(os.Stderr, "  TETHBOX_METRICS_ADDR  Serve Prometheus metrics on this address\n\n")
		fmt.Fprintf(os.Stderr, "Variables may also be set in a .env file in the working directory.\n")
	}

	flag.Parse()

	if *versionFlag {
		fmt.Println(version.GetDetailedVersionString())
		return
	}

	config.LoadDotEnv()

	configPath := getConfigPath(*configPathFlag)
	cfg, err := loadConfig(configPath, *baseURLFlag)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogFile, cfg.Debug)
	if err != nil {
		log.Printf("Warning: could not open log file: %v", err)
		logger = zap.NewNop()
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	archiveStore, archiveSvc := openArchive(ctx, cfg, logger)
	if archiveStore != nil {
		defer func() { _ = archiveStore.Close() }()
	}

	if *exportFlag != "" {
		if archiveSvc == nil {
			log.Fatal("Archive is disabled; enable archive.enabled in the config to export it")
		}
		n, err := archiveSvc.ExportMboxFile(ctx, expandPath(*exportFlag), "")
		if err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		fmt.Printf("Exported %d messages to %s\n", n, *exportFlag)
		return
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Warn("metrics endpoint stopped", zap.String("addr", cfg.MetricsAddr), zap.Error(err))
			}
		}()
	}

	client, err := tethbox.NewClient(cfg.BaseURL, tethbox.Options{
		RouteStyle: tethbox.RouteStyle(cfg.RouteStyle),
		Timeout:    cfg.GetRequestTimeout(),
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("Could not create mailbox client: %v", err)
	}
	ctrl := session.NewController(client, session.Options{
		Logger:      logger,
		PollTimeout: cfg.GetRequestTimeout(),
	})
	defer ctrl.Close()

	svc := tui.Services{
		Attachments: services.NewAttachmentService(ctrl, cfg, logger),
		Links:       services.NewLinkService(),
		Clipboard:   services.NewClipboardService(),
		Theme:       services.NewThemeService(cfg.GetThemeDir()),
	}
	// A nil *ArchiveServiceImpl must not become a non-nil interface
	if archiveSvc != nil {
		svc.Archive = archiveSvc
	}

	logger.Info("starting", zap.String("version", version.GetVersionString()), zap.String("base_url", cfg.BaseURL))

	app := tui.NewApp(cfg, ctrl, svc, logger)
	app.SetConfigPath(configPath)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig applies config file, then environment, then the CLI override,
// and validates the result
func loadConfig(path, baseURL string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openArchive opens the SQLite archive when enabled. Failure disables the
// archive instead of stopping the client.
func openArchive(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*db.Store, *services.ArchiveServiceImpl) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	path := cfg.GetArchivePath()
	if path == "" {
		logger.Warn("archive disabled: no archive path")
		return nil, nil
	}
	store, err := db.Open(ctx, path)
	if err != nil {
		logger.Warn("archive disabled", zap.String("path", path), zap.Error(err))
		return nil, nil
	}
	return store, services.NewArchiveService(db.NewArchiveStore(store), logger)
}

// getConfigPath returns the configuration file path using the following priority:
// 1. CLI flag
// 2. Environment variable TETHBOX_CONFIG
// 3. Default path ~/.config/tethbox/config.json, or config.yaml when only that exists
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return expandPath(flagValue)
	}

	if envPath := os.Getenv("TETHBOX_CONFIG"); envPath != "" {
		return expandPath(envPath)
	}

	def := config.DefaultConfigPath()
	if def == "" {
		return ""
	}
	if _, err := os.Stat(def); errors.Is(err, os.ErrNotExist) {
		yamlPath := strings.TrimSuffix(def, filepath.Ext(def)) + ".yaml"
		if _, err := os.Stat(yamlPath); err == nil {
			return yamlPath
		}
	}
	return def
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return home
	}

	return filepath.Join(home, path[2:])
}
