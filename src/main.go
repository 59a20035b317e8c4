package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/contre95/fswatcher/src/features/config"
	"github.com/contre95/fswatcher/src/features/hosting"
	"github.com/contre95/fswatcher/src/features/logging"
	"github.com/contre95/fswatcher/src/features/watching"
	"github.com/contre95/fswatcher/src/infra/watcher"
	"github.com/contre95/fswatcher/src/infra/watchers"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fswatcher",
	Short: "Watch a folder and react to file changes",
	Long: `fswatcher polls a folder tree, compares snapshots and hands every created,
modified or deleted file to the enabled watchers: text filler, JSON webhook
forwarding, JPEG optimization, zip extraction and deleted-file replacement.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgManager, err := loadConfig()
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfgManager)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the configuration file")
	rootCmd.AddCommand(snapshotCmd, configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("fswatcher: %v", err)
	}
}

// loadConfig loads the configuration and installs the default logger.
func loadConfig() (*config.Manager, error) {
	cfgManager, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)
	return cfgManager, nil
}

func run(ctx context.Context, cfgManager *config.Manager) error {
	cfg := cfgManager.Get()
	fs := afero.NewOsFs()

	fetchClient, postClient := watchers.NewClients(cfg)
	registry := watchers.Registry(cfg, fs, fetchClient, postClient)
	if len(registry) == 0 {
		slog.Warn("No watchers enabled, changes will only be logged")
	}
	manager := watching.NewManager(cfg.HandlerTimeout(), registry...)

	// Optional fsnotify trigger, polling stays the source of truth
	var trigger watching.Trigger
	if cfg.Notify.Enabled {
		notifier, err := watcher.NewWatcher(cfg.NotifyDebounce())
		if err != nil {
			slog.Error("Failed to start file notifications, polling only", "error", err)
		} else {
			notifier.Start(ctx)
			defer notifier.Stop()
			trigger = notifier
		}
	}

	service := watching.NewService(fs, manager, trigger, cfgManager)

	// Create and start the HTTP server
	var server *hosting.Server
	if cfg.Server.Enabled {
		server = hosting.NewServer(cfgManager, service)
		go func() {
			if err := server.Start(); err != nil {
				slog.Error("Status server stopped", "error", err)
			}
		}()
	}

	slog.Info("Press Ctrl+C to shut down.", "watchers", len(registry))
	err := service.Run(ctx)

	if server != nil {
		if shutdownErr := server.Shutdown(); shutdownErr != nil {
			slog.Error("Failed to shutdown server", "error", shutdownErr)
		}
	}
	if err != nil {
		return fmt.Errorf("polling loop failed: %w", err)
	}
	slog.Info("Gracefully shut down.")
	return nil
}
