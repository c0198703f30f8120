package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkoutsias/stashfs/internal/logger"
	"github.com/pkoutsias/stashfs/pkg/config"
	"github.com/pkoutsias/stashfs/pkg/service"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure logger
	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	logger.SetLevel(level)
	if err := configureLogOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("StashFS - Multi-User File Storage Core")
	logger.Info("Log level set to: %s", level)
	logger.Info("Metadata store: %s", cfg.Metadata.Type)
	logger.Info("Content store: %s", cfg.Content.Type)

	metadataStore, err := config.CreateMetadataStore(ctx, &cfg.Metadata)
	if err != nil {
		log.Fatalf("Failed to create metadata store: %v", err)
	}
	defer func() {
		if err := metadataStore.Close(); err != nil {
			logger.Error("Failed to close metadata store: %v", err)
		}
	}()

	contentStore, err := config.CreateContentStore(ctx, &cfg.Content)
	if err != nil {
		log.Fatalf("Failed to create content store: %v", err)
	}

	svc := service.New(service.Options{
		Store:    metadataStore,
		Blobs:    contentStore,
		Notifier: config.CreateNotifier(&cfg.Index),
	})

	// Make sure the default quota tier exists before any user shows up,
	// which also verifies the metadata store is writable.
	classes, err := svc.UserClasses(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize user classes: %v", err)
	}
	for _, class := range classes {
		logger.Info("User class: %s (quota %d bytes)", class.Name, class.Quota)
	}

	logger.Info("Storage core ready")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received signal %v, shutting down", sig)
	cancel()
}

// configureLogOutput points the logger at stdout, stderr or a file path.
func configureLogOutput(output string) error {
	switch output {
	case "", "stdout":
		return nil
	case "stderr":
		logger.SetOutput(os.Stderr)
		return nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", output, err)
		}
		logger.SetOutput(f)
		return nil
	}
}
