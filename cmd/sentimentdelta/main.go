package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/app"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/common"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/server"
)

var (
	configFile   = flag.String("config", "", "Configuration file path")
	configFileC  = flag.String("c", "", "Configuration file path (shorthand)")
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("SentimentDelta version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	configPath := *configFile
	if configPath == "" {
		configPath = *configFileC
	}
	// Auto-discover config file if not specified
	if configPath == "" {
		if _, err := os.Stat("sentimentdelta.toml"); err == nil {
			configPath = "sentimentdelta.toml"
		} else if _, err := os.Stat("deployments/local/sentimentdelta.toml"); err == nil {
			configPath = "deployments/local/sentimentdelta.toml"
		}
	}

	// Startup sequence: defaults -> file -> env -> CLI flags, then logger.
	config, err := common.LoadFromFile(configPath)
	if err != nil {
		arbor.NewLogger().Fatal().Str("path", configPath).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	common.ApplyFlagOverrides(config, *serverPort, *serverHost)

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("config_file", configPath).
		Str("environment", config.Environment).
		Str("badger_path", config.Storage.Badger.Path).
		Int("port", config.Server.Port).
		Msg("Application configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}

	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}

	srv := server.New(application)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
			os.Exit(1)
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Application shutdown failed")
	}

	logger.Info().Msg("Stopped")
}
