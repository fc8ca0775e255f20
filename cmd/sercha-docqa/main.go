package main

// @title           Sercha DocQA API
// @version         1.0
// @description     Upload PDF documents and ask questions about them. Answers cite the passages they were drawn from.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8000
// @BasePath  /api/v1
// @schemes   http https

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docqa/internal/config"
	"github.com/custodia-labs/sercha-docqa/internal/logging"
)

var version = "dev"

// configPath is the persistent --config flag
var configPath string

var rootCmd = &cobra.Command{
	Use:           "sercha-docqa",
	Short:         "Ask questions about your PDF documents",
	Long:          `Sercha DocQA indexes uploaded PDF documents and answers questions about them with a language model, citing the pages it used.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file (default $DOCQA_CONFIG or ./config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// loadConfig reads configuration and installs the default logger
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("configure logging: %w", err)
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// withApp loads configuration, wires the services and runs fn
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			logger.Warn("error closing backends", "error", err)
		}
	}()
	return fn(ctx, a)
}
