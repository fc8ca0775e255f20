package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-docqa/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-docqa/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  `Serves the document and question API. When watch.dir (WATCH_DIR) is set, PDFs dropped into that directory are ingested as well.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withApp(ctx, func(ctx context.Context, a *app) error {
		server := http.NewServer(serverConfig(a.cfg), http.Dependencies{
			Documents:     a.documents,
			Ask:           a.ask,
			RuntimeConfig: a.runtime.Config(),
			Checks:        a.checks,
			Logger:        a.logger,
		})

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Start(ctx)
		})
		if a.cfg.Watch.Dir != "" {
			g.Go(func() error {
				return watchDir(ctx, a, a.cfg.Watch.Dir)
			})
		}

		err := g.Wait()
		a.logger.Info("shutdown complete")
		return err
	})
}

// serverConfig maps application config onto the HTTP server config
func serverConfig(cfg *config.Config) http.Config {
	serverCfg := http.DefaultConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.Version = version
	serverCfg.MaxUploadBytes = int64(cfg.Server.MaxUploadMB) << 20
	serverCfg.AllowedOrigins = cfg.Server.AllowedOrigins

	// Every model call of one answer shares GenerationTimeout
	if t := cfg.Answer.GenerationTimeout + 30*time.Second; t > serverCfg.WriteTimeout {
		serverCfg.WriteTimeout = t
	}
	return serverCfg
}
