package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docqa/internal/worker"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest PDFs dropped into a directory",
	Long:  `Watches a directory and uploads every PDF written to it once the file stops changing. Defaults to watch.dir (WATCH_DIR).`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withApp(ctx, func(ctx context.Context, a *app) error {
		dir := a.cfg.Watch.Dir
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			return errors.New("no directory given and watch.dir is not set")
		}
		return watchDir(ctx, a, dir)
	})
}

// watchDir feeds settled files from dir into an ingestion worker until ctx is done
func watchDir(ctx context.Context, a *app, dir string) error {
	watcher, err := worker.NewWatcher(worker.WatcherConfig{
		Settle:          a.cfg.Watch.Settle,
		IncludeExisting: a.cfg.Watch.IncludeExisting,
		Logger:          a.logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	paths, err := watcher.Watch(ctx, dir)
	if err != nil {
		return err
	}

	w := worker.NewWorker(worker.WorkerConfig{
		Documents:   a.documents,
		Logger:      a.logger,
		Concurrency: a.cfg.Watch.Concurrency,
	})
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer w.Stop()

	a.logger.Info("watching directory", "dir", dir)
	err = w.Consume(ctx, paths)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, worker.ErrStopped) {
		h := w.Health()
		a.logger.Info("watch stopped", "processed", h.Processed, "failed", h.Failed)
		return nil
	}
	return err
}
