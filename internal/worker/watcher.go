package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must go without writes before it is emitted
const DefaultSettle = 2 * time.Second

// WatcherConfig holds configuration for the directory watcher.
type WatcherConfig struct {
	Extensions      []string // Lower-case, with dot; defaults to ".pdf"
	Settle          time.Duration
	IncludeExisting bool // Emit files already in the directory on start
	Logger          *slog.Logger
}

// Watcher emits files created or rewritten in a directory once they
// stop changing.
type Watcher struct {
	watcher         *fsnotify.Watcher
	extensions      []string
	settle          time.Duration
	includeExisting bool
	logger          *slog.Logger
}

// NewWatcher creates a new directory watcher.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	extensions := cfg.Extensions
	if len(extensions) == 0 {
		extensions = []string{".pdf"}
	}
	settle := cfg.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		watcher:         fw,
		extensions:      extensions,
		settle:          settle,
		includeExisting: cfg.IncludeExisting,
		logger:          logger.With("component", "watcher"),
	}, nil
}

// Watch starts monitoring dir. The returned channel is closed when ctx is
// done or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan string, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	var existing []string
	if w.includeExisting {
		var err error
		existing, err = w.scan(dir)
		if err != nil {
			return nil, err
		}
	}

	events := make(chan string, 100)
	go w.run(ctx, existing, events)

	w.logger.Info("watching directory", "dir", dir, "extensions", strings.Join(w.extensions, ","))
	return events, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context, existing []string, events chan<- string) {
	defer close(events)

	for _, path := range existing {
		select {
		case events <- path:
		case <-ctx.Done():
			return
		}
	}

	// Last event time per path, emitted once quiet for the settle period
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.settle / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.isWatchedExtension(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				pending[event.Name] = time.Now()
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				delete(pending, event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)

		case now := <-ticker.C:
			for _, path := range settled(pending, now, w.settle) {
				delete(pending, path)
				select {
				case events <- path:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// settled returns the pending paths quiet since before now-settle, sorted
func settled(pending map[string]time.Time, now time.Time, settle time.Duration) []string {
	var out []string
	for path, last := range pending {
		if now.Sub(last) >= settle {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !w.isWatchedExtension(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

func (w *Watcher) isWatchedExtension(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
