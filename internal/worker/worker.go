package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driving"
)

// ErrStopped is returned by Submit once the worker is not running
var ErrStopped = errors.New("worker stopped")

// Job is one file waiting to be ingested
type Job struct {
	Path       string
	EnqueuedAt time.Time
}

// Worker ingests files from an in-process queue.
// Each file is uploaded through the DocumentService, which extracts,
// chunks and indexes it.
type Worker struct {
	documents driving.DocumentService
	logger    *slog.Logger

	// Configuration
	concurrency int
	jobs        chan Job

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	processed atomic.Int64
	failed    atomic.Int64
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	Documents   driving.DocumentService
	Logger      *slog.Logger
	Concurrency int // Number of concurrent ingestions
	QueueSize   int // Jobs buffered before Submit blocks
}

// NewWorker creates a new ingestion worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	return &Worker{
		documents:   cfg.Documents,
		logger:      logger.With("component", "worker"),
		concurrency: concurrency,
		jobs:        make(chan Job, queueSize),
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting", "concurrency", w.concurrency, "queue_size", cap(w.jobs))

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker.
// In-flight ingestions finish; queued jobs are left unprocessed.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	doneCh := w.doneCh
	w.mu.Unlock()

	<-doneCh

	if n := len(w.jobs); n > 0 {
		w.logger.Warn("worker stopped with queued jobs", "queued", n)
	}
	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	w.mu.RLock()
	doneCh := w.doneCh
	w.mu.RUnlock()
	if doneCh != nil {
		<-doneCh
	}
}

// Submit queues a file for ingestion.
// It blocks while the queue is full.
func (w *Worker) Submit(ctx context.Context, path string) error {
	w.mu.RLock()
	running, stopCh := w.running, w.stopCh
	w.mu.RUnlock()
	if !running {
		return ErrStopped
	}

	select {
	case w.jobs <- Job{Path: path, EnqueuedAt: time.Now()}:
		return nil
	case <-stopCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume submits every path received until the channel closes or ctx is done.
func (w *Worker) Consume(ctx context.Context, paths <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path, ok := <-paths:
			if !ok {
				return nil
			}
			if err := w.Submit(ctx, path); err != nil {
				return err
			}
		}
	}
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Debug("worker goroutine started")

	for {
		// Stop takes priority over queued work
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			logger.Debug("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Debug("worker stop signal received")
			return
		case job := <-w.jobs:
			w.processJob(ctx, job, logger)
		}
	}
}

// processJob ingests a single file.
func (w *Worker) processJob(ctx context.Context, job Job, logger *slog.Logger) {
	logger = logger.With("path", job.Path)
	logger.Info("ingesting file", "waited", time.Since(job.EnqueuedAt))

	startTime := time.Now()
	docID, err := w.ingest(ctx, job.Path)
	duration := time.Since(startTime)

	if err != nil {
		w.failed.Add(1)
		logger.Error("ingestion failed", "duration", duration, "error", err)
		return
	}

	w.processed.Add(1)
	logger.Info("file ingested", "document_id", docID, "duration", duration)
}

func (w *Worker) ingest(ctx context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := w.documents.Upload(ctx, driving.UploadRequest{
		Filename: filepath.Base(path),
		Content:  content,
	})
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}

// Health reports the worker's state.
type Health struct {
	Running   bool  `json:"running"`
	Queued    int   `json:"queued"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Health returns the health status of the worker.
func (w *Worker) Health() Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	return Health{
		Running:   running,
		Queued:    len(w.jobs),
		Processed: w.processed.Load(),
		Failed:    w.failed.Load(),
	}
}
