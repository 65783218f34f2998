// Package watcher ingests files as they appear in a directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driving"
	"github.com/custodia-labs/bpa/internal/logger"
)

// DefaultDebounce is how long a path must stay quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// DefaultExtensions are the file types ingested when none are configured.
var DefaultExtensions = []string{".pdf", ".html", ".htm", ".md", ".markdown", ".txt", ".docx", ".csv"}

// Result reports one ingestion attempt.
type Result struct {
	Path   string
	Record *domain.DocumentRecord
	Err    error
}

// Config configures a Watcher.
type Config struct {
	// Dir is the watched directory. Subdirectories are not watched.
	Dir string

	// Options are applied to every ingested file. Title is derived per file.
	Options domain.IngestOptions

	// Extensions limits ingestion to these lower-case suffixes.
	Extensions []string

	Debounce time.Duration
}

// Watcher coalesces create and write events per path and ingests each file
// once it stops changing.
type Watcher struct {
	ingest driving.IngestService
	cfg    Config

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// New creates a watcher.
func New(ingest driving.IngestService, cfg Config) (*Watcher, error) {
	if ingest == nil {
		return nil, errors.New("ingest service not configured")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, cfg.Dir)
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Watcher{
		ingest:  ingest,
		cfg:     cfg,
		pending: make(map[string]*time.Timer),
	}, nil
}

// Run watches until ctx is done, sending one Result per ingestion on results.
// results may be nil.
func (w *Watcher) Run(ctx context.Context, results chan<- Result) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.cfg.Dir, err)
	}
	logger.Info("Watching %s", w.cfg.Dir)

	defer func() {
		w.stopPending()
		w.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.accepts(event) {
				continue
			}
			w.schedule(ctx, event.Name, results)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) accepts(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range w.cfg.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// schedule (re)starts the quiet-period timer for path.
func (w *Watcher) schedule(ctx context.Context, path string, results chan<- Result) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		w.wg.Done()
	}

	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.cfg.Debounce, func() {
		defer w.wg.Done()

		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		res := w.ingestFile(ctx, path)
		if results != nil {
			select {
			case results <- res:
			case <-ctx.Done():
			}
		}
	})
	w.pending[path] = timer
}

func (w *Watcher) ingestFile(ctx context.Context, path string) Result {
	opts := w.cfg.Options
	opts.Title = ""

	rec, err := w.ingest.IngestFile(ctx, path, opts)
	if err != nil {
		logger.Warn("Failed to ingest %s: %v", path, err)
		return Result{Path: path, Err: err}
	}
	logger.Info("Ingested %s as %s (%d chunks)", path, rec.ID, rec.ChunkCount)
	return Result{Path: path, Record: rec}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		// A stopped timer never runs its callback.
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}
