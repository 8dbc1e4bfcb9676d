// Package watch extracts ThermoML documents as they land in the archive
// directory.
package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gopkg.in/fsnotify.v1"

	"github.com/coolbeans/thermoml/pkg/bulk"
)

// Handler receives the outcome of each extraction. Extraction failures are
// reported through FileResult.Err. A Watcher never calls its handler
// concurrently.
type Handler func(result bulk.FileResult)

// Config holds watcher settings.
type Config struct {
	// Directory is the archive directory to watch.
	Directory string

	// JournalPrefix restricts extraction to matching file names.
	JournalPrefix string

	// Debounce is how long a file must stay quiet before it is extracted.
	Debounce time.Duration
}

// Watcher runs the per-file extraction pipeline whenever an XML document
// in the archive directory is created or rewritten.
type Watcher struct {
	config  Config
	handler Handler
	logger  *slog.Logger

	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	inFlight sync.WaitGroup

	// handlerMu serializes handler calls across debounce timers.
	handlerMu sync.Mutex

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// New creates a Watcher. A nil logger discards all output.
func New(config Config, handler Handler, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		config:  config,
		handler: handler,
		logger:  logger,
		timers:  make(map[string]*time.Timer),
	}
}

// Start begins watching the archive directory.
func (w *Watcher) Start() error {
	if w.config.Directory == "" {
		return errors.New("no directory configured for watching")
	}
	if w.handler == nil {
		return errors.New("no handler configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(w.config.Directory); err != nil {
		watcher.Close()
		return fmt.Errorf("watching directory %s: %w", w.config.Directory, err)
	}

	w.watcher = watcher
	w.stopChan = make(chan struct{})
	go w.watchLoop()

	w.logger.Info("watching archive",
		"directory", w.config.Directory,
		"prefix", w.config.JournalPrefix,
		"debounce", w.config.Debounce)
	return nil
}

// Stop stops watching, drops pending extractions, and waits for running
// ones to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	if w.stopChan != nil {
		close(w.stopChan)
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.inFlight.Wait()
}

// watchLoop handles file system events.
func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !bulk.MatchesJournal(event.Name, w.config.JournalPrefix) {
				continue
			}

			switch {
			case event.Op&fsnotify.Create == fsnotify.Create,
				event.Op&fsnotify.Write == fsnotify.Write:
				w.schedule(event.Name)

			case event.Op&fsnotify.Remove == fsnotify.Remove,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				w.cancel(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.config.Debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.config.Debounce, func() {
		w.fire(path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	delete(w.timers, path)
	w.inFlight.Add(1)
	w.mu.Unlock()
	defer w.inFlight.Done()

	result := bulk.ProcessFile(path)
	if result.Err != nil {
		w.logger.Warn("extraction failed", "file", path, "error", result.Err)
	} else {
		w.logger.Info("extracted document",
			"file", path,
			"records", len(result.Records),
			"duration", result.Duration)
	}
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.handler(result)
}
