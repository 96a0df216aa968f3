package index

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SeedWatcher reseeds the index when files in the seed directory change.
// Events are debounced so a burst of writes triggers one reseed.
type SeedWatcher struct {
	dir      string
	index    *Index
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSeedWatcher watches dir for seed-file changes against idx.
func NewSeedWatcher(dir string, idx *Index) (*SeedWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create seed watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch seed directory: %w", err)
	}

	return &SeedWatcher{
		dir:      dir,
		index:    idx,
		watcher:  watcher,
		debounce: 500 * time.Millisecond,
	}, nil
}

// Start launches the event and debounce loops.
func (w *SeedWatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.wg.Add(2)
	go w.eventLoop(ctx)
	go w.debounceLoop(ctx)
}

// Stop shuts the watcher down and waits for in-flight reseeding.
func (w *SeedWatcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	return w.watcher.Close()
}

func (w *SeedWatcher) eventLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.mu.Lock()
				w.pending = true
				w.mu.Unlock()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[index] seed watcher error: %v", err)
		}
	}
}

func (w *SeedWatcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			dirty := w.pending
			w.pending = false
			w.mu.Unlock()
			if !dirty {
				continue
			}

			log.Printf("[index] seed directory changed, reseeding")
			if err := w.index.Seed(ctx, w.dir); err != nil {
				log.Printf("[index] reseed failed: %v", err)
			}
		}
	}
}
