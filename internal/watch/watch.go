package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/insightloom/internal/table"
)

// Handler processes one newly arrived file.
type Handler func(ctx context.Context, path string) error

// Options tunes a Watcher.
type Options struct {
	// Settle is the wait between the create event and the handler call, so writers
	// can finish copying the file.
	Settle time.Duration
	// Accept filters paths; nil accepts the formats the table loader reads.
	Accept func(path string) bool
}

// Watcher feeds files created in a directory to a Handler, one at a time, at most
// once per path.
type Watcher struct {
	dir     string
	handler Handler
	opt     Options

	mu   sync.Mutex
	seen map[string]struct{}

	ready func() // called once the directory is watched
}

// New returns a Watcher for dir.
func New(dir string, handler Handler, opt Options) *Watcher {
	if opt.Accept == nil {
		opt.Accept = table.SupportedExt
	}
	return &Watcher{dir: dir, handler: handler, opt: opt, seen: make(map[string]struct{})}
}

// Run blocks until ctx is done. Handler errors are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	log := zerolog.Ctx(ctx)
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	log.Info().Str("dir", w.dir).Msg("watching for new files")
	if w.ready != nil {
		w.ready()
	}

	queue := make(chan string, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.consume(ctx, queue)
	}()
	defer func() {
		close(queue)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) {
				continue
			}
			if path, ok := w.claim(ev.Name); ok {
				log.Debug().Str("path", path).Msg("new file queued")
				select {
				case queue <- path:
				case <-ctx.Done():
					return nil
				}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error")
		}
	}
}

// claim marks path as seen and reports whether it should be processed.
func (w *Watcher) claim(name string) (string, bool) {
	if !w.opt.Accept(name) {
		return "", false
	}
	path := filepath.Clean(name)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, dup := w.seen[path]; dup {
		return "", false
	}
	w.seen[path] = struct{}{}
	return path, true
}

func (w *Watcher) consume(ctx context.Context, queue <-chan string) {
	log := zerolog.Ctx(ctx)
	for path := range queue {
		if w.opt.Settle > 0 {
			t := time.NewTimer(w.opt.Settle)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		if ctx.Err() != nil {
			return
		}
		if err := w.handler(ctx, path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("processing failed")
			continue
		}
		log.Info().Str("path", path).Msg("processed")
	}
}
