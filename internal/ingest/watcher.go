package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/dococr/dococr/constants"
	"github.com/dococr/dococr/internal/logger"
)

// Watcher reacts to live filesystem events under the input root. New files
// are submitted directly; new directories are rescanned after a settle delay
// so an in-progress bulk copy can finish first.
type Watcher struct {
	pipe    *Pipeline
	scanner *Scanner
	settle  time.Duration
	log     zerolog.Logger

	w  *fsnotify.Watcher
	wg sync.WaitGroup
}

func NewWatcher(pipe *Pipeline, scanner *Scanner, settle time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if settle <= 0 {
		settle = 2 * time.Second
	}
	return &Watcher{
		pipe:    pipe,
		scanner: scanner,
		settle:  settle,
		log:     logger.WithComponent("ingest.watcher"),
		w:       w,
	}, nil
}

// Start adds watches for root and every subdirectory, then launches the
// event loop. It returns once the watches are established.
func (wt *Watcher) Start(ctx context.Context, root string) error {
	if err := wt.addTree(root); err != nil {
		_ = wt.w.Close()
		return err
	}

	wt.wg.Add(1)
	go wt.loop(ctx)
	return nil
}

// Wait blocks until the event loop and all deferred work have finished.
func (wt *Watcher) Wait() {
	wt.wg.Wait()
}

func (wt *Watcher) loop(ctx context.Context) {
	defer wt.wg.Done()
	defer func() {
		if err := wt.w.Close(); err != nil {
			wt.log.Warn().Err(err).Msg("close watcher")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-wt.w.Events:
			if !ok {
				return
			}
			wt.dispatch(ctx, e)
		case err, ok := <-wt.w.Errors:
			if !ok {
				return
			}
			wt.log.Error().Err(err).Msg("watcher error")
		}
	}
}

// dispatch fans one event out by kind. Create covers both fresh creates and
// moves into the tree. File handlers run on their own goroutines so a slow
// readiness wait never stalls the event loop.
func (wt *Watcher) dispatch(ctx context.Context, e fsnotify.Event) {
	if e.Op&fsnotify.Create != fsnotify.Create {
		return
	}
	info, err := os.Stat(e.Name)
	if err != nil {
		// Gone already, e.g. an editor temp file.
		wt.log.Debug().Err(err).Str("path", e.Name).Msg("stat after create failed")
		return
	}

	if info.IsDir() {
		// Watch the new subtree right away so nested events are not lost,
		// but defer its scan until the settle delay has passed.
		if err := wt.addTree(e.Name); err != nil {
			wt.log.Warn().Err(err).Str("path", e.Name).Msg("failed to watch new directory")
		}
		wt.log.Info().Str("path", e.Name).Dur("settle", wt.settle).Msg("new directory, scan deferred")
		wt.wg.Add(1)
		go wt.deferredScan(ctx, e.Name)
		return
	}

	if !constants.IsAllowedExt(filepath.Ext(e.Name)) {
		return
	}
	path := e.Name
	wt.wg.Add(1)
	go func() {
		defer wt.wg.Done()
		wt.pipe.Submit(ctx, path)
	}()
}

func (wt *Watcher) deferredScan(ctx context.Context, dir string) {
	defer wt.wg.Done()
	select {
	case <-ctx.Done():
		return
	case <-time.After(wt.settle):
	}
	wt.scanner.Scan(ctx, dir, func(path string) {
		wt.pipe.Submit(ctx, path)
	})
}

// addTree registers watches for dir and every subdirectory beneath it,
// honoring the scanner's pruning rules.
func (wt *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			wt.log.Warn().Err(walkErr).Str("path", path).Msg("walk error while adding watches")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && wt.scanner.excludedName(d.Name()) {
			return filepath.SkipDir
		}
		if err := wt.w.Add(path); err != nil {
			wt.log.Warn().Err(err).Str("path", path).Msg("failed to add watch")
		}
		return nil
	})
}
