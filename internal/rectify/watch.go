package rectify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ironsheep/doc-tools-mcp/internal/folder"
)

// Watch rectifies images as they are created in or written to srcDir, saving
// them into dstDir, until ctx is cancelled. Each processed file is passed to
// handle when it is non-nil.
//
// Events for a file are coalesced: it is processed once no further event has
// arrived for opts.Settle, so a file copied in chunks is decoded once.
func Watch(ctx context.Context, srcDir, dstDir string, opts Options, handle func(FileResult)) error {
	opts = opts.withDefaults()

	if err := checkDirs(srcDir, dstDir); err != nil {
		return err
	}

	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(srcDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", srcDir, err)
	}
	opts.Logger.Info("watching for slides", zap.String("dir", srcDir), zap.String("output", dstDir))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d := newDebouncer(ctx, opts.Settle)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !folder.HasSuffix(filepath.Base(ev.Name), opts.Suffixes) {
				continue
			}
			d.touch(ev.Name)
		case s := <-d.ready:
			if !d.take(s) {
				continue
			}
			fr := processOne(s.path, dstDir, opts)
			if handle != nil {
				handle(fr)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			opts.Logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// settled names a path whose quiet period elapsed for event generation gen.
type settled struct {
	path string
	gen  uint64
}

type pendingFile struct {
	gen   uint64
	timer *time.Timer
}

// debouncer delays each path until events for it stop for a while. It is
// owned by the Watch loop and not safe for concurrent use; only the timer
// callbacks send on ready.
type debouncer struct {
	ctx     context.Context
	settle  time.Duration
	gen     uint64
	pending map[string]pendingFile
	ready   chan settled
}

func newDebouncer(ctx context.Context, settle time.Duration) *debouncer {
	return &debouncer{
		ctx:     ctx,
		settle:  settle,
		pending: make(map[string]pendingFile),
		ready:   make(chan settled),
	}
}

// touch restarts the quiet period for path.
func (d *debouncer) touch(path string) {
	if p, ok := d.pending[path]; ok {
		p.timer.Stop()
	}
	d.gen++
	s := settled{path: path, gen: d.gen}
	timer := time.AfterFunc(d.settle, func() {
		select {
		case d.ready <- s:
		case <-d.ctx.Done():
		}
	})
	d.pending[path] = pendingFile{gen: s.gen, timer: timer}
}

// take reports whether s is the latest generation for its path and forgets
// the path if so. Stale timers that fired before being stopped are ignored.
func (d *debouncer) take(s settled) bool {
	p, ok := d.pending[s.path]
	if !ok || p.gen != s.gen {
		return false
	}
	delete(d.pending, s.path)
	return true
}

func (d *debouncer) stop() {
	for _, p := range d.pending {
		p.timer.Stop()
	}
}
