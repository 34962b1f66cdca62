// Package runner drives watch mode: it turns file-change events into decode
// passes and fans decoded entries out to a channel.
package runner

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/decode"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/watcher"
)

// ReportFunc is called with each completed decode pass (to write report
// files, tally stats, print warnings).
type ReportFunc func(path string, r *model.Report)

// Runner decodes watched dumps as they appear or change. Dumps are small and
// rewritten whole, so each change triggers a full re-decode; the checkpoint
// keeps restarts from redoing unchanged files.
type Runner struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	out      chan model.Entry
	ckpt     *Checkpoint
	events   <-chan watcher.Event
	watch    *watcher.Watcher
	opts     decode.Options
	onReport ReportFunc
}

// New creates a Runner that reads events from the given Watcher.
func New(w *watcher.Watcher, ckpt *Checkpoint, opts decode.Options, onReport ReportFunc) *Runner {
	return &Runner{
		out:      make(chan model.Entry, 512),
		ckpt:     ckpt,
		events:   w.Events,
		watch:    w,
		opts:     opts,
		onReport: onReport,
	}
}

// Entries returns the channel where decoded entries are sent.
func (r *Runner) Entries() <-chan model.Entry {
	return r.out
}

// Start begins processing watcher events. Blocks until context is cancelled.
// The entries channel closes only after every in-flight decode pass has
// finished, so reconnect goroutines never send on a closed channel.
func (r *Runner) Start(ctx context.Context) {
	defer close(r.out)
	defer r.wg.Wait()

	// Decode everything watched at startup.
	for _, p := range r.watch.Paths() {
		r.decodeFile(ctx, p)
	}

	saveTicker := time.NewTicker(5 * time.Second)
	defer saveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.saveCheckpoint()
			return

		case ev, ok := <-r.events:
			if !ok {
				return
			}
			r.handleEvent(ctx, ev)

		case <-saveTicker.C:
			r.saveCheckpoint()
		}
	}
}

// handleEvent dispatches watcher events.
func (r *Runner) handleEvent(ctx context.Context, ev watcher.Event) {
	switch {
	case ev.Op&fsnotify.Write != 0, ev.Op&fsnotify.Create != 0:
		r.decodeFile(ctx, ev.Path)

	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		r.ckpt.Forget(ev.Path)
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.reconnect(ctx, ev.Path)
		}()
	}
}

// decodeFile runs one decode pass over a dump, unless this exact version was
// already decoded. Entry sends honor the context so a pass racing shutdown
// stops instead of blocking or hitting a closed channel.
func (r *Runner) decodeFile(ctx context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		log.Printf("cannot stat %s: %v", path, err)
		return
	}
	if r.ckpt.Seen(path, info.ModTime().Unix(), info.Size()) {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("cannot read %s: %v", path, err)
		return
	}

	opts := r.opts
	opts.Source = path
	report, err := decode.File(data, opts)
	if err != nil {
		// FormatError: the file is not a decodable dump. Mark it seen so we
		// don't retry on every event.
		log.Printf("decode %s: %v", path, err)
		r.ckpt.Mark(path, info.ModTime().Unix(), info.Size())
		return
	}

	r.ckpt.Mark(path, info.ModTime().Unix(), info.Size())
	if r.onReport != nil {
		r.onReport(path, report)
	}
	for _, e := range report.Entries {
		select {
		case r.out <- e:
		case <-ctx.Done():
			return
		}
	}
}

// reconnect polls for a file to reappear after replacement (up to 5 retries).
func (r *Runner) reconnect(ctx context.Context, path string) {
	for i := 0; i < 5; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(1 * time.Second):
		}
		if _, err := os.Stat(path); err == nil {
			log.Printf("reconnected to replaced dump: %s", path)
			_ = r.watch.ReWatch(path)
			r.decodeFile(ctx, path)
			return
		}
	}
	log.Printf("gave up reconnecting to %s after 5 retries", path)
}

// saveCheckpoint persists the decoded-file stamps to disk.
func (r *Runner) saveCheckpoint() {
	if err := r.ckpt.Save(); err != nil {
		log.Printf("checkpoint save failed: %v", err)
	}
}
