// Package rosterwatch turns file-system activity in a roster directory
// into a stream of sheet events. It is the live feed behind the TUI:
// every saved roster file becomes a reloaded sheet on the Events
// channel.
package rosterwatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/sheetdiff-project/sheetdiff/internal/sheet"
)

const deliverTimeout = 100 * time.Millisecond

// Event is one reloaded sheet.
type Event struct {
	Sheet      *sheet.Sheet
	Path       string
	ReceivedAt time.Time
}

// Options for New. Zero values give reasonable defaults.
type Options struct {
	// Buffer is the size of the internal event channel. A value < 1
	// picks the default (64).
	Buffer int
	// Debounce is how long a file must stay quiet before it is
	// reloaded; editors tend to fire several writes per save.
	Debounce time.Duration
	// Logger receives drop/parse diagnostics.
	Logger zerolog.Logger
}

func WithBuffer(n int) func(*Options) {
	return func(o *Options) { o.Buffer = n }
}

func WithDebounce(d time.Duration) func(*Options) {
	return func(o *Options) { o.Debounce = d }
}

func WithLogger(l zerolog.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

// ErrClosed is returned by Rescan after Stop() has been called.
var ErrClosed = errors.New("rosterwatch: watcher has been stopped")

// Watcher watches one roster directory.
//
// Duplicate events are possible (a rescan racing a write); consumers
// that need exactly-once semantics must dedupe themselves.
type Watcher struct {
	ctx    context.Context
	cancel context.CancelFunc

	dir     string
	options Options
	fs      *fsnotify.Watcher
	events  chan Event

	mutex   sync.Mutex
	pending map[string]*time.Timer
	running bool

	wg sync.WaitGroup
}

// New starts watching [dir]. Stop() must be called to release the
// underlying inotify resources.
func New(parent context.Context, dir string, opts ...func(*Options)) (*Watcher, error) {
	options := Options{Buffer: 64, Debounce: 250 * time.Millisecond, Logger: zerolog.Nop()}
	for _, fn := range opts {
		fn(&options)
	}
	if options.Buffer < 1 {
		options.Buffer = 64
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(dir); err != nil {
		_ = fs.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	w := &Watcher{
		ctx:     ctx,
		cancel:  cancel,
		dir:     dir,
		options: options,
		fs:      fs,
		events:  make(chan Event, options.Buffer),
		pending: make(map[string]*time.Timer),
		running: true,
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Events exposes the read-only event stream. The channel is closed
// after Stop().
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Rescan loads every roster file currently in the directory and emits
// it as an event. Called once at startup so the initial roster state
// flows through the same path as later updates.
func (w *Watcher) Rescan() error {
	w.mutex.Lock()
	if !w.running {
		w.mutex.Unlock()
		return ErrClosed
	}
	w.mutex.Unlock()

	sheets, err := sheet.LoadDir(w.dir)
	if err != nil {
		return err
	}
	for _, s := range sheets {
		w.deliver(Event{Sheet: s, Path: w.dir, ReceivedAt: time.Now()})
	}
	return nil
}

// Stop terminates the watcher and closes the Events() channel.
func (w *Watcher) Stop() {
	w.mutex.Lock()
	if !w.running {
		w.mutex.Unlock()
		return
	}
	w.running = false
	for _, t := range w.pending {
		if t.Stop() {
			// the callback will never run, settle its wg slot here
			w.wg.Done()
		}
	}
	w.pending = nil
	w.mutex.Unlock()

	w.cancel()
	_ = w.fs.Close()
	w.wg.Wait()
	close(w.events)
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			if !sheet.IsRosterFile(ev.Name) {
				continue
			}
			w.debounce(ev.Name)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.options.Logger.Warn().Err(err).Msg("roster watch error")

		case <-w.ctx.Done():
			return
		}
	}
}

// debounce (re)arms the per-file timer; the file is loaded only after
// it stayed quiet for the debounce window.
func (w *Watcher) debounce(path string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if !w.running {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.options.Debounce)
		return
	}
	w.wg.Add(1)
	w.pending[path] = time.AfterFunc(w.options.Debounce, func() {
		defer w.wg.Done()
		w.mutex.Lock()
		delete(w.pending, path)
		running := w.running
		w.mutex.Unlock()
		if !running {
			return
		}
		w.reload(path)
	})
}

func (w *Watcher) reload(path string) {
	s, err := sheet.LoadFile(path)
	if err != nil {
		w.options.Logger.Warn().Err(err).Str("path", path).Msg("skipping unparsable roster file")
		return
	}
	w.deliver(Event{Sheet: s, Path: path, ReceivedAt: time.Now()})
}

// deliver tries to hand the event over without blocking longer than a
// small grace period; otherwise drop + log (the next rescan or write
// will reproduce the state).
func (w *Watcher) deliver(ev Event) {
	select {
	case w.events <- ev:
	case <-time.After(deliverTimeout):
		w.options.Logger.Warn().
			Str("uid", ev.Sheet.UID).
			Msg("dropping roster event due to slow consumer")
	case <-w.ctx.Done():
	}
}
