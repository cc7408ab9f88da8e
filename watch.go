// FILE: lixenwraith/propcfg/watch.go
package propcfg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// Watch event names sent on Watcher.Events
const (
	EventReloaded           = "reloaded"
	EventFileDeleted        = "file_deleted"
	EventPermissionsChanged = "permissions_changed"
	EventReloadTimeout      = "reload_timeout"
	EventReloadSkipped      = "reload_skipped"
	EventReloadErrorPrefix  = "reload_error:"
)

// WatchOptions configures properties file watching
type WatchOptions struct {
	// PollInterval for file stat checks (minimum MinPollInterval)
	PollInterval time.Duration

	// Debounce delays the reload after the last observed change
	Debounce time.Duration

	// ReloadTimeout bounds a reload, including the reload callback
	ReloadTimeout time.Duration

	// VerifyPermissions skips reloads when group/world permission bits change
	VerifyPermissions bool

	// File is passed to LoadPropertiesWithOptions
	File FileOptions
}

// DefaultWatchOptions returns sensible defaults for file watching
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		PollInterval:      DefaultPollInterval,
		Debounce:          DefaultDebounce,
		ReloadTimeout:     DefaultReloadTimeout,
		VerifyPermissions: true,
	}
}

// ReloadFunc runs after the property store has been refreshed, typically
// re-configuring the types that read from it. It should return once ctx is
// done; a reload that overruns is abandoned and Stop does not wait for it.
type ReloadFunc func(ctx context.Context) error

// Watcher polls a properties file and refreshes a property store when it changes.
// Keys that disappear from the file are removed from the store; other keys are left alone.
type Watcher struct {
	path     string
	props    *Properties
	onReload ReloadFunc
	opts     WatchOptions

	mu          sync.Mutex
	fileKeys    map[string]struct{}
	lastModTime time.Time
	lastSize    int64
	lastMode    os.FileMode

	// closed when a reload that outlived its timeout finally returns;
	// owned by the watch loop
	stalled chan struct{}

	events chan string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// WatchProperties loads path into props, then watches it until Stop is called.
// onReload may be nil.
func WatchProperties(path string, props *Properties, onReload ReloadFunc, opts WatchOptions) (*Watcher, error) {
	if props == nil {
		return nil, errors.New("nil property store")
	}
	if opts.PollInterval < MinPollInterval {
		opts.PollInterval = MinPollInterval
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     path,
		props:    props,
		onReload: onReload,
		opts:     opts,
		fileKeys: make(map[string]struct{}),
		events:   make(chan string, 10),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	if err := w.load(); err != nil {
		cancel()
		return nil, err
	}
	if info, err := os.Stat(path); err == nil {
		w.lastModTime = info.ModTime()
		w.lastSize = info.Size()
		w.lastMode = info.Mode()
	}

	go w.watchLoop(ctx)
	return w, nil
}

// Events returns the notification channel; it is closed by Stop.
// Slow readers miss events rather than block the watcher.
func (w *Watcher) Events() <-chan string { return w.events }

// Stop terminates the watcher and waits for its loop to exit
func (w *Watcher) Stop() {
	w.once.Do(func() {
		w.cancel()
		<-w.done
		close(w.events)
	})
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	var pendingSince time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if w.changed() {
				pendingSince = now
			}
			if !pendingSince.IsZero() && now.Sub(pendingSince) >= w.opts.Debounce {
				pendingSince = time.Time{}
				w.performReload(ctx)
			}
		}
	}
}

// changed stats the file and reports whether it differs from the last seen state
func (w *Watcher) changed() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			w.notify(EventFileDeleted)
		}
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.opts.VerifyPermissions && w.lastMode != 0 && info.Mode() != w.lastMode {
		if (info.Mode() & 0077) != (w.lastMode & 0077) {
			w.notify(EventPermissionsChanged)
			return false
		}
	}

	if info.ModTime().Equal(w.lastModTime) && info.Size() == w.lastSize {
		return false
	}
	w.lastModTime = info.ModTime()
	w.lastSize = info.Size()
	w.lastMode = info.Mode()
	return true
}

func (w *Watcher) performReload(parent context.Context) {
	if w.stalled != nil {
		select {
		case <-w.stalled:
			w.stalled = nil
		default:
			w.notify(EventReloadSkipped)
			return
		}
	}

	ctx, cancel := context.WithTimeout(parent, w.opts.ReloadTimeout)
	defer cancel()

	done := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		if err := w.load(); err != nil {
			done <- err
			return
		}
		if w.onReload != nil {
			done <- w.onReload(ctx)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			w.notify(fmt.Sprintf("%s%v", EventReloadErrorPrefix, err))
			return
		}
		w.notify(EventReloaded)
	case <-ctx.Done():
		// the reload keeps running detached; later reloads wait for it
		w.notify(EventReloadTimeout)
		w.stalled = finished
	}
}

// load reads the file and swaps its keys into the store
func (w *Watcher) load() error {
	fresh, err := LoadPropertiesWithOptions(w.path, w.opts.File)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	keys := fresh.Keys()
	next := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		value, _ := fresh.Get(key)
		w.props.Set(key, value)
		next[key] = struct{}{}
	}
	for key := range w.fileKeys {
		if _, ok := next[key]; !ok {
			w.props.Delete(key)
		}
	}
	w.fileKeys = next
	return nil
}

func (w *Watcher) notify(event string) {
	select {
	case w.events <- event:
	default:
	}
}
