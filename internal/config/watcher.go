package config

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher holds the current configuration and swaps it when the file changes.
// A reload that fails to parse or validate keeps the previous snapshot.
type Watcher struct {
	path     string
	current  atomic.Pointer[Config]
	log      zerolog.Logger
	interval time.Duration

	mu      sync.Mutex
	modTime time.Time

	wg sync.WaitGroup
}

func NewWatcher(path string, initial *Config, log zerolog.Logger) *Watcher {
	w := &Watcher{
		path:     path,
		log:      log.With().Str("component", "config").Logger(),
		interval: 60 * time.Second,
	}
	w.current.Store(initial)
	if fi, err := os.Stat(path); err == nil {
		w.modTime = fi.ModTime()
	}
	return w
}

// Current returns the latest valid configuration.
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

// Start watches the file with fsnotify and polls it as a safety net.
// Both goroutines exit when ctx is done; Wait blocks until they have.
func (w *Watcher) Start(ctx context.Context) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn().Err(err).Msg("fsnotify unavailable, polling only")
	} else if err := fw.Add(w.path); err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("cannot watch config file, polling only")
		fw.Close()
		fw = nil
	}

	if fw != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer fw.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-fw.Events:
					if !ok {
						return
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						// editors write in several steps
						time.Sleep(100 * time.Millisecond)
						w.Reload()
					}
				case err, ok := <-fw.Errors:
					if !ok {
						return
					}
					w.log.Error().Err(err).Msg("config watcher error")
				}
			}
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.ReloadIfChanged()
			}
		}
	}()
}

// Wait blocks until the watcher goroutines have exited.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// ReloadIfChanged reloads only when the file's mtime moved.
func (w *Watcher) ReloadIfChanged() bool {
	fi, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	changed := !fi.ModTime().Equal(w.modTime)
	w.mu.Unlock()
	if !changed {
		return false
	}
	return w.Reload()
}

// Reload parses the file and swaps the snapshot on success. The mtime is
// recorded first so a rejected file is not re-parsed until it changes again.
func (w *Watcher) Reload() bool {
	if fi, err := os.Stat(w.path); err == nil {
		w.mu.Lock()
		w.modTime = fi.ModTime()
		w.mu.Unlock()
	}
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Error().Err(err).Str("path", w.path).Msg("config reload rejected")
		return false
	}
	// secrets come from the environment only
	cfg.JWTSigningKey = w.Current().JWTSigningKey
	w.current.Store(cfg)
	w.log.Info().Str("path", w.path).Msg("config reloaded")
	return true
}
