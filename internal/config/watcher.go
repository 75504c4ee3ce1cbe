// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// debounceDelay coalesces the burst of filesystem events editors emit on a
// single save into one reload.
const debounceDelay = 250 * time.Millisecond

// Watcher reloads the global configuration when the config file changes on
// disk and notifies subscribers.
type Watcher struct {
	fw     *fsnotify.Watcher
	onLoad func(*Config)
	stop   chan struct{}
	done   chan struct{}
}

// Watch starts watching the config directory. onLoad is invoked with the
// fresh config after every successful reload; it may be nil.
func Watch(onLoad func(*Config)) (*Watcher, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("config directory not watchable: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace files on save,
	// which drops a watch held on the file itself.
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		fw:     fw,
		onLoad: onLoad,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	close(w.stop)
	err := w.fw.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !isConfigFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
				timerC = timer.C
			} else {
				timer.Reset(debounceDelay)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher: %v", err)

		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	if err := ReloadGlobal(); err != nil {
		log.Printf("config reload failed: %v", err)
		return
	}
	if w.onLoad != nil {
		w.onLoad(Global())
	}
}

func isConfigFile(path string) bool {
	switch filepath.Base(path) {
	case "config.toml", "config.json":
		return true
	}
	return false
}
