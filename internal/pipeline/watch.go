package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/backmassage/convert-videos/internal/logging"
)

// watcher turns file system events under a tree into a coalesced change
// signal. fsnotify watches single directories, so every directory is added
// at start and new ones as they appear.
type watcher struct {
	fw      *fsnotify.Watcher
	match   func(name string) bool
	log     *logging.Logger
	changes chan struct{}
	done    chan struct{}
}

func newWatcher(root string, match func(string) bool, log *logging.Logger) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{
		fw:      fw,
		match:   match,
		log:     log,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	go w.run()
	return w, nil
}

// addTree watches root and every directory below it. Unreadable
// subdirectories are skipped; the scan reports them.
func (w *watcher) addTree(root string) error {
	if err := w.fw.Add(root); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == root {
			return nil
		}
		if err := w.fw.Add(path); err != nil {
			w.log.Debug("Not watching %s: %v", path, err)
		}
		return nil
	})
}

func (w *watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.log.Debug("Not watching %s: %v", ev.Name, err)
					}
					w.signal()
					continue
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 && w.match(filepath.Base(ev.Name)) {
				w.signal()
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("Watch error: %v", err)
		}
	}
}

func (w *watcher) signal() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

// Changes delivers at most one pending signal per burst of events.
func (w *watcher) Changes() <-chan struct{} { return w.changes }

// Drain discards a pending signal.
func (w *watcher) Drain() {
	select {
	case <-w.changes:
	default:
	}
}

// Close stops watching and waits for the event loop to exit.
func (w *watcher) Close() error {
	err := w.fw.Close()
	<-w.done
	return err
}
