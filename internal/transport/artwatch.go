package transport

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ArtWatcher monitors a local mascot-art override file for changes so edits
// show up live without restarting the viewer.
type ArtWatcher struct {
	watcher  *fsnotify.Watcher
	artPath  string
	debounce time.Duration
	onChange chan struct{}
	done     chan struct{}
}

// NewArtWatcher creates a watcher for the given art file. The parent
// directory is watched to catch editors that replace the file on save.
func NewArtWatcher(artPath string) (*ArtWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(artPath)); err != nil {
		w.Close()
		return nil, err
	}

	watcher := &ArtWatcher{
		watcher:  w,
		artPath:  artPath,
		debounce: 100 * time.Millisecond,
		onChange: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go watcher.loop()
	return watcher, nil
}

// Changes returns a channel signalled when the art file changes.
func (w *ArtWatcher) Changes() <-chan struct{} { return w.onChange }

// Read returns the current art file contents.
func (w *ArtWatcher) Read() (string, error) {
	data, err := os.ReadFile(w.artPath)
	return string(data), err
}

// Close stops the watcher.
func (w *ArtWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *ArtWatcher) loop() {
	var timer *time.Timer
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.artPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce: reset timer on each write.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case w.onChange <- struct{}{}:
				default: // already signaled, skip
				}
			})
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
