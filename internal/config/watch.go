package config

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config whenever the file changes and hands the result to
// onChange. The returned stop function ends the watch. Watching is best
// effort; failure to set it up only logs.
func Watch(path string, onChange func(*Config)) (stop func()) {
	if path == "" {
		path = Path()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("config: watch unavailable: %v", err)
		return func() {}
	}
	// Watch the directory: editors replace files rather than rewrite them.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		log.Printf("config: watching %s: %v", filepath.Dir(path), err)
		watcher.Close()
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					onChange(Load(path))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config: watch: %v", err)
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		watcher.Close()
	}
}
