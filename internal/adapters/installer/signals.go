package installer

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/kamal-hamza/pupsnap/internal/log"
)

// WatchSignals raises "offer available" when pupsnap is not installed and
// "installed" when the target binary appears in the install directory.
type WatchSignals struct {
	installer *BinaryInstaller
}

func NewWatchSignals(installer *BinaryInstaller) *WatchSignals {
	return &WatchSignals{installer: installer}
}

// Subscribe starts watching. The returned func stops the watcher and
// waits for the event loop to exit.
func (s *WatchSignals) Subscribe(onOffer func(), onInstalled func()) func() {
	if s.installer.Installed() {
		onInstalled()
		return func() {}
	}
	onOffer()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("install watcher unavailable", "error", err)
		return func() {}
	}
	if err := watcher.Add(s.installer.Dir()); err != nil {
		// The directory may not exist until the first install
		log.Debug("not watching install directory", "dir", s.installer.Dir(), "error", err)
		watcher.Close()
		return func() {}
	}

	target := filepath.Clean(s.installer.Target())
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Write) {
					onInstalled()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("install watcher error", "error", err)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			watcher.Close()
			<-done
		})
	}
}
