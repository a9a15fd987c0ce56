package cmd

import (
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestWatcherChannels(t *testing.T) {
	// a missing watcher yields nil channels, which block in select
	// instead of panicking
	events, errs := watcherChannels(nil)
	if events != nil || errs != nil {
		t.Error("nil watcher should yield nil channels")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.Skipf("cannot create watcher on this system: %v", err)
	}
	defer func() { _ = watcher.Close() }()

	events, errs = watcherChannels(watcher)
	if events == nil || errs == nil {
		t.Error("live watcher should yield its channels")
	}
}
