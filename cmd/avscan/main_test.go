package main

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avguard/avscan/internal/config"
)

func TestOnDoneFiresOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fired := make(chan struct{})
	release := onDone(ctx, func() { close(fired) })

	cancel()
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("callback not run after cancel")
	}
	release()
}

func TestOnDoneReleaseStopsWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	release := onDone(ctx, func() { calls.Add(1) })
	release()
	cancel()

	if n := calls.Load(); n != 0 {
		t.Errorf("callback ran %d times after release", n)
	}
}

func TestOwnedPathsCoverScannerFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Quarantine: config.QuarantineConfig{Dir: filepath.Join(dir, "q")},
		Storage:    config.StorageConfig{Database: filepath.Join(dir, "data", "avscan.db")},
		History:    config.HistoryConfig{File: filepath.Join(dir, "logs", "h.log")},
	}

	want := map[string]bool{
		filepath.Join(dir, "q"):                         true,
		filepath.Join(dir, "logs", "h.log"):             true,
		filepath.Join(dir, "data", "avscan.db"):         true,
		filepath.Join(dir, "data", "avscan.db-journal"): true,
	}
	got := make(map[string]bool)
	for _, p := range ownedPaths(cfg) {
		got[p] = true
	}
	for p := range want {
		if !got[p] {
			t.Errorf("ownedPaths missing %s", p)
		}
	}
}
