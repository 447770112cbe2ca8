package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcherFiresOnChange(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "centroids.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w := New(dir, func() { calls.Add(1) }, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "centroids.json"), []byte(`{"dimensions":2}`), 0644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 1 }) {
		t.Fatal("onChange never fired")
	}
}

func TestWatcherCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := New(dir, func() { calls.Add(1) }, WithDebounce(150*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	// Write a burst of files faster than the debounce window.
	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "cluster"+string(rune('a'+i))+".json")
		if err := os.WriteFile(name, []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 1 }) {
		t.Fatal("onChange never fired")
	}
	// The settled burst should have produced a single callback.
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("onChange fired %d times, want 1", got)
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	parent := t.TempDir()
	corpusDir := filepath.Join(parent, "corpus")
	if err := os.Mkdir(corpusDir, 0755); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w := New(corpusDir, func() { calls.Add(1) }, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	// A sibling file in the parent directory is not the corpus.
	if err := os.WriteFile(filepath.Join(parent, "unrelated.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("onChange fired %d times for sibling file, want 0", got)
	}
}

func TestWatcherStopCancelsPending(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := New(dir, func() { calls.Add(1) }, WithDebounce(200*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	time.Sleep(400 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("onChange fired %d times after Stop, want 0", got)
	}
}

func TestWatcherStartTwice(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, func() {})
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
}
