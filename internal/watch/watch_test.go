package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dir string, h Handler) context.CancelFunc {
	t.Helper()
	w := New(dir, h, Options{Settle: 20 * time.Millisecond})
	ready := make(chan struct{})
	w.ready = func() { close(ready) }
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	select {
	case <-ready:
	case err := <-done:
		cancel()
		t.Fatalf("watcher exited early: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatalf("watcher not ready")
	}
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Errorf("watcher did not stop")
		}
	})
	return cancel
}

func write(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))
}

func TestWatcherDeliversSupportedFilesOnce(t *testing.T) {
	dir := t.TempDir()
	got := make(chan string, 10)
	startWatcher(t, dir, func(_ context.Context, path string) error {
		got <- filepath.Base(path)
		if filepath.Base(path) == "bad.csv" {
			return errors.New("boom")
		}
		return nil
	})

	write(t, filepath.Join(dir, "notes.txt"))
	write(t, filepath.Join(dir, "bad.csv"))
	require.NoError(t, os.Remove(filepath.Join(dir, "bad.csv")))
	write(t, filepath.Join(dir, "bad.csv"))
	write(t, filepath.Join(dir, "sales.xlsx"))

	var seen []string
	timeout := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case name := <-got:
			seen = append(seen, name)
		case <-timeout:
			t.Fatalf("timed out, got %v", seen)
		}
	}
	assert.Equal(t, []string{"bad.csv", "sales.xlsx"}, seen)

	select {
	case name := <-got:
		t.Fatalf("unexpected extra delivery %s", name)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherMissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "absent"), func(context.Context, string) error { return nil }, Options{})
	assert.Error(t, w.Run(context.Background()))
}

func TestClaimFiltersAndDedupes(t *testing.T) {
	w := New("in", nil, Options{})
	_, ok := w.claim("in/a.csv")
	assert.True(t, ok)
	_, ok = w.claim("in/./a.csv")
	assert.False(t, ok)
	_, ok = w.claim("in/a.json")
	assert.False(t, ok)
	_, ok = w.claim("in/b.TSV")
	assert.True(t, ok)
}
