package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func next(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(3 * time.Second):
		t.Fatal("no folder emitted")
		return ""
	}
}

func TestStart_InitialScan(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "shop")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.pdf"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), nil, 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	folders, _, err := Start(ctx, Config{Roots: []string{root}, InitialScan: true}, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, sub, next(t, folders))
}

func TestStart_DebouncesBurst(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "shop")
	require.NoError(t, os.Mkdir(sub, 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	folders, _, err := Start(ctx, Config{Roots: []string{root}, Debounce: 100 * time.Millisecond}, discardLogger())
	require.NoError(t, err)

	for _, n := range []string{"a.pdf", "b.PDF", "c.pdf", ".tmp.pdf", "out.xlsx"} {
		require.NoError(t, os.WriteFile(filepath.Join(sub, n), []byte("x"), 0o600))
	}
	assert.Equal(t, sub, next(t, folders))

	select {
	case f := <-folders:
		t.Fatalf("unexpected second emit %q", f)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestStart_NewSubfolder(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	folders, _, err := Start(ctx, Config{Roots: []string{root}, Debounce: 50 * time.Millisecond}, discardLogger())
	require.NoError(t, err)

	sub := filepath.Join(root, "late")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(100 * time.Millisecond) // let the watcher add the new directory
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.pdf"), nil, 0o600))

	assert.Equal(t, sub, next(t, folders))
}

func TestStart_NoRoots(t *testing.T) {
	_, _, err := Start(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestStart_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	folders, errs, err := Start(ctx, Config{Roots: []string{t.TempDir()}}, discardLogger())
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-folders:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("folders channel not closed")
	}
	_, ok := <-errs
	assert.False(t, ok)
}

func TestWatchIfDir_SkipsFiles(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "batch")
	require.NoError(t, os.Mkdir(sub, 0o755))
	doc := filepath.Join(root, "a.pdf")
	require.NoError(t, os.WriteFile(doc, []byte("x"), 0o600))

	w, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, watchIfDir(w, sub, discardLogger()))
	assert.False(t, watchIfDir(w, doc, discardLogger()))
	assert.False(t, watchIfDir(w, filepath.Join(root, "gone"), discardLogger()))
	assert.Equal(t, []string{sub}, w.WatchList())
}
