package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/livecue/component"
	"github.com/kbukum/livecue/logger"
)

type sink struct {
	mu   sync.Mutex
	last map[string]string
	err  error
}

func (s *sink) load(path string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.last == nil {
		s.last = make(map[string]string)
	}
	s.last[filepath.Base(path)] = string(content)
	return nil
}

func (s *sink) get(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[name]
}

func (s *sink) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func newWatcher(t *testing.T) *Watcher {
	t.Helper()
	w := New(WithDebounce(10*time.Millisecond), WithLogger(logger.Nop()))
	t.Cleanup(func() { _ = w.Stop(context.Background()) })
	return w
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestWatcher_InitialLoadAndReload(t *testing.T) {
	dir := t.TempDir()
	goals := filepath.Join(dir, "goals.md")
	write(t, goals, "Land the offer.")

	s := &sink{}
	w := newWatcher(t)
	require.NoError(t, w.Watch(goals, s.load))
	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, "Land the offer.", s.get("goals.md"))
	assert.Equal(t, 1, w.Loads(goals))

	write(t, goals, "Negotiate salary.")
	require.Eventually(t, func() bool { return s.get("goals.md") == "Negotiate salary." }, 2*time.Second, 5*time.Millisecond)
}

func TestWatcher_BurstIsDebounced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	write(t, path, "v0")

	s := &sink{}
	w := New(WithDebounce(200*time.Millisecond), WithLogger(logger.Nop()))
	t.Cleanup(func() { _ = w.Stop(context.Background()) })
	require.NoError(t, w.Watch(path, s.load))
	require.NoError(t, w.Start(context.Background()))

	for _, v := range []string{"v1", "v2", "v3"} {
		write(t, path, v)
	}
	require.Eventually(t, func() bool { return s.get("notes.md") == "v3" }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, w.Loads(path), "initial load plus one debounced reload")
}

func TestWatcher_MissingFileLoadsWhenCreated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "later.md")

	s := &sink{}
	w := newWatcher(t)
	require.NoError(t, w.Watch(path, s.load))
	require.NoError(t, w.Start(context.Background()))
	assert.Zero(t, w.Loads(path))
	assert.Equal(t, component.StatusHealthy, w.Health(context.Background()).Status)

	write(t, path, "appeared")
	require.Eventually(t, func() bool { return s.get("later.md") == "appeared" }, 2*time.Second, 5*time.Millisecond)
}

func TestWatcher_ReplaceByRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "goals.md")
	write(t, path, "old")

	s := &sink{}
	w := newWatcher(t)
	require.NoError(t, w.Watch(path, s.load))
	require.NoError(t, w.Start(context.Background()))

	tmp := filepath.Join(dir, ".goals.md.swp")
	write(t, tmp, "new")
	require.NoError(t, os.Rename(tmp, path))
	require.Eventually(t, func() bool { return s.get("goals.md") == "new" }, 2*time.Second, 5*time.Millisecond)
}

func TestWatcher_LoadErrorDegradesHealth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs.md")
	write(t, path, "ok")

	s := &sink{}
	w := newWatcher(t)
	require.NoError(t, w.Watch(path, s.load))
	require.NoError(t, w.Start(context.Background()))

	s.fail(errors.New("parse failed"))
	write(t, path, "broken")
	require.Eventually(t, func() bool {
		return w.Health(context.Background()).Status == component.StatusDegraded
	}, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, w.Health(context.Background()).Message, "docs.md")
	assert.Equal(t, "ok", s.get("docs.md"), "last good content stays")

	s.fail(nil)
	write(t, path, "fixed")
	require.Eventually(t, func() bool {
		return w.Health(context.Background()).Status == component.StatusHealthy
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWatcher_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	write(t, path, "a")

	s := &sink{}
	w := newWatcher(t)
	require.NoError(t, w.Watch(path, s.load))
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()), "second start is a no-op")
	assert.ErrorContains(t, w.Watch(filepath.Join(dir, "b.md"), s.load), "already started")
	assert.Equal(t, "watcher", w.Describe().Type)

	require.NoError(t, w.Stop(context.Background()))
	require.NoError(t, w.Stop(context.Background()))

	write(t, path, "after stop")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "a", s.get("a.md"))
}

func TestWatcher_StartFailsOnMissingDir(t *testing.T) {
	w := newWatcher(t)
	require.NoError(t, w.Watch(filepath.Join(t.TempDir(), "nope", "goals.md"), (&sink{}).load))
	assert.Error(t, w.Start(context.Background()))
}
