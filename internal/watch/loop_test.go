package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"github.com/blackmann/home-archive-2022-01/internal/build"
	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
)

type fakeSource struct {
	events chan fsnotify.Event
	errs   chan error
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan fsnotify.Event, 16), errs: make(chan error, 1)}
}

func (s *fakeSource) Events() <-chan fsnotify.Event { return s.events }
func (s *fakeSource) Errors() <-chan error          { return s.errs }
func (s *fakeSource) Observe(fsnotify.Event)        {}
func (s *fakeSource) Close() error                  { return nil }

type fakeRunner struct {
	mu       sync.Mutex
	calls    int
	active   atomic.Int32
	overlaps atomic.Int32
	delay    time.Duration
	err      error
}

func (r *fakeRunner) Run(ctx context.Context) (*build.Report, error) {
	if r.active.Add(1) > 1 {
		r.overlaps.Add(1)
	}
	defer r.active.Add(-1)
	time.Sleep(r.delay)
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return &build.Report{}, r.err
}

func (r *fakeRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func loopFixture(t *testing.T) (string, *Filter) {
	t.Helper()
	root := t.TempDir()
	for _, d := range []string{"posts", "docs/posts"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o750))
	}
	return root, NewFilter([]string{filepath.Join(root, "posts")}, []string{filepath.Join(root, "docs")})
}

func startLoop(t *testing.T, l *Loop) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func TestLoop_RebuildsOnceForBurst(t *testing.T) {
	root, filter := loopFixture(t)
	src := newFakeSource()
	runner := &fakeRunner{}
	l := NewLoop(runner, src, filter, Options{Debounce: 50 * time.Millisecond})
	cancel, done := startLoop(t, l)

	for i := 0; i < 5; i++ {
		src.events <- fsnotify.Event{Name: filepath.Join(root, "posts", "a.md"), Op: fsnotify.Write}
	}
	require.Eventually(t, func() bool { return runner.Calls() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, 1, runner.Calls())

	cancel()
	require.NoError(t, <-done)
}

func TestLoop_IgnoresOutputTree(t *testing.T) {
	root, filter := loopFixture(t)
	src := newFakeSource()
	runner := &fakeRunner{}
	l := NewLoop(runner, src, filter, Options{Debounce: 10 * time.Millisecond})
	cancel, done := startLoop(t, l)

	src.events <- fsnotify.Event{Name: filepath.Join(root, "docs", "posts", "a.html"), Op: fsnotify.Write}
	src.events <- fsnotify.Event{Name: filepath.Join(root, "docs", "index.html"), Op: fsnotify.Create}
	time.Sleep(150 * time.Millisecond)
	require.Zero(t, runner.Calls())

	cancel()
	require.NoError(t, <-done)
}

func TestLoop_BuildsNeverOverlap(t *testing.T) {
	root, filter := loopFixture(t)
	src := newFakeSource()
	runner := &fakeRunner{delay: 100 * time.Millisecond}
	l := NewLoop(runner, src, filter, Options{Debounce: 5 * time.Millisecond})
	cancel, done := startLoop(t, l)

	for i := 0; i < 6; i++ {
		src.events <- fsnotify.Event{Name: filepath.Join(root, "posts", "a.md"), Op: fsnotify.Write}
		time.Sleep(30 * time.Millisecond)
	}
	require.Eventually(t, func() bool { return l.State() == StateIdle && runner.Calls() >= 2 }, 3*time.Second, 10*time.Millisecond)
	require.Zero(t, runner.overlaps.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestLoop_FailedBuildReturnsToIdle(t *testing.T) {
	root, filter := loopFixture(t)
	src := newFakeSource()
	runner := &fakeRunner{err: errors.New("broken front matter")}
	var seen atomic.Int32
	l := NewLoop(runner, src, filter, Options{
		Debounce: 5 * time.Millisecond,
		OnBuild: func(tr Trigger, _ *build.Report, err error) {
			if err != nil && tr.Reason == ReasonChange {
				seen.Add(1)
			}
		},
	})
	cancel, done := startLoop(t, l)

	src.events <- fsnotify.Event{Name: filepath.Join(root, "posts", "a.md"), Op: fsnotify.Write}
	require.Eventually(t, func() bool { return seen.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, StateIdle, l.State())

	src.events <- fsnotify.Event{Name: filepath.Join(root, "posts", "b.md"), Op: fsnotify.Write}
	require.Eventually(t, func() bool { return seen.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestLoop_SourceErrorEndsLoop(t *testing.T) {
	_, filter := loopFixture(t)
	src := newFakeSource()
	l := NewLoop(&fakeRunner{}, src, filter, Options{Debounce: time.Millisecond})
	_, done := startLoop(t, l)

	src.errs <- errors.New("inotify queue overflow")
	select {
	case err := <-done:
		require.True(t, ferrors.HasCategory(err, ferrors.CategoryWatch))
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on watcher error")
	}
}

func TestLoop_ClosedSourceEndsLoop(t *testing.T) {
	_, filter := loopFixture(t)
	src := newFakeSource()
	l := NewLoop(&fakeRunner{}, src, filter, Options{Debounce: time.Millisecond})
	_, done := startLoop(t, l)

	close(src.events)
	select {
	case err := <-done:
		require.True(t, ferrors.HasCategory(err, ferrors.CategoryWatch))
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on closed event stream")
	}
}

func TestLoop_PeriodicRebuild(t *testing.T) {
	_, filter := loopFixture(t)
	runner := &fakeRunner{}
	var scheduled atomic.Int32
	l := NewLoop(runner, newFakeSource(), filter, Options{
		Debounce:        time.Second,
		RebuildInterval: 50 * time.Millisecond,
		OnBuild: func(tr Trigger, _ *build.Report, _ error) {
			if tr.Reason == ReasonSchedule {
				scheduled.Add(1)
			}
		},
	})
	cancel, done := startLoop(t, l)

	require.Eventually(t, func() bool { return scheduled.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_DeliversEventsAndWatchesNewDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "posts"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "posts"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o750))

	w, err := NewWatcher([]string{root}, []string{filepath.Join(root, "docs")}, nil)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	watched := w.WatchList()
	require.Contains(t, watched, Canonical(filepath.Join(root, "posts")))
	require.NotContains(t, watched, Canonical(filepath.Join(root, "docs")))
	require.NotContains(t, watched, Canonical(filepath.Join(root, "docs", "posts")))
	require.NotContains(t, watched, Canonical(filepath.Join(root, ".git")))

	newDir := filepath.Join(root, "assets")
	require.NoError(t, os.MkdirAll(newDir, 0o750))
	require.Eventually(t, func() bool {
		select {
		case ev := <-w.Events():
			w.Observe(ev)
		default:
		}
		for _, d := range w.WatchList() {
			if d == Canonical(newDir) {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
}
