package site

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingBuilder struct {
	builds atomic.Int32
	err    error
}

func (b *countingBuilder) BuildStatic(context.Context) error {
	b.builds.Add(1)
	return b.err
}

func TestWatcherRebuildsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	sub := filepath.Join(root, "testimonials")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	builder := &countingBuilder{err: errors.New("boom")}
	results := make(chan error, 4)
	w, err := NewWatcher(builder, nil, []string{root},
		WithDebounce(20*time.Millisecond),
		WithBuildHook(func(_ context.Context, err error) {
			select {
			case results <- err:
			default:
			}
		}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(sub, "ana.md"), []byte("quote"), 0o644))
	}

	select {
	case err := <-results:
		assert.EqualError(t, err, "boom", "failed builds are reported and the watcher keeps running")
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after change")
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "index.md"), []byte("# hi"), 0o644))
	select {
	case <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher stopped after a failed build")
	}

	w.Stop()
	assert.GreaterOrEqual(t, builder.builds.Load(), int32(2))
}

func TestWatcherIgnoresHiddenFiles(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(&countingBuilder{}, nil, []string{root})
	require.NoError(t, err)
	defer w.Stop()

	assert.False(t, w.relevant(fsEvent(filepath.Join(root, ".ana.md.swp"))))
	assert.False(t, w.relevant(fsEvent(filepath.Join(root, "ana.md~"))))
	assert.True(t, w.relevant(fsEvent(filepath.Join(root, "ana.md"))))
}

func fsEvent(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Write}
}
