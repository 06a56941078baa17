package screens_test

import (
	"context"
	"github.com/planificaia/aliada/internal/screens"
	"github.com/planificaia/aliada/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"sync/atomic"
	"testing"
	"time"
)

type fakeScreen struct {
	closed atomic.Bool
}

func (f *fakeScreen) Close() {
	f.closed.Store(true)
}

func newFake() (*fakeScreen, error) {
	return &fakeScreen{}, nil
}

func TestRegistry_Enter(t *testing.T) {
	t.Parallel()
	r := screens.NewRegistry(time.Hour, testhelpers.NewLogger(io.Discard))

	first, err := screens.Enter(r, "visitor", "main-chat", newFake)
	require.NoError(t, err)
	again, err := screens.Enter(r, "visitor", "main-chat", newFake)
	require.NoError(t, err)
	require.Same(t, first, again, "re-entering the same screen keeps its state")

	other, err := screens.Enter(r, "visitor", "dashboard", newFake)
	require.NoError(t, err)
	require.NotSame(t, first, other)
	require.True(t, first.closed.Load(), "navigating away tears the previous screen down")

	_, ok := screens.Active[*fakeScreen](r, "visitor", "main-chat")
	require.False(t, ok, "left screens are not resurrected")
	active, ok := screens.Active[*fakeScreen](r, "visitor", "dashboard")
	require.True(t, ok)
	require.Same(t, other, active)

	// Visitors are isolated.
	_, err = screens.Enter(r, "someone-else", "main-chat", newFake)
	require.NoError(t, err)
	require.False(t, other.closed.Load())
	require.Equal(t, 2, r.Len())

	key, ok := r.ActiveKey("visitor")
	require.True(t, ok)
	require.Equal(t, "dashboard", key)

	r.Leave("visitor")
	require.True(t, other.closed.Load())
	require.Equal(t, 1, r.Len())
}

func TestRegistry_EvictIdle(t *testing.T) {
	t.Parallel()
	r := screens.NewRegistry(10*time.Millisecond, testhelpers.NewLogger(io.Discard))

	idle, err := screens.Enter(r, "idle", "main-chat", newFake)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	busy, err := screens.Enter(r, "busy", "main-chat", newFake)
	require.NoError(t, err)

	require.Equal(t, 1, r.EvictIdle())
	require.True(t, idle.closed.Load())
	require.False(t, busy.closed.Load())
}

func TestRegistry_StartJanitor(t *testing.T) {
	t.Parallel()
	r := screens.NewRegistry(time.Millisecond, testhelpers.NewLogger(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s, err := screens.Enter(r, "visitor", "main-chat", newFake)
	require.NoError(t, err)
	go r.StartJanitor(ctx, 5*time.Millisecond)
	require.Eventually(t, s.closed.Load, time.Second, time.Millisecond)
	require.Equal(t, 0, r.Len())
}

func TestRegistry_Close(t *testing.T) {
	t.Parallel()
	r := screens.NewRegistry(time.Hour, testhelpers.NewLogger(io.Discard))
	s, err := screens.Enter(r, "visitor", "main-chat", newFake)
	require.NoError(t, err)

	r.Close()
	require.True(t, s.closed.Load())
	_, err = screens.Enter(r, "visitor", "main-chat", newFake)
	require.ErrorIs(t, err, screens.ErrClosed)
}
