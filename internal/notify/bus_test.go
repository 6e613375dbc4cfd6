package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/confsched/pkg/types"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	b := NewBus(16)
	t.Cleanup(func() { b.Close() })
	return b
}

func receiveChanges(t *testing.T, ch <-chan types.Change, n int) []types.Change {
	t.Helper()
	var got []types.Change
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case c, ok := <-ch:
			require.True(t, ok, "channel closed after %d changes", len(got))
			got = append(got, c)
		case <-timeout:
			t.Fatalf("received %d of %d changes", len(got), n)
		}
	}
	return got
}

func TestBusDeliversChanges(t *testing.T) {
	b := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx)
	require.NoError(t, err)

	want := []types.Change{
		{URI: "content://x/sessions", SyncToNetwork: true},
		{URI: "content://x/speakers", SyncToNetwork: false},
	}
	for _, c := range want {
		require.NoError(t, b.NotifyChange(ctx, c))
	}

	assert.ElementsMatch(t, want, receiveChanges(t, ch, len(want)))
}

func TestBusWidgets(t *testing.T) {
	b := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.SubscribeWidgets(ctx)
	require.NoError(t, err)
	require.NoError(t, b.RefreshWidgets(ctx))

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no widget refresh received")
	}
}

func TestBusFanOut(t *testing.T) {
	b := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := b.Subscribe(ctx)
	require.NoError(t, err)
	second, err := b.Subscribe(ctx)
	require.NoError(t, err)

	c := types.Change{URI: "content://x/blocks", SyncToNetwork: true}
	require.NoError(t, b.NotifyChange(ctx, c))

	assert.Equal(t, []types.Change{c}, receiveChanges(t, first, 1))
	assert.Equal(t, []types.Change{c}, receiveChanges(t, second, 1))
}

func TestBusCloseEndsSubscriptions(t *testing.T) {
	b := NewBus(1)
	ch, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, b.Close())

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}

	assert.Error(t, b.NotifyChange(context.Background(), types.Change{URI: "x"}))
}

func TestNop(t *testing.T) {
	var n types.Notifier = Nop{}
	assert.NoError(t, n.NotifyChange(context.Background(), types.Change{URI: "x"}))
	assert.NoError(t, n.RefreshWidgets(context.Background()))
}
