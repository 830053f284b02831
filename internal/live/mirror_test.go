package live

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirror(t *testing.T) {
	src := newSource()
	hub := NewHub(src.load, nil)

	ctx, cancel := context.WithCancel(t.Context())
	ch, err := hub.Subscribe(ctx, "a")
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen []int
	)
	m := Follow(cancel, ch, func(v int) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})

	for i := 1; i <= 3; i++ {
		src.set("a", i)
		require.NoError(t, hub.Publish(t.Context(), "a"))
		m.Sync()

		mu.Lock()
		last := seen[len(seen)-1]
		mu.Unlock()
		assert.Equal(t, i, last, "sync applies the snapshot published before it")
	}

	m.Stop()
	assert.Equal(t, 0, hub.Subscribers("a"))

	// Sync after Stop returns immediately.
	m.Sync()
}
