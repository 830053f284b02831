package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/readx/internal/shared"
)

// Loader reads the current collection for key.
type Loader[T any] func(ctx context.Context, key string) (T, error)

type subscriber[T any] struct {
	ch chan T
}

// Hub delivers snapshots of T to subscribers by key.
type Hub[T any] struct {
	load   Loader[T]
	logger *log.Logger

	// pubMu orders load-and-deliver so deliveries never go backwards.
	pubMu sync.Mutex

	mu     sync.Mutex
	subs   map[string]map[*subscriber[T]]struct{}
	closed bool
}

// NewHub creates a hub reading snapshots through load.
func NewHub[T any](load Loader[T], logger *log.Logger) *Hub[T] {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Hub[T]{load: load, logger: logger, subs: make(map[string]map[*subscriber[T]]struct{})}
}

// Subscribe registers for snapshots of key. The current snapshot is ready on the channel when Subscribe returns.
//
// The channel is closed when ctx is done or the hub is closed.
func (h *Hub[T]) Subscribe(ctx context.Context, key string) (<-chan T, error) {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	snapshot, err := h.load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for %s: %w", key, err)
	}

	sub := &subscriber[T]{ch: make(chan T, 1)}
	sub.ch <- snapshot

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, shared.ErrSubscriptionDone
	}
	if h.subs[key] == nil {
		h.subs[key] = make(map[*subscriber[T]]struct{})
	}
	h.subs[key][sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(key, sub)
	}()

	h.logger.Debug("subscribed", "key", key)
	return sub.ch, nil
}

// Publish reloads the collection for key and delivers it to its subscribers.
// Keys without subscribers are not loaded.
func (h *Hub[T]) Publish(ctx context.Context, key string) error {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	if h.Subscribers(key) == 0 {
		return nil
	}

	snapshot, err := h.load(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to reload snapshot for %s: %w", key, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[key] {
		deliver(sub.ch, snapshot)
	}
	return nil
}

// Subscribers reports how many subscribers key has.
func (h *Hub[T]) Subscribers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}

// Close ends every subscription. Later calls to Subscribe fail with [shared.ErrSubscriptionDone].
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for key, subs := range h.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(h.subs, key)
	}
}

func (h *Hub[T]) remove(key string, sub *subscriber[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subs[key]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subs, key)
	}
	close(sub.ch)
	h.logger.Debug("unsubscribed", "key", key)
}

// deliver replaces any undelivered snapshot with v. Callers hold h.mu.
func deliver[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
