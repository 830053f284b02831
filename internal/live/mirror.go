package live

import "context"

// Mirror applies snapshots from a subscription on its own goroutine.
type Mirror[T any] struct {
	cancel context.CancelFunc
	syncCh chan chan struct{}
	done   chan struct{}
}

// Follow starts applying every snapshot received on ch. cancel must end the subscription that feeds ch.
//
// apply runs on the mirror goroutine and must not call [Mirror.Sync].
func Follow[T any](cancel context.CancelFunc, ch <-chan T, apply func(T)) *Mirror[T] {
	m := &Mirror[T]{cancel: cancel, syncCh: make(chan chan struct{}), done: make(chan struct{})}
	go m.run(ch, apply)
	return m
}

func (m *Mirror[T]) run(ch <-chan T, apply func(T)) {
	defer close(m.done)
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return
			}
			apply(v)
		case reply := <-m.syncCh:
			select {
			case v, ok := <-ch:
				if ok {
					apply(v)
				}
			default:
			}
			close(reply)
		}
	}
}

// Sync returns once every snapshot delivered before the call has been applied.
func (m *Mirror[T]) Sync() {
	reply := make(chan struct{})
	select {
	case m.syncCh <- reply:
	case <-m.done:
		return
	}
	select {
	case <-reply:
	case <-m.done:
	}
}

// Stop cancels the subscription and waits for the goroutine to exit.
func (m *Mirror[T]) Stop() {
	m.cancel()
	<-m.done
}
