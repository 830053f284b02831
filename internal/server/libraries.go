package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/readx/internal/library"
	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/stats"
)

// userLibrary is one user's bound store and its stats cache.
type userLibrary struct {
	store *library.Store
	memo  stats.Memo
}

// Stats derives stats from the current snapshot, reusing the last result when nothing changed.
func (u *userLibrary) Stats(now time.Time) models.Stats {
	entries, version := u.store.Snapshot()
	return u.memo.Derive(version, entries, now)
}

// libraries binds one [library.Store] per user on first use.
type libraries struct {
	coll   library.Collection
	logger *log.Logger
	now    func() time.Time

	mu    sync.Mutex
	users map[string]*userLibrary
}

func newLibraries(coll library.Collection, logger *log.Logger, now func() time.Time) *libraries {
	return &libraries{coll: coll, logger: logger, now: now, users: make(map[string]*userLibrary)}
}

func (l *libraries) For(ctx context.Context, sess *models.Session) (*userLibrary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if u, ok := l.users[sess.UID]; ok {
		return u, nil
	}

	store := library.NewStore(l.coll, library.WithLogger(l.logger), library.WithClock(l.now))
	if err := store.Bind(ctx, sess); err != nil {
		return nil, err
	}

	u := &userLibrary{store: store}
	l.users[sess.UID] = u
	l.logger.Debug("bound library", "user", sess.UID)
	return u, nil
}

func (l *libraries) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for uid, u := range l.users {
		u.store.Close()
		delete(l.users, uid)
	}
}
