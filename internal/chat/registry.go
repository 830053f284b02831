package chat

import (
	"sync"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/services"
)

type sessionKey struct{ user, book string }

// Registry keeps one [Session] per user and book.
type Registry struct {
	completer services.Completer
	opts      []Option

	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

func NewRegistry(completer services.Completer, opts ...Option) *Registry {
	return &Registry{completer: completer, opts: opts, sessions: make(map[sessionKey]*Session)}
}

// Session returns the user's conversation about book, starting one when needed.
// The current page of an existing session is updated.
func (r *Registry) Session(userID string, book models.Book, currentPage int) *Session {
	key := sessionKey{userID, book.ID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[key]; ok {
		s.SetCurrentPage(currentPage)
		return s
	}
	s := NewSession(book, currentPage, r.completer, r.opts...)
	r.sessions[key] = s
	return s
}

// Forget drops every conversation belonging to userID.
func (r *Registry) Forget(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.sessions {
		if key.user == userID {
			delete(r.sessions, key)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
