package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
)

// Identity is what a [Provider] signs in against. *Service satisfies it.
type Identity interface {
	Signup(ctx context.Context, email, password, name string) (*models.Session, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Verify(ctx context.Context, token string) (*models.Session, error)
	UpdateYearlyGoal(ctx context.Context, uid string, n int) error
}

// Provider holds the current session and notifies observers when it changes.
// A nil session means signed out.
type Provider struct {
	identity Identity

	mu        sync.Mutex
	current   *models.Session
	observers map[int]func(*models.Session)
	nextID    int
}

func NewProvider(identity Identity) *Provider {
	return &Provider{identity: identity, observers: make(map[int]func(*models.Session))}
}

// Current returns a copy of the session, or nil when signed out.
func (p *Provider) Current() *models.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return clone(p.current)
}

// Observe calls fn with the current session now and after every change until cancel is called.
func (p *Provider) Observe(fn func(*models.Session)) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.observers[id] = fn
	current := clone(p.current)
	p.mu.Unlock()

	fn(current)

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

func (p *Provider) Login(ctx context.Context, email, password string) (*models.Session, error) {
	sess, err := p.identity.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	p.set(sess)
	return clone(sess), nil
}

func (p *Provider) Signup(ctx context.Context, email, password, name string) (*models.Session, error) {
	sess, err := p.identity.Signup(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	p.set(sess)
	return clone(sess), nil
}

// Restore signs in with a previously issued token.
func (p *Provider) Restore(ctx context.Context, token string) (*models.Session, error) {
	sess, err := p.identity.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	p.set(sess)
	return clone(sess), nil
}

// Logout clears the session. Observers are notified only if someone was signed in.
func (p *Provider) Logout() {
	p.mu.Lock()
	wasSignedIn := p.current != nil
	p.mu.Unlock()

	if wasSignedIn {
		p.set(nil)
	}
}

// UpdateYearlyGoal changes the signed-in account's goal.
func (p *Provider) UpdateYearlyGoal(ctx context.Context, n int) error {
	sess := p.Current()
	if sess == nil {
		return fmt.Errorf("%w: sign in to set a goal", shared.ErrNotAuthenticated)
	}
	if err := p.identity.UpdateYearlyGoal(ctx, sess.UID, n); err != nil {
		return err
	}

	sess.YearlyGoal = n
	p.set(sess)
	return nil
}

func (p *Provider) set(sess *models.Session) {
	p.mu.Lock()
	p.current = clone(sess)
	fns := make([]func(*models.Session), 0, len(p.observers))
	for _, fn := range p.observers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(clone(sess))
	}
}

func clone(s *models.Session) *models.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
