// Package comments is the per-book discussion store.
//
// A [Store] follows one book's comments through a live subscription, newest first. Adding stamps
// the signed-in author; deleting is refused for anyone but the author, both here and again in
// the backing store.
package comments

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/readx/internal/live"
	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/repositories"
	"github.com/desertthunder/readx/internal/shared"
)

// Collection is the persistence collaborator for comments keyed by book id.
//
// Delete must refuse to remove a comment not written by userID.
type Collection interface {
	Subscribe(ctx context.Context, bookID string) (<-chan []models.Comment, error)
	Create(ctx context.Context, comment models.Comment) (models.Comment, error)
	Delete(ctx context.Context, commentID, userID string) error
}

// SQLCollection is a [Collection] over [repositories.CommentRepository].
type SQLCollection struct {
	repo   *repositories.CommentRepository
	hub    *live.Hub[[]models.Comment]
	logger *log.Logger
}

// NewSQLCollection creates a collection whose subscribers are notified after every write.
func NewSQLCollection(repo *repositories.CommentRepository, logger *log.Logger) *SQLCollection {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &SQLCollection{repo: repo, hub: live.NewHub(repo.ListByBook, logger), logger: logger}
}

func (c *SQLCollection) Subscribe(ctx context.Context, bookID string) (<-chan []models.Comment, error) {
	return c.hub.Subscribe(ctx, bookID)
}

func (c *SQLCollection) Create(ctx context.Context, comment models.Comment) (models.Comment, error) {
	if err := c.repo.Create(ctx, &comment); err != nil {
		return models.Comment{}, err
	}
	c.publish(ctx, comment.BookID)
	return comment, nil
}

func (c *SQLCollection) Delete(ctx context.Context, commentID, userID string) error {
	comment, err := c.repo.Get(ctx, commentID)
	if err != nil {
		return err
	}
	if err := c.repo.Delete(ctx, commentID, userID); err != nil {
		return err
	}
	c.publish(ctx, comment.BookID)
	return nil
}

// Close ends every open subscription.
func (c *SQLCollection) Close() {
	c.hub.Close()
}

// publish pushes a fresh snapshot after a write. The write already succeeded, so a failed reload is
// only logged.
func (c *SQLCollection) publish(ctx context.Context, bookID string) {
	if err := c.hub.Publish(context.WithoutCancel(ctx), bookID); err != nil {
		c.logger.Warn("comment subscribers missed a snapshot", "book", bookID, "error", err)
	}
}

// Store follows the comments of one book.
type Store struct {
	coll   Collection
	logger *log.Logger
	now    func() time.Time

	mu       sync.RWMutex
	session  *models.Session
	bookID   string
	comments []models.Comment
	loading  bool
	onChange func([]models.Comment)

	mirror *live.Mirror[[]models.Comment]
}

// Option configures a [Store].
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock replaces time.Now for createdAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithOnChange registers fn to receive every new snapshot. fn must not call Store methods that write.
func WithOnChange(fn func([]models.Comment)) Option {
	return func(s *Store) { s.onChange = fn }
}

// NewStore creates a store acting as sess. A nil session can read but not write.
func NewStore(coll Collection, sess *models.Session, opts ...Option) *Store {
	s := &Store{coll: coll, session: sess, logger: shared.DiscardLogger(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetSession changes the acting identity.
func (s *Store) SetSession(sess *models.Session) {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
}

// Bind follows bookID, replacing any previous subscription. It returns once the first snapshot is applied.
func (s *Store) Bind(ctx context.Context, bookID string) error {
	if strings.TrimSpace(bookID) == "" {
		return fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}
	s.stop()

	s.mu.Lock()
	s.bookID = bookID
	s.comments = nil
	s.loading = true
	s.mu.Unlock()

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ch, err := s.coll.Subscribe(subCtx, bookID)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		return err
	}

	select {
	case snapshot, ok := <-ch:
		if ok {
			s.apply(snapshot)
		}
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}

	mirror := live.Follow(cancel, ch, s.apply)
	s.mu.Lock()
	s.mirror = mirror
	s.mu.Unlock()
	return nil
}

// Close ends the live subscription.
func (s *Store) Close() {
	s.stop()
}

func (s *Store) stop() {
	s.mu.Lock()
	mirror := s.mirror
	s.mirror = nil
	s.mu.Unlock()

	if mirror != nil {
		mirror.Stop()
	}
}

// settle applies snapshots already published by a write.
func (s *Store) settle() {
	s.mu.RLock()
	mirror := s.mirror
	s.mu.RUnlock()

	if mirror != nil {
		mirror.Sync()
	}
}

func (s *Store) apply(snapshot []models.Comment) {
	s.mu.Lock()
	s.comments = slices.Clone(snapshot)
	s.loading = false
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(slices.Clone(snapshot))
	}
}

// Comments returns the current snapshot, newest first.
func (s *Store) Comments() []models.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.comments)
}

// Loading reports whether the first snapshot is still pending.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// CanDelete reports whether the acting user wrote c.
func (s *Store) CanDelete(c models.Comment) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil && s.session.UID == c.UserID
}

// Add posts text to the bound book as the acting user.
func (s *Store) Add(ctx context.Context, text string) (models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, fmt.Errorf("%w: comment text is empty", shared.ErrInvalidInput)
	}

	s.mu.RLock()
	sess, bookID := s.session, s.bookID
	s.mu.RUnlock()

	if sess == nil {
		return models.Comment{}, shared.ErrNotAuthenticated
	}
	if bookID == "" {
		return models.Comment{}, fmt.Errorf("%w: no book bound", shared.ErrMissingArgument)
	}

	comment := models.Comment{
		BookID:    bookID,
		UserID:    sess.UID,
		UserName:  authorName(sess),
		Text:      text,
		CreatedAt: s.now(),
	}

	created, err := s.coll.Create(ctx, comment)
	if err != nil {
		s.logger.Error("add comment failed", "book", bookID, "error", err)
		return models.Comment{}, err
	}
	s.settle()
	return created, nil
}

// Delete removes commentID written by authorID. Only the author may delete.
func (s *Store) Delete(ctx context.Context, commentID, authorID string) error {
	s.mu.RLock()
	sess := s.session
	s.mu.RUnlock()

	if sess == nil {
		return shared.ErrNotAuthenticated
	}
	if authorID != sess.UID {
		return fmt.Errorf("%w: only the author can delete a comment", shared.ErrNotAuthorized)
	}

	if err := s.coll.Delete(ctx, commentID, sess.UID); err != nil {
		s.logger.Error("delete comment failed", "comment", commentID, "error", err)
		return err
	}

	s.settle()
	s.mu.Lock()
	s.comments = slices.DeleteFunc(slices.Clone(s.comments), func(c models.Comment) bool { return c.ID == commentID })
	s.mu.Unlock()
	return nil
}

func authorName(sess *models.Session) string {
	if name := strings.TrimSpace(sess.DisplayName); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(sess.Email, "@"); ok && local != "" {
		return local
	}
	return "Anonymous"
}
