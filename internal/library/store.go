package library

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/readx/internal/live"
	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
)

// Fields are merged into an entry alongside a progress update.
type Fields struct {
	CurrentPage *int
}

// Store mirrors one user's library. The zero value is not usable; call [NewStore].
type Store struct {
	coll   Collection
	logger *log.Logger
	now    func() time.Time

	// saveMu serializes Save so the duplicate check and the write are atomic per store.
	saveMu sync.Mutex

	mu        sync.RWMutex
	session   *models.Session
	entries   []models.LibraryEntry
	loading   bool
	lastErr   error
	version   uint64
	listeners map[int]func([]models.LibraryEntry)
	nextID    int

	mirror *live.Mirror[[]models.LibraryEntry]
}

// Option configures a [Store].
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock replaces time.Now for savedAt and lastRead stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an unbound store. It reports no entries until [Store.Bind] is called with a session.
func NewStore(coll Collection, opts ...Option) *Store {
	s := &Store{
		coll:      coll,
		logger:    shared.DiscardLogger(),
		now:       time.Now,
		listeners: make(map[int]func([]models.LibraryEntry)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind follows sess's collection, replacing any previous subscription.
//
// A nil session clears the snapshot and resets loading. For a non-nil session Bind returns once
// the first snapshot has been applied.
func (s *Store) Bind(ctx context.Context, sess *models.Session) error {
	s.stop()

	if sess == nil {
		s.mu.Lock()
		s.session = nil
		s.entries = nil
		s.loading = false
		s.lastErr = nil
		s.version++
		s.mu.Unlock()
		s.notify()
		return nil
	}

	s.mu.Lock()
	s.session = sess
	s.entries = nil
	s.loading = true
	s.lastErr = nil
	s.version++
	s.mu.Unlock()

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ch, err := s.coll.Subscribe(subCtx, sess.UID)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.loading = false
		s.lastErr = err
		s.mu.Unlock()
		s.logger.Error("library subscription failed", "user", sess.UID, "error", err)
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

// settle waits for snapshots already published by a write to be applied,
// so they cannot land after the optimistic update that follows.
func (s *Store) settle() {
	s.mu.RLock()
	mirror := s.mirror
	s.mu.RUnlock()

	if mirror != nil {
		mirror.Sync()
	}
}

func (s *Store) apply(snapshot []models.LibraryEntry) {
	s.mu.Lock()
	s.entries = slices.Clone(snapshot)
	s.loading = false
	s.lastErr = nil
	s.version++
	s.mu.Unlock()
	s.notify()
}

// OnChange registers fn to receive every new snapshot and returns a function that unregisters it.
// fn runs on the subscription goroutine and must not call Store mutations.
func (s *Store) OnChange(fn func([]models.LibraryEntry)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	entries := slices.Clone(s.entries)
	fns := make([]func([]models.LibraryEntry), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(entries)
	}
}

// Entries returns a copy of the current snapshot.
func (s *Store) Entries() []models.LibraryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// Snapshot returns the current entries together with their version.
func (s *Store) Snapshot() ([]models.LibraryEntry, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries), s.version
}

// Loading reports whether the first snapshot for the bound session is still pending.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last subscription error, if any.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Version increases every time the visible snapshot changes.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Session returns the bound session or nil.
func (s *Store) Session() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// IsSaved reports whether bookID is in the current snapshot.
func (s *Store) IsSaved(bookID string) bool {
	_, ok := s.Entry(bookID)
	return ok
}

// Entry returns the saved entry for bookID.
func (s *Store) Entry(bookID string) (models.LibraryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Book.ID == bookID {
			return e, true
		}
	}
	return models.LibraryEntry{}, false
}

// EntryByID returns the entry with persistence id entryID.
func (s *Store) EntryByID(entryID string) (models.LibraryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == entryID {
			return e, true
		}
	}
	return models.LibraryEntry{}, false
}

func (s *Store) uid() (string, error) {
	sess := s.Session()
	if sess == nil {
		return "", shared.ErrNotAuthenticated
	}
	return sess.UID, nil
}

// Save adds book with zero progress and empty notes.
func (s *Store) Save(ctx context.Context, book models.Book) (models.LibraryEntry, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	uid, err := s.uid()
	if err != nil {
		return models.LibraryEntry{}, err
	}

	if s.IsSaved(book.ID) {
		return models.LibraryEntry{}, fmt.Errorf("%w: %s", shared.ErrDuplicateEntry, book.ID)
	}

	entry := models.LibraryEntry{UserID: uid, Book: book, SavedAt: s.now()}
	if err := entry.Validate(); err != nil {
		return models.LibraryEntry{}, err
	}

	created, err := s.coll.Create(ctx, entry)
	if err != nil {
		if !errors.Is(err, shared.ErrDuplicateEntry) {
			s.logger.Error("save failed", "user", uid, "book", book.ID, "error", err)
		}
		return models.LibraryEntry{}, err
	}

	s.settle()
	s.mutate(func(entries []models.LibraryEntry) []models.LibraryEntry {
		if slices.ContainsFunc(entries, func(e models.LibraryEntry) bool { return e.ID == created.ID }) {
			return entries
		}
		return append([]models.LibraryEntry{created}, entries...)
	})

	s.logger.Debug("saved book", "user", uid, "book", book.ID)
	return created, nil
}

// Remove deletes entryID. Removing an entry that no longer exists is not an error.
func (s *Store) Remove(ctx context.Context, entryID string) error {
	uid, err := s.uid()
	if err != nil {
		return err
	}

	if err := s.coll.Delete(ctx, uid, entryID); err != nil && !errors.Is(err, shared.ErrEntryNotFound) {
		s.logger.Error("remove failed", "user", uid, "entry", entryID, "error", err)
		return err
	}

	s.settle()
	s.mutate(func(entries []models.LibraryEntry) []models.LibraryEntry {
		return slices.DeleteFunc(entries, func(e models.LibraryEntry) bool { return e.ID == entryID })
	})
	return nil
}

// UpdateProgress sets progress, merges extra, and stamps lastRead.
func (s *Store) UpdateProgress(ctx context.Context, entryID string, progress int, extra Fields) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("%w: progress %d out of range 0..100", shared.ErrInvalidInput, progress)
	}

	uid, err := s.uid()
	if err != nil {
		return err
	}

	entry, ok := s.EntryByID(entryID)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrEntryNotFound, entryID)
	}
	if p := extra.CurrentPage; p != nil {
		if *p < 0 || (entry.Book.PageCount > 0 && *p > entry.Book.PageCount) {
			return fmt.Errorf("%w: page %d out of range 0..%d", shared.ErrInvalidInput, *p, entry.Book.PageCount)
		}
	}

	now := s.now()
	patch := Patch{Progress: &progress, CurrentPage: extra.CurrentPage, LastRead: &now}
	if err := s.coll.Update(ctx, uid, entryID, patch); err != nil {
		s.logger.Error("progress update failed", "user", uid, "entry", entryID, "error", err)
		return err
	}

	s.patchLocal(entryID, func(e *models.LibraryEntry) {
		e.Progress = progress
		if extra.CurrentPage != nil {
			e.CurrentPage = *extra.CurrentPage
		}
		e.LastRead = &now
	})
	return nil
}

// AddNote replaces the notes on entryID.
func (s *Store) AddNote(ctx context.Context, entryID, text string) error {
	uid, err := s.uid()
	if err != nil {
		return err
	}

	if err := s.coll.Update(ctx, uid, entryID, Patch{Notes: &text}); err != nil {
		s.logger.Error("note update failed", "user", uid, "entry", entryID, "error", err)
		return err
	}

	s.patchLocal(entryID, func(e *models.LibraryEntry) { e.Notes = text })
	return nil
}

// SetPage moves to page, clamped to [0, total], and derives progress from it.
// Books with an unknown page count are treated as one page long.
func (s *Store) SetPage(ctx context.Context, entryID string, page int) (models.LibraryEntry, error) {
	entry, ok := s.EntryByID(entryID)
	if !ok {
		return models.LibraryEntry{}, fmt.Errorf("%w: %s", shared.ErrEntryNotFound, entryID)
	}

	total := totalPages(entry.Book)
	page = max(0, min(total, page))
	progress := min(100, int(math.Round(float64(page)/float64(total)*100)))

	if err := s.UpdateProgress(ctx, entryID, progress, Fields{CurrentPage: &page}); err != nil {
		return models.LibraryEntry{}, err
	}
	updated, _ := s.EntryByID(entryID)
	return updated, nil
}

// SetProgress sets progress and derives the current page from it.
func (s *Store) SetProgress(ctx context.Context, entryID string, progress int) (models.LibraryEntry, error) {
	entry, ok := s.EntryByID(entryID)
	if !ok {
		return models.LibraryEntry{}, fmt.Errorf("%w: %s", shared.ErrEntryNotFound, entryID)
	}
	if progress < 0 || progress > 100 {
		return models.LibraryEntry{}, fmt.Errorf("%w: progress %d out of range 0..100", shared.ErrInvalidInput, progress)
	}

	page := int(math.Round(float64(progress) / 100 * float64(totalPages(entry.Book))))
	if err := s.UpdateProgress(ctx, entryID, progress, Fields{CurrentPage: &page}); err != nil {
		return models.LibraryEntry{}, err
	}
	updated, _ := s.EntryByID(entryID)
	return updated, nil
}

// NextPage advances one page unless already at the end.
func (s *Store) NextPage(ctx context.Context, entryID string) (models.LibraryEntry, error) {
	entry, ok := s.EntryByID(entryID)
	if !ok {
		return models.LibraryEntry{}, fmt.Errorf("%w: %s", shared.ErrEntryNotFound, entryID)
	}
	if entry.CurrentPage >= totalPages(entry.Book) {
		return entry, nil
	}
	return s.SetPage(ctx, entryID, entry.CurrentPage+1)
}

// PrevPage goes back one page unless already at the start.
func (s *Store) PrevPage(ctx context.Context, entryID string) (models.LibraryEntry, error) {
	entry, ok := s.EntryByID(entryID)
	if !ok {
		return models.LibraryEntry{}, fmt.Errorf("%w: %s", shared.ErrEntryNotFound, entryID)
	}
	if entry.CurrentPage <= 0 {
		return entry, nil
	}
	return s.SetPage(ctx, entryID, entry.CurrentPage-1)
}

// QuickJump is a preset progress position.
type QuickJump struct {
	Label   string
	Percent int
}

// QuickJumps are the preset reading positions.
var QuickJumps = []QuickJump{
	{"Start", 0},
	{"25%", 25},
	{"50%", 50},
	{"75%", 75},
	{"End", 100},
}

// Jump moves to the preset labelled label (case-insensitive).
func (s *Store) Jump(ctx context.Context, entryID, label string) (models.LibraryEntry, error) {
	for _, j := range QuickJumps {
		if strings.EqualFold(j.Label, label) {
			entry, ok := s.EntryByID(entryID)
			if !ok {
				return models.LibraryEntry{}, fmt.Errorf("%w: %s", shared.ErrEntryNotFound, entryID)
			}
			page := int(math.Round(float64(j.Percent) / 100 * float64(totalPages(entry.Book))))
			return s.SetPage(ctx, entryID, page)
		}
	}
	return models.LibraryEntry{}, fmt.Errorf("%w: unknown jump %q", shared.ErrInvalidArgument, label)
}

func totalPages(b models.Book) int {
	if b.PageCount > 0 {
		return b.PageCount
	}
	return 1
}

func (s *Store) mutate(fn func([]models.LibraryEntry) []models.LibraryEntry) {
	s.mu.Lock()
	s.entries = fn(slices.Clone(s.entries))
	s.version++
	s.mu.Unlock()
	s.notify()
}

func (s *Store) patchLocal(entryID string, fn func(*models.LibraryEntry)) {
	s.settle()
	s.mutate(func(entries []models.LibraryEntry) []models.LibraryEntry {
		for i := range entries {
			if entries[i].ID == entryID {
				fn(&entries[i])
			}
		}
		return entries
	})
}
