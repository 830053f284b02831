package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/readx/internal/auth"
	"github.com/desertthunder/readx/internal/chat"
	"github.com/desertthunder/readx/internal/comments"
	"github.com/desertthunder/readx/internal/formatter"
	"github.com/desertthunder/readx/internal/library"
	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/search"
	"github.com/desertthunder/readx/internal/services"
	"github.com/desertthunder/readx/internal/shared"
	"github.com/desertthunder/readx/internal/stats"
)

// API serves the reading tracker over HTTP.
type API struct {
	identity auth.Identity
	catalog  services.Catalog
	comments comments.Collection
	libs     *libraries
	chats    *chat.Registry
	pageSize int
	logger   *log.Logger
	now      func() time.Time
}

// Option configures an [API].
type Option func(*API)

func WithLogger(l *log.Logger) Option {
	return func(a *API) { a.logger = l }
}

// WithClock replaces time.Now for stats and relative comment times.
func WithClock(now func() time.Time) Option {
	return func(a *API) { a.now = now }
}

// WithPageSize sets the default search page size.
func WithPageSize(n int) Option {
	return func(a *API) {
		if n > 0 {
			a.pageSize = min(n, services.MaxResultsPerRequest)
		}
	}
}

// NewAPI wires the HTTP surface to its collaborators.
func NewAPI(identity auth.Identity, catalog services.Catalog, lib library.Collection, cmts comments.Collection, completer services.Completer, opts ...Option) *API {
	a := &API{
		identity: identity,
		catalog:  catalog,
		comments: cmts,
		pageSize: search.DefaultPageSize,
		logger:   shared.DiscardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.libs = newLibraries(lib, a.logger, a.now)
	a.chats = chat.NewRegistry(completer, chat.WithLogger(a.logger))
	return a
}

// Handler returns a router with logging, panic recovery and every route registered.
func (a *API) Handler() http.Handler {
	r := NewBasicRouter()
	r.Use(Recover(a.logger), Logging(a.logger))
	a.Register(r)
	return r
}

// Register mounts the routes on r.
func (a *API) Register(r Router) {
	authed := RequireAuth(a.identity)
	protect := func(h http.HandlerFunc) http.Handler { return authed(h) }

	r.Handle(http.MethodPost, "/api/auth/signup", http.HandlerFunc(a.signup))
	r.Handle(http.MethodPost, "/api/auth/login", http.HandlerFunc(a.login))
	r.Handle(http.MethodGet, "/api/auth/me", protect(a.me))
	r.Handle(http.MethodPut, "/api/auth/goal", protect(a.updateGoal))

	r.Handle(http.MethodGet, "/api/books/search", http.HandlerFunc(a.searchBooks))
	r.Handle(http.MethodGet, "/api/books/{id}", http.HandlerFunc(a.getBook))

	r.Handle(http.MethodGet, "/api/library", protect(a.listLibrary))
	r.Handle(http.MethodPost, "/api/library", protect(a.saveBook))
	r.Handle(http.MethodDelete, "/api/library/{id}", protect(a.removeEntry))
	r.Handle(http.MethodPatch, "/api/library/{id}/progress", protect(a.updateProgress))
	r.Handle(http.MethodPatch, "/api/library/{id}/page", protect(a.movePage))
	r.Handle(http.MethodPut, "/api/library/{id}/notes", protect(a.updateNotes))
	r.Handle(http.MethodGet, "/api/stats", protect(a.getStats))

	r.Handle(http.MethodGet, "/api/books/{id}/comments", protect(a.listComments))
	r.Handle(http.MethodPost, "/api/books/{id}/comments", protect(a.addComment))
	r.Handle(http.MethodDelete, "/api/books/{id}/comments/{commentId}", protect(a.deleteComment))

	r.Handle(http.MethodGet, "/api/books/{id}/chat", protect(a.getChat))
	r.Handle(http.MethodPost, "/api/books/{id}/chat", protect(a.sendChat))

	r.Handle(http.MethodGet, "/ws/library", protect(a.streamLibrary))
	r.Handle(http.MethodGet, "/ws/books/{id}/comments", protect(a.streamComments))
}

// Close ends every live library subscription.
func (a *API) Close() {
	a.libs.Close()
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

func (a *API) signup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, a.logger, err)
		return
	}

	sess, err := a.identity.Signup(r.Context(), body.Email, body.Password, body.Name)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, a.logger, err)
		return
	}

	sess, err := a.identity.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	sess, err := mustSession(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	out := *sess
	out.Token = ""
	writeJSON(w, http.StatusOK, out)
}

func (a *API) updateGoal(w http.ResponseWriter, r *http.Request) {
	sess, err := mustSession(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	var body struct {
		YearlyGoal int `json:"yearlyGoal"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, a.logger, err)
		return
	}

	if err := a.identity.UpdateYearlyGoal(r.Context(), sess.UID, body.YearlyGoal); err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"yearlyGoal": body.YearlyGoal})
}

type searchResponse struct {
	Books      []models.Book `json:"books"`
	TotalItems int           `json:"totalItems"`
	StartIndex int           `json:"startIndex"`
	HasMore    bool          `json:"hasMore"`
}

func (a *API) searchBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))

	start, err := intParam(q.Get("startIndex"), 0)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	size, err := intParam(q.Get("maxResults"), a.pageSize)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	size = max(1, min(size, services.MaxResultsPerRequest))

	filters := models.SearchFilters{
		PrintType:    q.Get("printType"),
		Availability: q.Get("availability"),
		Language:     q.Get("language"),
		Subject:      q.Get("subject"),
	}
	if err := filters.Validate(); err != nil {
		writeError(w, a.logger, err)
		return
	}

	if query == "" {
		writeJSON(w, http.StatusOK, searchResponse{Books: []models.Book{}, StartIndex: start})
		return
	}

	res, err := a.catalog.Search(r.Context(), services.SearchRequest{
		Query:      query,
		Filters:    filters,
		StartIndex: start,
		MaxResults: size,
	})
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Books:      orEmpty(res.Books),
		TotalItems: res.TotalItems,
		StartIndex: start,
		HasMore:    search.HasMore(start, size, res.TotalItems),
	})
}

func (a *API) getBook(w http.ResponseWriter, r *http.Request) {
	book, err := a.catalog.GetBook(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*models.Book
		PlainDescription string `json:"plainDescription"`
	}{book, formatter.CleanDescription(book.Description)})
}

// library loads the caller's session and bound library.
func (a *API) library(r *http.Request) (*models.Session, *userLibrary, error) {
	sess, err := mustSession(r)
	if err != nil {
		return nil, nil, err
	}
	lib, err := a.libs.For(r.Context(), sess)
	if err != nil {
		return nil, nil, err
	}
	return sess, lib, nil
}

func (a *API) listLibrary(w http.ResponseWriter, r *http.Request) {
	_, lib, err := a.library(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(lib.store.Entries()))
}

func (a *API) saveBook(w http.ResponseWriter, r *http.Request) {
	_, lib, err := a.library(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	var body struct {
		BookID string `json:"bookId"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, a.logger, err)
		return
	}
	if strings.TrimSpace(body.BookID) == "" {
		writeError(w, a.logger, fmt.Errorf("%w: bookId", shared.ErrMissingArgument))
		return
	}
	if lib.store.IsSaved(body.BookID) {
		writeError(w, a.logger, fmt.Errorf("%w: %s", shared.ErrDuplicateEntry, body.BookID))
		return
	}

	book, err := a.catalog.GetBook(r.Context(), body.BookID)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	entry, err := lib.store.Save(r.Context(), *book)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) removeEntry(w http.ResponseWriter, r *http.Request) {
	_, lib, err := a.library(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	if err := lib.store.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, a.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) updateProgress(w http.ResponseWriter, r *http.Request) {
	_, lib, err := a.library(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	var body struct {
		Progress    int  `json:"progress"`
		CurrentPage *int `json:"currentPage"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, a.logger, err)
		return
	}

	id := r.PathValue("id")
	var entry models.LibraryEntry
	if body.CurrentPage == nil {
		entry, err = lib.store.SetProgress(r.Context(), id, body.Progress)
	} else {
		err = lib.store.UpdateProgress(r.Context(), id, body.Progress, library.Fields{CurrentPage: body.CurrentPage})
		entry, _ = lib.store.EntryByID(id)
	}
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// movePage accepts exactly one of {"page": n}, {"jump": "50%"} or {"step": "next"|"prev"}.
func (a *API) movePage(w http.ResponseWriter, r *http.Request) {
	_, lib, err := a.library(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	var body struct {
		Page *int   `json:"page"`
		Jump string `json:"jump"`
		Step string `json:"step"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, a.logger, err)
		return
	}

	id := r.PathValue("id")
	var entry models.LibraryEntry
	switch {
	case body.Page != nil:
		entry, err = lib.store.SetPage(r.Context(), id, *body.Page)
	case body.Jump != "":
		entry, err = lib.store.Jump(r.Context(), id, body.Jump)
	case body.Step == "next":
		entry, err = lib.store.NextPage(r.Context(), id)
	case body.Step == "prev":
		entry, err = lib.store.PrevPage(r.Context(), id)
	default:
		err = fmt.Errorf("%w: one of page, jump or step (next|prev) is required", shared.ErrInvalidArgument)
	}
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) updateNotes(w http.ResponseWriter, r *http.Request) {
	_, lib, err := a.library(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	var body struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, a.logger, err)
		return
	}

	id := r.PathValue("id")
	if _, ok := lib.store.EntryByID(id); !ok {
		writeError(w, a.logger, fmt.Errorf("%w: %s", shared.ErrEntryNotFound, id))
		return
	}
	if err := lib.store.AddNote(r.Context(), id, body.Notes); err != nil {
		writeError(w, a.logger, err)
		return
	}
	entry, _ := lib.store.EntryByID(id)
	writeJSON(w, http.StatusOK, entry)
}

type statsResponse struct {
	Stats        models.Stats `json:"stats"`
	YearlyGoal   int          `json:"yearlyGoal"`
	GoalProgress int          `json:"goalProgress"`
}

func (a *API) getStats(w http.ResponseWriter, r *http.Request) {
	sess, lib, err := a.library(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	s := lib.Stats(a.now())
	writeJSON(w, http.StatusOK, statsResponse{
		Stats:        s,
		YearlyGoal:   sess.YearlyGoal,
		GoalProgress: stats.GoalProgress(s.Completed, sess.YearlyGoal),
	})
}

type commentView struct {
	models.Comment
	CanDelete bool   `json:"canDelete"`
	Age       string `json:"age"`
}

// bookComments binds a short-lived comment store to the path's book as the caller.
func (a *API) bookComments(r *http.Request) (*comments.Store, error) {
	sess, err := mustSession(r)
	if err != nil {
		return nil, err
	}
	store := comments.NewStore(a.comments, sess, comments.WithLogger(a.logger), comments.WithClock(a.now))
	if err := store.Bind(r.Context(), r.PathValue("id")); err != nil {
		return nil, err
	}
	return store, nil
}

func (a *API) listComments(w http.ResponseWriter, r *http.Request) {
	store, err := a.bookComments(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	defer store.Close()

	now := a.now()
	list := store.Comments()
	views := make([]commentView, 0, len(list))
	for _, c := range list {
		views = append(views, commentView{Comment: c, CanDelete: store.CanDelete(c), Age: formatter.RelativeTime(c.CreatedAt, now)})
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) addComment(w http.ResponseWriter, r *http.Request) {
	store, err := a.bookComments(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	defer store.Close()

	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, a.logger, err)
		return
	}

	created, err := store.Add(r.Context(), body.Text)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) deleteComment(w http.ResponseWriter, r *http.Request) {
	store, err := a.bookComments(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	defer store.Close()

	id := r.PathValue("commentId")
	var target *models.Comment
	for _, c := range store.Comments() {
		if c.ID == id {
			target = &c
			break
		}
	}
	if target == nil {
		writeError(w, a.logger, fmt.Errorf("%w: %s", shared.ErrCommentNotFound, id))
		return
	}

	if err := store.Delete(r.Context(), id, target.UserID); err != nil {
		writeError(w, a.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chatResponse struct {
	Messages     []models.ChatMessage `json:"messages"`
	QuickPrompts []string             `json:"quickPrompts"`
	Pending      bool                 `json:"pending"`
}

// chatSession finds the book, preferring the caller's saved copy and its current page.
func (a *API) chatSession(r *http.Request, page *int) (*chat.Session, error) {
	sess, lib, err := a.library(r)
	if err != nil {
		return nil, err
	}

	bookID := r.PathValue("id")
	var (
		book    models.Book
		current int
	)
	if entry, ok := lib.store.Entry(bookID); ok {
		book, current = entry.Book, entry.CurrentPage
	} else {
		found, err := a.catalog.GetBook(r.Context(), bookID)
		if err != nil {
			return nil, err
		}
		book = *found
	}
	if page != nil {
		current = *page
	}
	return a.chats.Session(sess.UID, book, current), nil
}

func (a *API) getChat(w http.ResponseWriter, r *http.Request) {
	cs, err := a.chatSession(r, nil)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Messages: cs.Messages(), QuickPrompts: chat.QuickPrompts, Pending: cs.Pending()})
}

func (a *API) sendChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message     string `json:"message"`
		CurrentPage *int   `json:"currentPage"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, a.logger, err)
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeError(w, a.logger, fmt.Errorf("%w: message is empty", shared.ErrInvalidInput))
		return
	}

	cs, err := a.chatSession(r, body.CurrentPage)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	if !cs.Send(r.Context(), body.Message) {
		writeError(w, a.logger, fmt.Errorf("%w: a reply is already pending", shared.ErrDuplicateEntry))
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Messages: cs.Messages(), QuickPrompts: chat.QuickPrompts})
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", shared.ErrInvalidArgument, raw)
	}
	return n, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
