package search

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/services"
	"github.com/desertthunder/readx/internal/shared"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultPageSize = 20
)

// User-facing messages for settled states.
const (
	MsgSearchFailed = "Failed to search books"
	MsgNoResults    = "No books found"
)

// Reason classifies a settled state that has a message.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonNoResults Reason = "no-results"
	ReasonError     Reason = "error"
)

// State is a copy of the controller's visible state.
type State struct {
	Query          string               `json:"query"`
	DebouncedQuery string               `json:"debouncedQuery"`
	Filters        models.SearchFilters `json:"filters"`
	Results        []models.Book        `json:"results"`
	StartIndex     int                  `json:"startIndex"`
	TotalItems     int                  `json:"totalItems"`
	HasMore        bool                 `json:"hasMore"`
	Loading        bool                 `json:"loading"`
	LoadingMore    bool                 `json:"loadingMore"`
	Message        string               `json:"message,omitempty"`
	Reason         Reason               `json:"reason,omitempty"`
	ViewMode       models.ViewMode      `json:"viewMode"`
}

// HasMore reports whether a catalog total leaves results beyond the page at offset.
func HasMore(offset, pageSize, totalItems int) bool {
	return offset+pageSize < totalItems
}

// Controller runs one search session. Methods are safe for concurrent use.
type Controller struct {
	catalog  services.Catalog
	debounce time.Duration
	pageSize int
	logger   *log.Logger

	onSettle func(query string, results []models.Book)
	onChange func(State)

	mu       sync.Mutex
	state    State
	seq      uint64
	timer    *time.Timer
	gen      uint64
	inflight context.CancelFunc
	closed   bool

	// query and filters of the last successful page, used by LoadMore
	lastQuery   string
	lastFilters models.SearchFilters

	wg sync.WaitGroup
}

// Option configures a [Controller].
type Option func(*Controller)

// WithDebounce sets the quiet period before a text change is searched.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithPageSize sets results per page.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = min(n, services.MaxResultsPerRequest)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithObserver is called with the query and results every time a search settles.
func WithObserver(fn func(query string, results []models.Book)) Option {
	return func(c *Controller) { c.onSettle = fn }
}

// WithStateListener is called with a copy of the state after every visible change.
func WithStateListener(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithFilters sets the initial filters.
func WithFilters(f models.SearchFilters) Option {
	return func(c *Controller) { c.state.Filters = f }
}

// NewController creates an idle controller.
func NewController(catalog services.Catalog, opts ...Option) *Controller {
	c := &Controller{
		catalog:  catalog,
		debounce: DefaultDebounce,
		pageSize: DefaultPageSize,
		logger:   shared.DiscardLogger(),
		state:    State{Filters: models.DefaultFilters(), ViewMode: models.ViewGrid},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	st := c.state
	st.Results = slices.Clone(c.state.Results)
	return st
}

// SetQuery records new query text. A non-blank query is searched once the text has been stable for
// the debounce period. A blank query clears results without a request.
func (c *Controller) SetQuery(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.state.Query = text
	c.stopTimer()

	if strings.TrimSpace(text) == "" {
		c.invalidate()
		c.state.DebouncedQuery = ""
		c.state.Results = nil
		c.state.StartIndex = 0
		c.state.TotalItems = 0
		c.state.HasMore = false
		c.state.Loading = false
		c.state.LoadingMore = false
		c.state.Message = ""
		c.state.Reason = ReasonNone
		c.lastQuery = ""
		c.emitLocked(true)
		return
	}

	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.debounce, func() { c.fire(gen) })
	c.mu.Unlock()
}

// Flush dispatches a pending debounced query immediately.
func (c *Controller) Flush() {
	c.mu.Lock()
	if c.timer == nil || !c.timer.Stop() {
		c.mu.Unlock()
		return
	}
	gen := c.gen
	c.timer = nil
	c.mu.Unlock()

	c.fire(gen)
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.timer = nil
	c.state.DebouncedQuery = strings.TrimSpace(c.state.Query)
	c.dispatchLocked(c.state.DebouncedQuery, c.state.Filters, 0)
}

// SetFilters replaces the filters and immediately re-runs the current debounced query from the first page.
func (c *Controller) SetFilters(f models.SearchFilters) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.state.Filters = f
	if c.state.DebouncedQuery == "" {
		c.emitLocked(false)
		return
	}
	c.dispatchLocked(c.state.DebouncedQuery, f, 0)
}

// LoadMore fetches the next page of the last successful search and appends it.
// It reports false when there is nothing more to load or a request is already running.
func (c *Controller) LoadMore() bool {
	c.mu.Lock()
	if c.closed || !c.state.HasMore || c.state.Loading || c.state.LoadingMore || c.lastQuery == "" {
		c.mu.Unlock()
		return false
	}

	c.dispatchLocked(c.lastQuery, c.lastFilters, c.state.StartIndex+c.pageSize)
	return true
}

// SetViewMode changes the presentation mode.
func (c *Controller) SetViewMode(mode models.ViewMode) {
	c.mu.Lock()
	c.state.ViewMode = mode
	c.emitLocked(false)
}

// ToggleViewMode switches between grid and list.
func (c *Controller) ToggleViewMode() models.ViewMode {
	c.mu.Lock()
	if c.state.ViewMode == models.ViewList {
		c.state.ViewMode = models.ViewGrid
	} else {
		c.state.ViewMode = models.ViewList
	}
	mode := c.state.ViewMode
	c.emitLocked(false)
	return mode
}

// Wait blocks until no request is in flight.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels the pending debounce and any in-flight request. Later calls are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopTimer()
	c.invalidate()
	c.mu.Unlock()

	c.wg.Wait()
}

// dispatchLocked issues a request and releases c.mu. offset 0 starts a fresh search.
func (c *Controller) dispatchLocked(query string, filters models.SearchFilters, offset int) {
	c.invalidate()
	c.seq++
	id := c.seq

	ctx, cancel := context.WithCancel(context.Background())
	c.inflight = cancel

	fresh := offset == 0
	if fresh {
		c.state.Results = nil
		c.state.StartIndex = 0
		c.state.TotalItems = 0
		c.state.HasMore = false
		c.state.Loading = true
	} else {
		c.state.LoadingMore = true
	}
	c.state.Message = ""
	c.state.Reason = ReasonNone

	req := services.SearchRequest{Query: query, Filters: filters, StartIndex: offset, MaxResults: c.pageSize}

	c.wg.Add(1)
	go c.run(ctx, id, req, fresh)

	c.emitLocked(false)
}

func (c *Controller) run(ctx context.Context, id uint64, req services.SearchRequest, fresh bool) {
	defer c.wg.Done()

	res, err := c.catalog.Search(ctx, req)

	c.mu.Lock()
	if id != c.seq || c.closed {
		c.mu.Unlock()
		c.logger.Debug("dropping superseded search response", "q", req.Query, "start", req.StartIndex)
		return
	}
	c.inflight = nil
	c.state.Loading = false
	c.state.LoadingMore = false

	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.mu.Unlock()
			return
		}
		c.logger.Warn("search failed", "q", req.Query, "start", req.StartIndex, "error", err)
		c.state.Message = MsgSearchFailed
		c.state.Reason = ReasonError
		c.emitLocked(true)
		return
	}

	if fresh {
		c.state.Results = slices.Clone(res.Books)
	} else {
		c.state.Results = append(c.state.Results, res.Books...)
	}
	c.state.StartIndex = req.StartIndex
	c.state.TotalItems = res.TotalItems
	c.state.HasMore = HasMore(req.StartIndex, c.pageSize, res.TotalItems)
	c.lastQuery = req.Query
	c.lastFilters = req.Filters

	if fresh && len(res.Books) == 0 {
		c.state.Message = MsgNoResults
		c.state.Reason = ReasonNoResults
	}
	c.emitLocked(true)
}

// emitLocked releases c.mu and then notifies listeners.
func (c *Controller) emitLocked(settled bool) {
	st := c.snapshot()
	onChange, onSettle := c.onChange, c.onSettle
	c.mu.Unlock()

	if onChange != nil {
		onChange(st)
	}
	if settled && onSettle != nil {
		onSettle(st.DebouncedQuery, st.Results)
	}
}

// invalidate cancels the in-flight request. Callers hold c.mu.
func (c *Controller) invalidate() {
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
	c.seq++
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}
