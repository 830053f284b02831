package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/services"
)

type fakeCatalog struct {
	mu     sync.Mutex
	calls  []services.SearchRequest
	handle func(ctx context.Context, req services.SearchRequest) (*services.SearchResult, error)
}

func (f *fakeCatalog) Search(ctx context.Context, req services.SearchRequest) (*services.SearchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	handle := f.handle
	f.mu.Unlock()
	return handle(ctx, req)
}

func (f *fakeCatalog) GetBook(context.Context, string) (*models.Book, error) {
	return nil, errors.New("not used")
}

func (f *fakeCatalog) Calls() []services.SearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]services.SearchRequest(nil), f.calls...)
}

func (f *fakeCatalog) setHandler(h func(context.Context, services.SearchRequest) (*services.SearchResult, error)) {
	f.mu.Lock()
	f.handle = h
	f.mu.Unlock()
}

// paged serves total books, each titled with its query and index.
func paged(total int) func(context.Context, services.SearchRequest) (*services.SearchResult, error) {
	return func(_ context.Context, req services.SearchRequest) (*services.SearchResult, error) {
		var books []models.Book
		for i := req.StartIndex; i < total && i < req.StartIndex+req.MaxResults; i++ {
			books = append(books, models.Book{ID: fmt.Sprintf("%s-%d", req.Query, i), Title: req.Query})
		}
		return &services.SearchResult{Books: books, TotalItems: total}, nil
	}
}

func newController(t *testing.T, cat *fakeCatalog, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithDebounce(time.Hour), WithPageSize(20)}, opts...)
	c := NewController(cat, opts...)
	t.Cleanup(c.Close)
	return c
}

func search(c *Controller, q string) {
	c.SetQuery(q)
	c.Flush()
	c.Wait()
}

func TestHasMore(t *testing.T) {
	assert.True(t, HasMore(0, 20, 45))
	assert.True(t, HasMore(20, 20, 45))
	assert.False(t, HasMore(40, 20, 45))
	assert.False(t, HasMore(0, 20, 20))
	assert.False(t, HasMore(0, 20, 0))
}

func TestControllerDebounce(t *testing.T) {
	t.Run("rapid typing issues one request for the final text", func(t *testing.T) {
		cat := &fakeCatalog{handle: paged(3)}
		c := newController(t, cat, WithDebounce(30*time.Millisecond))

		for _, q := range []string{"d", "du", "dun", "dune"} {
			c.SetQuery(q)
		}

		require.Eventually(t, func() bool { return len(cat.Calls()) == 1 }, time.Second, 5*time.Millisecond)
		time.Sleep(100 * time.Millisecond)

		calls := cat.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "dune", calls[0].Query)
		assert.Equal(t, 0, calls[0].StartIndex)
		assert.Equal(t, 20, calls[0].MaxResults)

		require.Eventually(t, func() bool { return len(c.State().Results) == 3 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, "dune", c.State().DebouncedQuery)
	})

	t.Run("debounced query is the trimmed final text", func(t *testing.T) {
		cat := &fakeCatalog{handle: paged(3)}
		c := newController(t, cat, WithDebounce(20*time.Millisecond))

		c.SetQuery("  dun")
		c.SetQuery("  dune  ")

		require.Eventually(t, func() bool { return c.State().DebouncedQuery != "" }, time.Second, 5*time.Millisecond)
		c.Wait()

		st := c.State()
		assert.Equal(t, "  dune  ", st.Query)
		assert.Equal(t, "dune", st.DebouncedQuery)
		require.Len(t, cat.Calls(), 1)
		assert.Equal(t, "dune", cat.Calls()[0].Query)
	})

	t.Run("flush uses the text stored by the last edit", func(t *testing.T) {
		cat := &fakeCatalog{handle: paged(3)}
		c := newController(t, cat)

		c.SetQuery("emma")
		c.SetQuery(" pride ")
		c.Flush()
		c.Wait()

		assert.Equal(t, "pride", c.State().DebouncedQuery)
		require.Len(t, cat.Calls(), 1)
		assert.Equal(t, "pride", cat.Calls()[0].Query)
	})

	t.Run("blank query clears without a request", func(t *testing.T) {
		cat := &fakeCatalog{handle: paged(3)}
		c := newController(t, cat)

		search(c, "dune")
		require.Len(t, c.State().Results, 3)

		c.SetQuery("   ")
		c.Flush()
		c.Wait()

		st := c.State()
		assert.Empty(t, st.Results)
		assert.Empty(t, st.DebouncedQuery)
		assert.False(t, st.HasMore)
		assert.Equal(t, ReasonNone, st.Reason)
		assert.Len(t, cat.Calls(), 1)
	})

	t.Run("close cancels a pending debounce", func(t *testing.T) {
		cat := &fakeCatalog{handle: paged(3)}
		c := NewController(cat, WithDebounce(20*time.Millisecond))

		c.SetQuery("dune")
		c.Close()
		time.Sleep(60 * time.Millisecond)

		assert.Empty(t, cat.Calls())
	})
}

func TestControllerStaleResponses(t *testing.T) {
	release := make(chan struct{})
	cat := &fakeCatalog{}
	cat.setHandler(func(ctx context.Context, req services.SearchRequest) (*services.SearchResult, error) {
		if req.Query == "first" {
			<-release
		}
		return paged(2)(ctx, req)
	})
	c := newController(t, cat)

	c.SetQuery("first")
	c.Flush()
	require.Eventually(t, func() bool { return len(cat.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	c.SetQuery("second")
	c.Flush()
	require.Eventually(t, func() bool {
		st := c.State()
		return !st.Loading && len(st.Results) == 2
	}, time.Second, 5*time.Millisecond)

	close(release)
	c.Wait()

	st := c.State()
	require.Len(t, st.Results, 2)
	for _, b := range st.Results {
		assert.Equal(t, "second", b.Title)
	}
	assert.Equal(t, "second", st.DebouncedQuery)
}

func TestControllerLoadMore(t *testing.T) {
	cat := &fakeCatalog{handle: paged(45)}
	c := newController(t, cat)

	search(c, "dune")
	st := c.State()
	require.Len(t, st.Results, 20)
	assert.Equal(t, 45, st.TotalItems)
	assert.True(t, st.HasMore)

	require.True(t, c.LoadMore())
	c.Wait()
	st = c.State()
	require.Len(t, st.Results, 40)
	assert.Equal(t, 20, st.StartIndex)
	assert.True(t, st.HasMore)

	require.True(t, c.LoadMore())
	c.Wait()
	st = c.State()
	require.Len(t, st.Results, 45)
	assert.Equal(t, 40, st.StartIndex)
	assert.False(t, st.HasMore)
	assert.Equal(t, "dune-0", st.Results[0].ID)
	assert.Equal(t, "dune-44", st.Results[44].ID)

	assert.False(t, c.LoadMore())
	assert.Len(t, cat.Calls(), 3)
}

func TestControllerLoadMoreUsesLastSuccessfulQuery(t *testing.T) {
	cat := &fakeCatalog{handle: paged(45)}
	c := newController(t, cat)

	search(c, "dune")
	c.SetQuery("emma")

	require.True(t, c.LoadMore())
	c.Wait()

	calls := cat.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "dune", calls[1].Query)
	assert.Equal(t, 20, calls[1].StartIndex)
}

func TestControllerFilters(t *testing.T) {
	cat := &fakeCatalog{handle: paged(5)}
	c := newController(t, cat)

	t.Run("without a query nothing is requested", func(t *testing.T) {
		c.SetFilters(models.SearchFilters{PrintType: models.PrintTypeBook})
		c.Wait()
		assert.Empty(t, cat.Calls())
		assert.Equal(t, models.PrintTypeBook, c.State().Filters.PrintType)
	})

	t.Run("filter change re-runs the query immediately", func(t *testing.T) {
		search(c, "dune")

		filters := models.SearchFilters{PrintType: models.PrintTypeMagazine, Availability: models.AvailabilityFree, Language: "en"}
		c.SetFilters(filters)
		c.Wait()

		calls := cat.Calls()
		require.Len(t, calls, 2)
		assert.Equal(t, "dune", calls[1].Query)
		assert.Equal(t, filters, calls[1].Filters)
		assert.Equal(t, 0, calls[1].StartIndex)
		assert.Len(t, c.State().Results, 5)
	})
}

func TestControllerFailures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("fresh query error clears results", func(t *testing.T) {
		cat := &fakeCatalog{handle: paged(5)}
		c := newController(t, cat)
		search(c, "dune")

		cat.setHandler(func(context.Context, services.SearchRequest) (*services.SearchResult, error) { return nil, boom })
		search(c, "emma")

		st := c.State()
		assert.Empty(t, st.Results)
		assert.Equal(t, ReasonError, st.Reason)
		assert.Equal(t, MsgSearchFailed, st.Message)
		assert.False(t, st.Loading)
	})

	t.Run("load more error keeps prior results", func(t *testing.T) {
		cat := &fakeCatalog{handle: paged(45)}
		c := newController(t, cat)
		search(c, "dune")

		cat.setHandler(func(context.Context, services.SearchRequest) (*services.SearchResult, error) { return nil, boom })
		require.True(t, c.LoadMore())
		c.Wait()

		st := c.State()
		assert.Len(t, st.Results, 20)
		assert.Equal(t, ReasonError, st.Reason)
		assert.False(t, st.LoadingMore)
		assert.True(t, st.HasMore)
	})

	t.Run("no results", func(t *testing.T) {
		cat := &fakeCatalog{handle: paged(0)}
		c := newController(t, cat)
		search(c, "zzzz")

		st := c.State()
		assert.Empty(t, st.Results)
		assert.Equal(t, ReasonNoResults, st.Reason)
		assert.Equal(t, MsgNoResults, st.Message)
	})
}

func TestControllerObserver(t *testing.T) {
	var mu sync.Mutex
	var queries []string
	var last []models.Book

	cat := &fakeCatalog{handle: paged(2)}
	c := newController(t, cat, WithObserver(func(q string, results []models.Book) {
		mu.Lock()
		defer mu.Unlock()
		queries = append(queries, q)
		last = results
	}))

	search(c, "dune")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"dune"}, queries)
	assert.Len(t, last, 2)
}

func TestControllerViewMode(t *testing.T) {
	c := newController(t, &fakeCatalog{handle: paged(0)})

	assert.Equal(t, models.ViewGrid, c.State().ViewMode)
	assert.Equal(t, models.ViewList, c.ToggleViewMode())
	assert.Equal(t, models.ViewGrid, c.ToggleViewMode())

	c.SetViewMode(models.ViewList)
	assert.Equal(t, models.ViewList, c.State().ViewMode)
}
