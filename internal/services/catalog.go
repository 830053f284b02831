// Book catalog client for Google Books compatible volumes APIs
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
)

const (
	defaultCatalogURL = "https://www.googleapis.com/books/v1"
	// MaxResultsPerRequest is the catalog's upper bound for one page.
	MaxResultsPerRequest = 40
	defaultMaxResults    = 30
)

// CatalogClient implements [Catalog] over HTTP.
type CatalogClient struct {
	baseURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      BookCache
	logger     *log.Logger
}

// CatalogOption customizes a [CatalogClient].
type CatalogOption func(*CatalogClient)

// WithCatalogHTTPClient replaces the HTTP client.
func WithCatalogHTTPClient(c *http.Client) CatalogOption {
	return func(cc *CatalogClient) { cc.httpClient = c }
}

// WithBookCache caches single-volume lookups.
func WithBookCache(cache BookCache) CatalogOption {
	return func(cc *CatalogClient) { cc.cache = cache }
}

// WithCatalogLogger sets the logger.
func WithCatalogLogger(l *log.Logger) CatalogOption {
	return func(cc *CatalogClient) { cc.logger = l }
}

// WithRateLimit paces outgoing requests. A non-positive rps disables pacing.
func WithRateLimit(rps float64) CatalogOption {
	return func(cc *CatalogClient) {
		if rps <= 0 {
			cc.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		cc.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// NewCatalogClient creates a catalog client from configuration.
func NewCatalogClient(cfg shared.CatalogConfig, opts ...CatalogOption) *CatalogClient {
	c := &CatalogClient{
		baseURL:    strings.TrimSuffix(firstNonEmpty(cfg.BaseURL, defaultCatalogURL), "/"),
		apiKey:     cfg.APIKey,
		maxResults: cfg.MaxResults,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		logger:     shared.DiscardLogger(),
	}
	if c.maxResults <= 0 || c.maxResults > MaxResultsPerRequest {
		c.maxResults = MaxResultsPerRequest
	}

	WithRateLimit(cfg.RequestsPerSecond)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs one page of req against the volumes endpoint.
func (c *CatalogClient) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	q := buildQuery(req.Query, req.Filters.Subject)
	if q == "" {
		return nil, fmt.Errorf("%w: empty query", shared.ErrInvalidInput)
	}
	if err := req.Filters.Validate(); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/volumes?" + c.searchParams(q, req).Encode()
	c.logger.Debug("catalog search", "q", q, "start", req.StartIndex)

	var list volumeList
	if err := doJSON(ctx, c.httpClient, http.MethodGet, endpoint, nil, &list); err != nil {
		c.logger.Error("catalog search failed", "q", q, "error", err)
		return nil, err
	}

	return &SearchResult{Books: NormalizeVolumes(list.Items), TotalItems: list.TotalItems}, nil
}

func (c *CatalogClient) searchParams(q string, req SearchRequest) url.Values {
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("maxResults", strconv.Itoa(min(maxResults, c.maxResults)))
	params.Set("startIndex", strconv.Itoa(max(req.StartIndex, 0)))
	params.Set("printType", firstNonEmpty(req.Filters.PrintType, models.PrintTypeAll))

	if f := req.Filters.Availability; f != "" && f != models.AvailabilityAll {
		params.Set("filter", f)
	}
	if lang := req.Filters.Language; lang != "" && lang != "all" {
		params.Set("langRestrict", lang)
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	return params
}

// buildQuery appends the structured subject qualifier to the free text.
func buildQuery(text, subject string) string {
	text = strings.TrimSpace(text)
	subject = strings.TrimSpace(subject)
	if subject == "" || subject == "all" {
		return text
	}
	return strings.TrimSpace(text + " subject:" + subject)
}

// GetBook fetches a single volume, consulting the cache first.
func (c *CatalogClient) GetBook(ctx context.Context, id string) (*models.Book, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}

	if c.cache != nil {
		book, err := c.cache.Get(ctx, id)
		if err == nil {
			return book, nil
		}
		if !errors.Is(err, shared.ErrCacheMiss) {
			c.logger.Warn("book cache read failed", "id", id, "error", err)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/volumes/" + url.PathEscape(id)
	if c.apiKey != "" {
		endpoint += "?" + url.Values{"key": {c.apiKey}}.Encode()
	}

	var volume Volume
	if err := doJSON(ctx, c.httpClient, http.MethodGet, endpoint, nil, &volume); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrBookNotFound, id)
		}
		c.logger.Error("catalog fetch failed", "id", id, "error", err)
		return nil, fmt.Errorf("%w: %w", shared.ErrFetchFailed, err)
	}

	book, ok := NormalizeVolume(volume)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no volume metadata", shared.ErrBookNotFound, id)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, book); err != nil {
			c.logger.Warn("book cache write failed", "id", id, "error", err)
		}
	}
	return &book, nil
}

// BySubject searches for volumes in a subject.
func (c *CatalogClient) BySubject(ctx context.Context, subject string, req SearchRequest) (*SearchResult, error) {
	req.Query = "subject:" + strings.TrimSpace(subject)
	return c.Search(ctx, req)
}

// ByAuthor searches for volumes by author.
func (c *CatalogClient) ByAuthor(ctx context.Context, author string, req SearchRequest) (*SearchResult, error) {
	req.Query = "inauthor:" + strings.TrimSpace(author)
	return c.Search(ctx, req)
}

// ByISBN returns the first volume matching isbn, or nil when there is none.
func (c *CatalogClient) ByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	res, err := c.Search(ctx, SearchRequest{Query: "isbn:" + strings.TrimSpace(isbn), MaxResults: 1})
	if err != nil {
		return nil, err
	}
	if len(res.Books) == 0 {
		return nil, nil
	}
	return &res.Books[0], nil
}
