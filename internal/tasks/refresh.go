package tasks

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/services"
	"github.com/desertthunder/readx/internal/shared"
)

const (
	defaultWorkers   = 5
	maxWorkers       = 10
	defaultRateLimit = 5.0
)

// RefreshOpts tunes [RefreshBooks].
type RefreshOpts struct {
	NumWorkers int     // Concurrent fetches (default 5, max 10)
	RateLimit  float64 // Requests per second across all workers (default 5)
}

// BookResult is the outcome for one id.
type BookResult struct {
	ID    string
	Book  *models.Book
	Error error
}

// RefreshResult collects per-id outcomes in input order.
type RefreshResult struct {
	Total     int
	Succeeded int
	Failed    int
	Results   []BookResult
}

// Books returns the fetched books in input order.
func (r *RefreshResult) Books() []models.Book {
	books := make([]models.Book, 0, r.Succeeded)
	for _, res := range r.Results {
		if res.Book != nil {
			books = append(books, *res.Book)
		}
	}
	return books
}

// Failures returns the results that carry an error.
func (r *RefreshResult) Failures() []BookResult {
	var failed []BookResult
	for _, res := range r.Results {
		if res.Error != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

type refreshJob struct {
	index int
	id    string
}

// RefreshBooks fetches the current catalog record for each id. Duplicate ids are fetched once.
//
// Cancelling ctx stops dispatch; ids not yet fetched are reported with the context error and the
// partial result is returned alongside it.
func RefreshBooks(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	catalog services.Catalog,
	ids []string,
	opts RefreshOpts,
) (*RefreshResult, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	unique := dedupe(ids)
	result := &RefreshResult{Total: len(unique), Results: make([]BookResult, len(unique))}
	for i, id := range unique {
		result.Results[i] = BookResult{ID: id}
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan refreshJob, len(unique))
	results := make(chan refreshJob, len(unique))
	outcomes := result.Results

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go refreshWorker(ctx, &wg, catalog, limiter, jobs, results, outcomes)
	}

	sendProgress(prog, fetchingBooksUpdate(len(unique), opts.NumWorkers))

	for i, id := range unique {
		jobs <- refreshJob{index: i, id: id}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for job := range results {
		completed++
		res := outcomes[job.index]
		if res.Error == nil {
			result.Succeeded++
			sendProgress(prog, bookFetchedUpdate(completed, len(unique), res))
		} else {
			result.Failed++
			sendProgress(prog, bookFailedUpdate(completed, len(unique), res))
		}
	}

	sendProgress(prog, doneUpdate(result))
	return result, ctx.Err()
}

// refreshWorker writes each job's outcome into its own slot of outcomes, then reports the job.
func refreshWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	catalog services.Catalog,
	limiter *rate.Limiter,
	jobs <-chan refreshJob,
	results chan<- refreshJob,
	outcomes []BookResult,
) {
	defer wg.Done()

	for job := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			outcomes[job.index].Error = err
			results <- job
			continue
		}

		book, err := catalog.GetBook(ctx, job.id)
		if err != nil {
			outcomes[job.index].Error = err
		} else {
			outcomes[job.index].Book = book
		}
		results <- job
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
