package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchBooks Phase = iota
	BookFetched
	BookFailed
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchBooks:
		return "fetch_books"
	case BookFetched:
		return "book_fetched"
	case BookFailed:
		return "book_failed"
	case Done:
		return "done"
	default:
		return ""
	}
}

// sendProgress never blocks; a full channel drops the update.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchingBooksUpdate(total, workers int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchBooks,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Refreshing %d books with %d workers...", total, workers),
	}
}

func bookFetchedUpdate(step, total int, res BookResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BookFetched,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, res.Book.Title),
		Data:    res.Book,
	}
}

func bookFailedUpdate(step, total int, res BookResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BookFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.ID, res.Error),
	}
}

func doneUpdate(result *RefreshResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    result.Total,
		Total:   result.Total,
		Message: fmt.Sprintf("Refreshed %d of %d books (%d failed)", result.Succeeded, result.Total, result.Failed),
		Data:    result,
	}
}
