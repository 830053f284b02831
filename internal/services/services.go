package services

import (
	"context"

	"github.com/desertthunder/readx/internal/models"
)

// Catalog is the book search collaborator.
type Catalog interface {
	// Search runs one page of a query. Records without volume metadata are dropped.
	Search(ctx context.Context, req SearchRequest) (*SearchResult, error)

	// GetBook fetches a single normalized volume by catalog id.
	GetBook(ctx context.Context, id string) (*models.Book, error)
}

// Completer turns a chat transcript into the next assistant reply.
type Completer interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// BookCache stores normalized books by id.
type BookCache interface {
	Get(ctx context.Context, id string) (*models.Book, error)
	Set(ctx context.Context, book models.Book) error
}

// SearchRequest is one page of a catalog query.
type SearchRequest struct {
	Query      string
	Filters    models.SearchFilters
	StartIndex int
	MaxResults int
}

// SearchResult holds one page of normalized books and the catalog-reported total.
type SearchResult struct {
	Books      []models.Book `json:"books"`
	TotalItems int           `json:"totalItems"`
}
