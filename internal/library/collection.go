package library

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/readx/internal/live"
	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/repositories"
	"github.com/desertthunder/readx/internal/shared"
)

// Patch lists the mutable fields of an entry.
type Patch = repositories.EntryPatch

// Collection is the persistence collaborator for one user's saved books.
//
// Subscribe delivers full snapshots, the first immediately, then one after every change made
// through any Collection sharing the same backing store.
type Collection interface {
	Subscribe(ctx context.Context, userID string) (<-chan []models.LibraryEntry, error)
	Create(ctx context.Context, entry models.LibraryEntry) (models.LibraryEntry, error)
	Update(ctx context.Context, userID, entryID string, patch Patch) error
	Delete(ctx context.Context, userID, entryID string) error
}

// SQLCollection is a [Collection] over [repositories.LibraryRepository] with push updates from a [live.Hub].
type SQLCollection struct {
	repo   *repositories.LibraryRepository
	hub    *live.Hub[[]models.LibraryEntry]
	logger *log.Logger
}

// NewSQLCollection creates a collection whose subscribers are notified after every write.
func NewSQLCollection(repo *repositories.LibraryRepository, logger *log.Logger) *SQLCollection {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &SQLCollection{repo: repo, hub: live.NewHub(repo.ListByUser, logger), logger: logger}
}

func (c *SQLCollection) Subscribe(ctx context.Context, userID string) (<-chan []models.LibraryEntry, error) {
	return c.hub.Subscribe(ctx, userID)
}

func (c *SQLCollection) Create(ctx context.Context, entry models.LibraryEntry) (models.LibraryEntry, error) {
	if err := c.repo.Create(ctx, &entry); err != nil {
		return models.LibraryEntry{}, err
	}
	c.publish(ctx, entry.UserID)
	return entry, nil
}

func (c *SQLCollection) Update(ctx context.Context, userID, entryID string, patch Patch) error {
	if err := c.repo.Update(ctx, userID, entryID, patch); err != nil {
		return err
	}
	c.publish(ctx, userID)
	return nil
}

func (c *SQLCollection) Delete(ctx context.Context, userID, entryID string) error {
	if err := c.repo.Delete(ctx, userID, entryID); err != nil {
		return err
	}
	c.publish(ctx, userID)
	return nil
}

// Close ends every open subscription.
func (c *SQLCollection) Close() {
	c.hub.Close()
}

// publish pushes a fresh snapshot after a write. The write already succeeded, so a failed reload is
// only logged.
func (c *SQLCollection) publish(ctx context.Context, userID string) {
	if err := c.hub.Publish(context.WithoutCancel(ctx), userID); err != nil {
		c.logger.Warn("library subscribers missed a snapshot", "user", userID, "error", err)
	}
}
