package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
)

const entryColumns = `id, sequence, user_id, book, progress, current_page, notes, saved_at, last_read`

// EntryPatch lists the mutable fields of a library entry. Nil fields are left unchanged.
type EntryPatch struct {
	Progress    *int
	CurrentPage *int
	Notes       *string
	LastRead    *time.Time
}

// Empty reports whether the patch changes nothing.
func (p EntryPatch) Empty() bool {
	return p.Progress == nil && p.CurrentPage == nil && p.Notes == nil && p.LastRead == nil
}

// LibraryRepository persists [models.LibraryEntry] rows.
type LibraryRepository struct {
	db *sql.DB
}

// NewLibraryRepository creates a new [LibraryRepository]
func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// Create inserts entry with a generated ID and sequence.
//
// A second entry for the same (user, book) pair fails with [shared.ErrDuplicateEntry].
func (r *LibraryRepository) Create(ctx context.Context, entry *models.LibraryEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	book, err := json.Marshal(entry.Book)
	if err != nil {
		return fmt.Errorf("failed to encode book: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "library_entries")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	entry.ID = shared.GenerateID()
	entry.Sequence = sequence
	if entry.SavedAt.IsZero() {
		entry.SavedAt = time.Now()
	}

	query := `
		INSERT INTO library_entries (id, sequence, user_id, book_id, book, progress, current_page, notes, saved_at, last_read)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query, entry.ID, entry.Sequence, entry.UserID, entry.Book.ID, string(book),
		entry.Progress, entry.CurrentPage, entry.Notes, entry.SavedAt.UTC(), nullTime(entry.LastRead))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", shared.ErrDuplicateEntry, entry.Book.ID)
		}
		return fmt.Errorf("failed to insert library entry: %w", err)
	}

	return nil
}

// Get retrieves one entry owned by userID.
func (r *LibraryRepository) Get(ctx context.Context, userID, id string) (*models.LibraryEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM library_entries WHERE id = ? AND user_id = ?`

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrEntryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query library entry: %w", err)
	}
	return entry, nil
}

// ListByUser returns every entry owned by userID, most recently saved first.
func (r *LibraryRepository) ListByUser(ctx context.Context, userID string) ([]models.LibraryEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM library_entries WHERE user_id = ? ORDER BY sequence DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query library entries: %w", err)
	}
	defer rows.Close()

	entries := []models.LibraryEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan library entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Update applies patch to the entry id owned by userID.
func (r *LibraryRepository) Update(ctx context.Context, userID, id string, patch EntryPatch) error {
	if patch.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	if patch.Progress != nil {
		sets = append(sets, "progress = ?")
		args = append(args, *patch.Progress)
	}
	if patch.CurrentPage != nil {
		sets = append(sets, "current_page = ?")
		args = append(args, *patch.CurrentPage)
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}
	if patch.LastRead != nil {
		sets = append(sets, "last_read = ?")
		args = append(args, patch.LastRead.UTC())
	}

	query := `UPDATE library_entries SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND user_id = ?`
	args = append(args, id, userID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update library entry: %w", err)
	}
	return affected(result, fmt.Errorf("%w: %s", shared.ErrEntryNotFound, id))
}

// Delete removes the entry id owned by userID.
func (r *LibraryRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM library_entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete library entry: %w", err)
	}
	return affected(result, fmt.Errorf("%w: %s", shared.ErrEntryNotFound, id))
}

func scanEntry(s scanner) (*models.LibraryEntry, error) {
	var (
		entry    models.LibraryEntry
		book     string
		lastRead sql.NullTime
	)

	err := s.Scan(&entry.ID, &entry.Sequence, &entry.UserID, &book, &entry.Progress,
		&entry.CurrentPage, &entry.Notes, &entry.SavedAt, &lastRead)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(book), &entry.Book); err != nil {
		return nil, fmt.Errorf("failed to decode book snapshot: %w", err)
	}
	if lastRead.Valid {
		entry.LastRead = &lastRead.Time
	}
	return &entry, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
