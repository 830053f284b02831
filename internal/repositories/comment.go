package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
)

const commentColumns = `id, sequence, book_id, user_id, user_name, text, created_at`

// CommentRepository persists [models.Comment] rows.
type CommentRepository struct {
	db *sql.DB
}

// NewCommentRepository creates a new [CommentRepository]
func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts comment with a generated ID and sequence.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := comment.Validate(); err != nil {
		return err
	}

	sequence, err := NextSequence(ctx, r.db, "comments")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	comment.ID = shared.GenerateID()
	comment.Sequence = sequence
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO comments (`+commentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.Sequence, comment.BookID, comment.UserID, comment.UserName, comment.Text, comment.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// Get retrieves a comment by ID.
func (r *CommentRepository) Get(ctx context.Context, id string) (*models.Comment, error) {
	comment, err := scanComment(r.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrCommentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query comment: %w", err)
	}
	return comment, nil
}

// ListByBook returns the comments on bookID, newest first.
func (r *CommentRepository) ListByBook(ctx context.Context, bookID string) ([]models.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE book_id = ? ORDER BY sequence DESC`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, *comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return comments, nil
}

// Delete removes comment id when it was written by userID.
//
// Returns [shared.ErrNotAuthorized] when the comment exists under another author.
func (r *CommentRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: comment %s belongs to another user", shared.ErrNotAuthorized, id)
}

func scanComment(s scanner) (*models.Comment, error) {
	var c models.Comment
	if err := s.Scan(&c.ID, &c.Sequence, &c.BookID, &c.UserID, &c.UserName, &c.Text, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
