package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, DisplayName: "Reader", PasswordHash: "hash", YearlyGoal: 24}
	if err := NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first, err := NextSequence(ctx, db, "comments")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	second, err := NextSequence(ctx, db, "comments")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}

	if second != first+1 {
		t.Errorf("expected sequence %d, got %d", first+1, second)
	}

	if _, err := NextSequence(ctx, db, "nope"); err == nil {
		t.Error("expected error for unknown sequence table")
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		user := createUser(t, db, "  Reader@Example.com ")

		if user.ID == "" {
			t.Error("user ID should be set after creation")
		}
		if user.Email != "reader@example.com" {
			t.Errorf("expected normalized email, got %q", user.Email)
		}
	})

	t.Run("Duplicate Email", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "reader@example.com")

		dup := &models.User{Email: "READER@example.com", DisplayName: "Other", PasswordHash: "x", YearlyGoal: 24}
		if err := NewUserRepository(db).Create(ctx, dup); !errors.Is(err, shared.ErrEmailTaken) {
			t.Errorf("expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("Validation Error", func(t *testing.T) {
		db := setupTestDB(t)
		user := &models.User{Email: "", YearlyGoal: 24}
		if err := NewUserRepository(db).Create(ctx, user); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("Get And GetByEmail", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		user := createUser(t, db, "reader@example.com")

		byID, err := repo.Get(ctx, user.ID)
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		byEmail, err := repo.GetByEmail(ctx, "Reader@Example.com")
		if err != nil {
			t.Fatalf("failed to get user by email: %v", err)
		}

		if byID.ID != byEmail.ID || byID.PasswordHash != "hash" {
			t.Errorf("unexpected users %+v %+v", byID, byEmail)
		}

		if _, err := repo.Get(ctx, "missing"); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("UpdateYearlyGoal", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		user := createUser(t, db, "reader@example.com")

		if err := repo.UpdateYearlyGoal(ctx, user.ID, 52); err != nil {
			t.Fatalf("failed to update goal: %v", err)
		}
		got, _ := repo.Get(ctx, user.ID)
		if got.YearlyGoal != 52 {
			t.Errorf("expected goal 52, got %d", got.YearlyGoal)
		}

		if err := repo.UpdateYearlyGoal(ctx, user.ID, 0); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
		if err := repo.UpdateYearlyGoal(ctx, "missing", 10); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("Delete Is Soft", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		user := createUser(t, db, "reader@example.com")

		if err := repo.Delete(ctx, user.ID); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}
		if _, err := repo.Get(ctx, user.ID); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected deleted user to be hidden, got %v", err)
		}
		if err := repo.Delete(ctx, user.ID); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected second delete to fail, got %v", err)
		}

		users, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(users) != 0 {
			t.Errorf("expected no active users, got %d", len(users))
		}
	})
}

func TestLibraryRepository(t *testing.T) {
	ctx := context.Background()
	book := models.Book{ID: "vol-1", Title: "Dune", Authors: []string{"Frank Herbert"}, PageCount: 412}

	t.Run("Create And List", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)
		user := createUser(t, db, "reader@example.com")

		first := &models.LibraryEntry{UserID: user.ID, Book: book}
		second := &models.LibraryEntry{UserID: user.ID, Book: models.Book{ID: "vol-2", Title: "Emma"}}
		for _, e := range []*models.LibraryEntry{first, second} {
			if err := repo.Create(ctx, e); err != nil {
				t.Fatalf("failed to create entry: %v", err)
			}
		}

		entries, err := repo.ListByUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].Book.ID != "vol-2" {
			t.Errorf("expected newest first, got %s", entries[0].Book.ID)
		}
		if entries[1].Book.Title != "Dune" || entries[1].Book.Authors[0] != "Frank Herbert" {
			t.Errorf("book snapshot not round-tripped: %+v", entries[1].Book)
		}
		if entries[1].LastRead != nil {
			t.Error("new entries should have no lastRead")
		}
	})

	t.Run("Duplicate Book For User", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)
		user := createUser(t, db, "reader@example.com")

		if err := repo.Create(ctx, &models.LibraryEntry{UserID: user.ID, Book: book}); err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}
		err := repo.Create(ctx, &models.LibraryEntry{UserID: user.ID, Book: book})
		if !errors.Is(err, shared.ErrDuplicateEntry) {
			t.Errorf("expected ErrDuplicateEntry, got %v", err)
		}

		other := createUser(t, db, "other@example.com")
		if err := repo.Create(ctx, &models.LibraryEntry{UserID: other.ID, Book: book}); err != nil {
			t.Errorf("another user may save the same book: %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)
		user := createUser(t, db, "reader@example.com")
		entry := &models.LibraryEntry{UserID: user.ID, Book: book}
		repo.Create(ctx, entry)

		progress, page, notes := 50, 206, "spice"
		read := time.Date(2025, 3, 4, 21, 30, 0, 0, time.UTC)
		patch := EntryPatch{Progress: &progress, CurrentPage: &page, Notes: &notes, LastRead: &read}
		if err := repo.Update(ctx, user.ID, entry.ID, patch); err != nil {
			t.Fatalf("failed to update entry: %v", err)
		}

		got, err := repo.Get(ctx, user.ID, entry.ID)
		if err != nil {
			t.Fatalf("failed to get entry: %v", err)
		}
		if got.Progress != 50 || got.CurrentPage != 206 || got.Notes != "spice" {
			t.Errorf("unexpected entry %+v", got)
		}
		if got.LastRead == nil || !got.LastRead.Equal(read) {
			t.Errorf("expected lastRead %v, got %v", read, got.LastRead)
		}
	})

	t.Run("Update Requires Owner", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)
		owner := createUser(t, db, "reader@example.com")
		other := createUser(t, db, "other@example.com")
		entry := &models.LibraryEntry{UserID: owner.ID, Book: book}
		repo.Create(ctx, entry)

		notes := "hijack"
		if err := repo.Update(ctx, other.ID, entry.ID, EntryPatch{Notes: &notes}); !errors.Is(err, shared.ErrEntryNotFound) {
			t.Errorf("expected ErrEntryNotFound, got %v", err)
		}
		if err := repo.Delete(ctx, other.ID, entry.ID); !errors.Is(err, shared.ErrEntryNotFound) {
			t.Errorf("expected ErrEntryNotFound, got %v", err)
		}
	})

	t.Run("Progress Out Of Range", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)
		user := createUser(t, db, "reader@example.com")
		entry := &models.LibraryEntry{UserID: user.ID, Book: book}
		repo.Create(ctx, entry)

		bad := 140
		if err := repo.Update(ctx, user.ID, entry.ID, EntryPatch{Progress: &bad}); err == nil {
			t.Error("expected CHECK constraint failure")
		}
	})

	t.Run("Empty Patch", func(t *testing.T) {
		db := setupTestDB(t)
		if err := NewLibraryRepository(db).Update(ctx, "u", "missing", EntryPatch{}); err != nil {
			t.Errorf("empty patch should be a no-op, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)
		user := createUser(t, db, "reader@example.com")
		entry := &models.LibraryEntry{UserID: user.ID, Book: book}
		repo.Create(ctx, entry)

		if err := repo.Delete(ctx, user.ID, entry.ID); err != nil {
			t.Fatalf("failed to delete entry: %v", err)
		}
		if err := repo.Delete(ctx, user.ID, entry.ID); !errors.Is(err, shared.ErrEntryNotFound) {
			t.Errorf("expected ErrEntryNotFound, got %v", err)
		}
	})
}

func TestCommentRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create And List", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCommentRepository(db)
		user := createUser(t, db, "reader@example.com")

		for _, text := range []string{"first", "second"} {
			c := &models.Comment{BookID: "vol-1", UserID: user.ID, UserName: "Reader", Text: text}
			if err := repo.Create(ctx, c); err != nil {
				t.Fatalf("failed to create comment: %v", err)
			}
		}
		repo.Create(ctx, &models.Comment{BookID: "vol-2", UserID: user.ID, UserName: "Reader", Text: "elsewhere"})

		comments, err := repo.ListByBook(ctx, "vol-1")
		if err != nil {
			t.Fatalf("failed to list comments: %v", err)
		}
		if len(comments) != 2 {
			t.Fatalf("expected 2 comments, got %d", len(comments))
		}
		if comments[0].Text != "second" {
			t.Errorf("expected newest first, got %q", comments[0].Text)
		}
	})

	t.Run("Rejects Blank Text", func(t *testing.T) {
		db := setupTestDB(t)
		user := createUser(t, db, "reader@example.com")
		c := &models.Comment{BookID: "vol-1", UserID: user.ID, Text: "  "}
		if err := NewCommentRepository(db).Create(ctx, c); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Delete Checks Author", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCommentRepository(db)
		author := createUser(t, db, "reader@example.com")
		other := createUser(t, db, "other@example.com")

		c := &models.Comment{BookID: "vol-1", UserID: author.ID, UserName: "Reader", Text: "mine"}
		repo.Create(ctx, c)

		if err := repo.Delete(ctx, c.ID, other.ID); !errors.Is(err, shared.ErrNotAuthorized) {
			t.Errorf("expected ErrNotAuthorized, got %v", err)
		}
		if err := repo.Delete(ctx, c.ID, author.ID); err != nil {
			t.Fatalf("author delete failed: %v", err)
		}
		if err := repo.Delete(ctx, c.ID, author.ID); !errors.Is(err, shared.ErrCommentNotFound) {
			t.Errorf("expected ErrCommentNotFound, got %v", err)
		}
	})
}
