package models

import (
	"errors"
	"testing"

	"github.com/desertthunder/readx/internal/shared"
)

func TestLibraryEntryValidate(t *testing.T) {
	book := Book{ID: "vol-1", Title: "Dune", PageCount: 400}

	tests := []struct {
		name    string
		entry   LibraryEntry
		wantErr bool
	}{
		{"valid", LibraryEntry{UserID: "u1", Book: book, Progress: 50, CurrentPage: 200}, false},
		{"missing owner", LibraryEntry{Book: book}, true},
		{"missing book id", LibraryEntry{UserID: "u1", Book: Book{Title: "x"}}, true},
		{"progress over 100", LibraryEntry{UserID: "u1", Book: book, Progress: 101}, true},
		{"negative progress", LibraryEntry{UserID: "u1", Book: book, Progress: -1}, true},
		{"page beyond count", LibraryEntry{UserID: "u1", Book: book, CurrentPage: 401}, true},
		{"unknown page count allows any page", LibraryEntry{UserID: "u1", Book: Book{ID: "b"}, CurrentPage: 40}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestEntryState(t *testing.T) {
	t.Run("InProgress excludes unstarted and finished", func(t *testing.T) {
		for progress, want := range map[int]bool{0: false, 1: true, 99: true, 100: false} {
			if got := (LibraryEntry{Progress: progress}).InProgress(); got != want {
				t.Errorf("InProgress(%d) = %v, want %v", progress, got, want)
			}
		}
	})

	t.Run("Completed", func(t *testing.T) {
		if !(LibraryEntry{Progress: 100}).Completed() {
			t.Error("expected 100 to be completed")
		}
	})
}

func TestCommentValidate(t *testing.T) {
	c := Comment{BookID: "b", UserID: "u", Text: "   "}
	if err := c.Validate(); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank text, got %v", err)
	}

	c.Text = "great read"
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSearchFilters(t *testing.T) {
	if err := DefaultFilters().Validate(); err != nil {
		t.Errorf("default filters should be valid: %v", err)
	}

	if err := (SearchFilters{PrintType: "comics"}).Validate(); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	if err := (SearchFilters{Availability: "library"}).Validate(); err == nil {
		t.Error("expected error for unknown availability")
	}
}

func TestBookByline(t *testing.T) {
	b := Book{Authors: []string{"Terry Pratchett", "Neil Gaiman"}}
	if got := b.Byline(); got != "Terry Pratchett, Neil Gaiman" {
		t.Errorf("Byline() = %q", got)
	}
}
