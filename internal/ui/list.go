package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/readx/internal/formatter"
	"github.com/desertthunder/readx/internal/models"
)

var _ list.Item = bookItem{}

// bookItem wraps [models.Book] to implement [list.Item].
type bookItem struct {
	book  models.Book
	saved bool
}

func (i bookItem) FilterValue() string { return i.book.Title }

func (i bookItem) Title() string {
	if i.saved {
		return i.book.Title + " " + styles.ok.Render("✓")
	}
	return i.book.Title
}

func (i bookItem) Description() string {
	parts := []string{formatter.Truncate(i.book.Byline(), 40)}
	if i.book.PublishedYear != "" {
		parts = append(parts, i.book.PublishedYear)
	}
	if i.book.PageCount > 0 {
		parts = append(parts, fmt.Sprintf("%d pages", i.book.PageCount))
	}
	return strings.Join(parts, " • ")
}

func bookItems(books []models.Book, saved func(string) bool) []list.Item {
	items := make([]list.Item, len(books))
	for i, b := range books {
		items[i] = bookItem{book: b, saved: saved(b.ID)}
	}
	return items
}
