package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/readx/internal/shared"
)

// Validator is implemented by entities that check their own invariants.
type Validator interface {
	Validate() error
}

// Book is the canonical catalog record. It is never edited after it is fetched.
type Book struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Authors        []string `json:"authors"`
	Description    string   `json:"description"`
	Thumbnail      string   `json:"thumbnail"`
	ThumbnailLarge string   `json:"thumbnailLarge"`
	PageCount      int      `json:"pageCount"`
	Categories     []string `json:"categories"`
	PublishedDate  string   `json:"publishedDate"`
	PublishedYear  string   `json:"publishedYear"`
	Publisher      string   `json:"publisher"`
	Language       string   `json:"language"`
	AverageRating  float64  `json:"averageRating"`
	RatingsCount   int      `json:"ratingsCount"`
	PreviewLink    string   `json:"previewLink"`
	InfoLink       string   `json:"infoLink"`
}

// Byline joins the authors for display.
func (b Book) Byline() string {
	return strings.Join(b.Authors, ", ")
}

func (b Book) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("%w: book id is required", shared.ErrValidation)
	}
	if b.PageCount < 0 {
		return fmt.Errorf("%w: page count cannot be negative", shared.ErrValidation)
	}
	return nil
}

// LibraryEntry is a book saved by one user along with its reading state.
type LibraryEntry struct {
	ID          string     `json:"id"`
	Sequence    int64      `json:"-"`
	UserID      string     `json:"userId"`
	Book        Book       `json:"book"`
	Progress    int        `json:"progress"`
	CurrentPage int        `json:"currentPage"`
	Notes       string     `json:"notes"`
	SavedAt     time.Time  `json:"savedAt"`
	LastRead    *time.Time `json:"lastRead,omitempty"`
}

// BookID is the catalog id of the saved book.
func (e LibraryEntry) BookID() string { return e.Book.ID }

// Completed reports whether the entry is fully read.
func (e LibraryEntry) Completed() bool { return e.Progress == 100 }

// InProgress reports whether reading has started but not finished.
func (e LibraryEntry) InProgress() bool { return e.Progress > 0 && e.Progress < 100 }

func (e LibraryEntry) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("%w: entry owner is required", shared.ErrValidation)
	}
	if err := e.Book.Validate(); err != nil {
		return err
	}
	if e.Progress < 0 || e.Progress > 100 {
		return fmt.Errorf("%w: progress %d out of range 0..100", shared.ErrValidation, e.Progress)
	}
	if e.CurrentPage < 0 {
		return fmt.Errorf("%w: current page cannot be negative", shared.ErrValidation)
	}
	if e.Book.PageCount > 0 && e.CurrentPage > e.Book.PageCount {
		return fmt.Errorf("%w: current page %d exceeds page count %d", shared.ErrValidation, e.CurrentPage, e.Book.PageCount)
	}
	return nil
}

// Comment belongs to one book and one author.
type Comment struct {
	ID        string    `json:"id"`
	Sequence  int64     `json:"-"`
	BookID    string    `json:"bookId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c Comment) Validate() error {
	switch {
	case c.BookID == "":
		return fmt.Errorf("%w: comment book is required", shared.ErrValidation)
	case c.UserID == "":
		return fmt.Errorf("%w: comment author is required", shared.ErrValidation)
	case strings.TrimSpace(c.Text) == "":
		return fmt.Errorf("%w: comment text is empty", shared.ErrInvalidInput)
	}
	return nil
}

// User is a local account.
type User struct {
	ID           string     `json:"id"`
	Sequence     int64      `json:"-"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"displayName"`
	PasswordHash string     `json:"-"`
	YearlyGoal   int        `json:"yearlyGoal"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
}

func (u User) Validate() error {
	if u.Email == "" {
		return fmt.Errorf("%w: email is required", shared.ErrValidation)
	}
	if u.YearlyGoal < 1 {
		return fmt.Errorf("%w: yearly goal must be at least 1", shared.ErrValidation)
	}
	return nil
}

// Session is the signed-in identity. A nil *Session means signed out.
type Session struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	YearlyGoal  int       `json:"yearlyGoal"`
	Token       string    `json:"token,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one transcript turn. System messages are never rendered.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Theme names a reading color scheme.
type Theme string

const (
	ThemeDefault      Theme = "default"
	ThemeSepia        Theme = "sepia"
	ThemeDark         Theme = "dark"
	ThemeHighContrast Theme = "highContrast"
)

// Themes lists every supported theme in display order.
var Themes = []Theme{ThemeDefault, ThemeSepia, ThemeDark, ThemeHighContrast}

// ReadingSettings holds device-local accessibility settings.
type ReadingSettings struct {
	FontSize      int     `toml:"font_size" json:"fontSize"`
	LineHeight    float64 `toml:"line_height" json:"lineHeight"`
	LetterSpacing float64 `toml:"letter_spacing" json:"letterSpacing"`
	Theme         Theme   `toml:"theme" json:"theme"`
}

// Stats is derived from a library snapshot.
type Stats struct {
	TotalBooks  int `json:"totalBooks"`
	Reading     int `json:"reading"`
	Completed   int `json:"completed"`
	TotalPages  int `json:"totalPages"`
	PagesRead   int `json:"pagesRead"`
	Streak      int `json:"streak"`
	AvgProgress int `json:"avgProgress"`
}

// Catalog print types.
const (
	PrintTypeAll      = "all"
	PrintTypeBook     = "book"
	PrintTypeMagazine = "magazine"
)

// Catalog availability filters.
const (
	AvailabilityAll  = "all"
	AvailabilityFree = "free-ebooks"
	AvailabilityPaid = "paid-ebooks"
	AvailabilityAny  = "ebooks"
)

var (
	PrintTypes     = []string{PrintTypeAll, PrintTypeBook, PrintTypeMagazine}
	Availabilities = []string{AvailabilityAll, AvailabilityFree, AvailabilityPaid, AvailabilityAny}
)

// SearchFilters narrows a catalog query. "all" or empty means unconstrained.
type SearchFilters struct {
	PrintType    string `json:"printType"`
	Availability string `json:"availability"`
	Language     string `json:"language"`
	Subject      string `json:"subject"`
}

// DefaultFilters returns unconstrained filters.
func DefaultFilters() SearchFilters {
	return SearchFilters{PrintType: PrintTypeAll, Availability: AvailabilityAll}
}

func (f SearchFilters) Validate() error {
	if f.PrintType != "" && !contains(PrintTypes, f.PrintType) {
		return fmt.Errorf("%w: unknown print type %q", shared.ErrInvalidArgument, f.PrintType)
	}
	if f.Availability != "" && !contains(Availabilities, f.Availability) {
		return fmt.Errorf("%w: unknown availability %q", shared.ErrInvalidArgument, f.Availability)
	}
	return nil
}

// ViewMode is presentation only.
type ViewMode string

const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"
)

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
