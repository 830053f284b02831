// Package chat holds per-book reading assistant conversations.
package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/services"
	"github.com/desertthunder/readx/internal/shared"
)

// Fallback replaces any failed completion in the transcript.
const Fallback = "I'm having trouble connecting right now. Please try again!"

// QuickPrompts are canned questions offered alongside the input.
var QuickPrompts = []string{
	"Summarize this chapter",
	"Explain in simple terms",
	"What are the key points?",
	"Help me understand this",
}

// Greeting is the locally synthesized first assistant message.
func Greeting(title string) string {
	return fmt.Sprintf(`Hi! I'm your AI reading assistant. I can help you understand **"%s"** better. Ask me anything!`, title)
}

// SystemPrompt describes the book and the reader's position.
func SystemPrompt(book models.Book, currentPage int) string {
	total := "unknown"
	if book.PageCount > 0 {
		total = fmt.Sprint(book.PageCount)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a helpful reading assistant. Help the user understand the book %q by %s.\n\n",
		book.Title, strings.Join(book.Authors, ", "))
	fmt.Fprintf(&b, "Book description: %s\n\n", book.Description)
	fmt.Fprintf(&b, "Current page: %d / %s\n\n", currentPage, total)
	b.WriteString("Provide clear, simple explanations. Be encouraging and patient.")
	return b.String()
}

// Session is one conversation about one book. It is safe for concurrent use; at most one
// completion is in flight at a time.
type Session struct {
	book      models.Book
	completer services.Completer
	logger    *log.Logger
	onChange  func([]models.ChatMessage)

	mu       sync.Mutex
	page     int
	messages []models.ChatMessage
	pending  bool
}

// Option configures a [Session].
type Option func(*Session)

func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithOnChange is called with a copy of the transcript after every append.
func WithOnChange(fn func([]models.ChatMessage)) Option {
	return func(s *Session) { s.onChange = fn }
}

// NewSession starts a conversation with the greeting as its only message.
func NewSession(book models.Book, currentPage int, completer services.Completer, opts ...Option) *Session {
	s := &Session{
		book:      book,
		completer: completer,
		logger:    shared.DiscardLogger(),
		page:      currentPage,
		messages:  []models.ChatMessage{{Role: models.RoleAssistant, Content: Greeting(book.Title)}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Book() models.Book { return s.book }

// SetCurrentPage updates the page reported in later system prompts.
func (s *Session) SetCurrentPage(page int) {
	s.mu.Lock()
	s.page = page
	s.mu.Unlock()
}

func (s *Session) SystemPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SystemPrompt(s.book, s.page)
}

// Messages returns a copy of the transcript, greeting first.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Pending reports whether a completion is in flight.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Send appends the user's message and blocks until the assistant reply, or the fallback, has been
// appended. It returns false without touching the transcript when text is blank or another Send is
// in flight.
func (s *Session) Send(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if text == "" || s.pending {
		s.mu.Unlock()
		return false
	}
	s.pending = true

	transcript := make([]models.ChatMessage, 0, len(s.messages)+1)
	transcript = append(transcript, models.ChatMessage{Role: models.RoleSystem, Content: SystemPrompt(s.book, s.page)})
	transcript = append(transcript, s.messages[1:]...)
	transcript = append(transcript, models.ChatMessage{Role: models.RoleUser, Content: text})

	s.appendLocked(models.ChatMessage{Role: models.RoleUser, Content: text})

	reply, err := s.completer.Complete(ctx, transcript)
	if err != nil {
		s.logger.Warn("completion failed, using fallback", "book", s.book.ID, "error", err)
		reply = Fallback
	} else if strings.TrimSpace(reply) == "" {
		s.logger.Warn("empty completion, using fallback", "book", s.book.ID)
		reply = Fallback
	}

	s.mu.Lock()
	s.pending = false
	s.appendLocked(models.ChatMessage{Role: models.RoleAssistant, Content: reply})
	return true
}

// appendLocked adds msg, releases s.mu, and notifies the listener.
func (s *Session) appendLocked(msg models.ChatMessage) {
	s.messages = append(s.messages, msg)
	snapshot := slices.Clone(s.messages)
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(snapshot)
	}
}
