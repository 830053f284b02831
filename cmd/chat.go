package main

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/readx/internal/chat"
	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
)

// Chat talks to the reading assistant about one book. With --message it sends a single turn;
// otherwise it reads lines from stdin until "/quit" or EOF.
func (r *Runner) Chat(ctx context.Context, cmd *cli.Command) error {
	bookID := cmd.StringArg("book")
	if bookID == "" {
		return fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}

	book, page, err := r.chatContext(ctx, bookID)
	if err != nil {
		return err
	}
	if p := int(cmd.Int("page")); p >= 0 {
		page = p
	}

	session := chat.NewSession(book, page, r.completionClient(),
		chat.WithLogger(shared.WithLogger(r.logger, "component", "chat", "book", book.ID)))

	if msg := cmd.String("message"); msg != "" {
		if !session.Send(ctx, msg) {
			return fmt.Errorf("%w: message is empty", shared.ErrInvalidInput)
		}
		return r.printReply(session)
	}

	msgs := session.Messages()
	r.writePlain("%s\n", msgs[0].Content)
	r.printPrompts()

	scanner := bufio.NewScanner(r.input)
	for {
		r.writePlain("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/prompts":
			r.printPrompts()
			continue
		case strings.HasPrefix(line, "/"):
			n, err := strconv.Atoi(line[1:])
			if err != nil || n < 1 || n > len(chat.QuickPrompts) {
				r.writePlain("Unknown command %q. Try /prompts or /quit.\n", line)
				continue
			}
			line = chat.QuickPrompts[n-1]
			r.writePlain("%s\n", line)
		}

		if session.Send(ctx, line) {
			r.printReply(session)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// chatContext prefers the saved entry so the assistant knows the reader's page.
func (r *Runner) chatContext(ctx context.Context, bookID string) (models.Book, int, error) {
	if store, _, release, err := r.libraryStore(ctx); err == nil {
		entry, ok := store.Entry(bookID)
		release()
		if ok {
			return entry.Book, entry.CurrentPage, nil
		}
	} else {
		r.logger.Debug("chatting without library context", "error", err)
	}

	catalog, err := r.catalogClient(ctx)
	if err != nil {
		return models.Book{}, 0, err
	}
	book, err := catalog.GetBook(ctx, bookID)
	if err != nil {
		return models.Book{}, 0, err
	}
	return *book, 0, nil
}

func (r *Runner) printReply(session *chat.Session) error {
	msgs := session.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != models.RoleAssistant {
		return nil
	}
	return r.writePlain("\n%s\n\n", last.Content)
}

func (r *Runner) printPrompts() {
	for i, p := range chat.QuickPrompts {
		r.writePlain("  /%d  %s\n", i+1, p)
	}
}
