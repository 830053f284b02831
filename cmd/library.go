package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/readx/internal/formatter"
	"github.com/desertthunder/readx/internal/library"
	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
	"github.com/desertthunder/readx/internal/stats"
	"github.com/desertthunder/readx/internal/tasks"
)

// resolveEntry accepts an entry id or a saved book id.
func resolveEntry(store *library.Store, ref string) (models.LibraryEntry, error) {
	if ref == "" {
		return models.LibraryEntry{}, fmt.Errorf("%w: entry or book id", shared.ErrMissingArgument)
	}
	if e, ok := store.EntryByID(ref); ok {
		return e, nil
	}
	if e, ok := store.Entry(ref); ok {
		return e, nil
	}
	return models.LibraryEntry{}, fmt.Errorf("%w: %s", shared.ErrEntryNotFound, ref)
}

// LibraryList prints saved books, optionally refreshing their catalog records first.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	store, _, release, err := r.libraryStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	entries := store.Entries()
	if cmd.Bool("refresh") && len(entries) > 0 {
		if entries, err = r.refreshEntries(ctx, entries); err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		if entries == nil {
			entries = []models.LibraryEntry{}
		}
		return r.writeJSON(entries, true)
	}

	if len(entries) == 0 {
		return r.writePlain("Your library is empty. Save a book with 'readx library save <book id>'.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Library (%d books)", len(entries)))
	now := r.now()
	for _, e := range entries {
		r.writePlain("%s  %s\n", e.ID, formatter.Truncate(e.Book.Title, 50))
		line := fmt.Sprintf("    %s %3d%%", formatter.ProgressBar(e.Progress, 20), e.Progress)
		if e.Book.PageCount > 0 {
			line += fmt.Sprintf("  page %d/%d", e.CurrentPage, e.Book.PageCount)
		}
		if e.LastRead != nil {
			line += "  read " + formatter.RelativeTime(*e.LastRead, now)
		}
		r.writePlain("%s\n", line)
	}
	return nil
}

// refreshEntries re-fetches every saved book and swaps in the current catalog record.
func (r *Runner) refreshEntries(ctx context.Context, entries []models.LibraryEntry) ([]models.LibraryEntry, error) {
	catalog, err := r.catalogClient(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.BookID()
	}

	progress := make(chan tasks.ProgressUpdate, len(ids)+2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug("refresh", "phase", update.Phase, "step", update.Step, "total", update.Total, "message", update.Message)
		}
	}()

	result, err := tasks.RefreshBooks(ctx, progress, catalog, ids, tasks.RefreshOpts{RateLimit: r.config.Catalog.RequestsPerSecond})
	close(progress)
	<-done
	if err != nil {
		return nil, err
	}

	fresh := make(map[string]models.Book, result.Succeeded)
	for _, b := range result.Books() {
		fresh[b.ID] = b
	}
	for _, f := range result.Failures() {
		r.logger.Warn("could not refresh book", "book", f.ID, "error", f.Error)
	}

	out := make([]models.LibraryEntry, len(entries))
	for i, e := range entries {
		if b, ok := fresh[e.BookID()]; ok {
			e.Book = b
		}
		out[i] = e
	}
	return out, nil
}

// LibrarySave adds a catalog book to the library.
func (r *Runner) LibrarySave(ctx context.Context, cmd *cli.Command) error {
	bookID := cmd.StringArg("book")
	if bookID == "" {
		return fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}

	store, _, release, err := r.libraryStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	if store.IsSaved(bookID) {
		return fmt.Errorf("%w: %s is already in your library", shared.ErrDuplicateEntry, bookID)
	}

	catalog, err := r.catalogClient(ctx)
	if err != nil {
		return err
	}
	book, err := catalog.GetBook(ctx, bookID)
	if err != nil {
		return err
	}

	entry, err := store.Save(ctx, *book)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Saved %q (entry %s)\n", entry.Book.Title, entry.ID)
}

// LibraryRemove deletes a saved book.
func (r *Runner) LibraryRemove(ctx context.Context, cmd *cli.Command) error {
	store, _, release, err := r.libraryStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	entry, err := resolveEntry(store, cmd.StringArg("entry"))
	if err != nil {
		return err
	}
	if err := store.Remove(ctx, entry.ID); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %q\n", entry.Book.Title)
}

// LibraryProgress sets the reading percent, deriving the page unless --page is given.
func (r *Runner) LibraryProgress(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args()
	if args.Len() < 2 {
		return fmt.Errorf("%w: usage: progress <entry> <percent>", shared.ErrMissingArgument)
	}
	percent, err := strconv.Atoi(strings.TrimSuffix(args.Get(1), "%"))
	if err != nil {
		return fmt.Errorf("%w: %q is not a percent", shared.ErrInvalidArgument, args.Get(1))
	}

	store, _, release, err := r.libraryStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	entry, err := resolveEntry(store, args.Get(0))
	if err != nil {
		return err
	}

	if page := int(cmd.Int("page")); page >= 0 {
		if err := store.UpdateProgress(ctx, entry.ID, percent, library.Fields{CurrentPage: &page}); err != nil {
			return err
		}
		entry, _ = store.EntryByID(entry.ID)
	} else if entry, err = store.SetProgress(ctx, entry.ID, percent); err != nil {
		return err
	}
	return r.printPosition(entry)
}

// LibraryPage moves the current page by number, step or preset.
func (r *Runner) LibraryPage(ctx context.Context, cmd *cli.Command) error {
	store, _, release, err := r.libraryStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	entry, err := resolveEntry(store, cmd.StringArg("entry"))
	if err != nil {
		return err
	}

	switch {
	case cmd.Int("to") >= 0:
		entry, err = store.SetPage(ctx, entry.ID, int(cmd.Int("to")))
	case cmd.Bool("next"):
		entry, err = store.NextPage(ctx, entry.ID)
	case cmd.Bool("prev"):
		entry, err = store.PrevPage(ctx, entry.ID)
	case cmd.String("jump") != "":
		entry, err = store.Jump(ctx, entry.ID, cmd.String("jump"))
	default:
		labels := make([]string, len(library.QuickJumps))
		for i, j := range library.QuickJumps {
			labels[i] = j.Label
		}
		return fmt.Errorf("%w: pass --to N, --next, --prev or --jump (%s)", shared.ErrMissingArgument, strings.Join(labels, ", "))
	}
	if err != nil {
		return err
	}
	return r.printPosition(entry)
}

func (r *Runner) printPosition(e models.LibraryEntry) error {
	total := "?"
	if e.Book.PageCount > 0 {
		total = strconv.Itoa(e.Book.PageCount)
	}
	return r.writePlain("%s\n%s %d%%  page %d/%s\n", e.Book.Title, formatter.ProgressBar(e.Progress, 30), e.Progress, e.CurrentPage, total)
}

// LibraryNote replaces an entry's notes.
func (r *Runner) LibraryNote(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("%w: usage: note <entry> <text...>", shared.ErrMissingArgument)
	}

	store, _, release, err := r.libraryStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	entry, err := resolveEntry(store, cmd.Args().First())
	if err != nil {
		return err
	}
	text := joinArgs(cmd, 1)
	if err := store.AddNote(ctx, entry.ID, text); err != nil {
		return err
	}
	if text == "" {
		return r.writePlain("✓ Cleared notes on %q\n", entry.Book.Title)
	}
	return r.writePlain("✓ Updated notes on %q\n", entry.Book.Title)
}

// LibraryExport writes the library in the requested format.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	store, _, release, err := r.libraryStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	format := cmd.String("format")
	output := cmd.String("output")
	if !cmd.IsSet("output") {
		output = strings.TrimSuffix(output, filepath.Ext(output)) + "." + exportExt(format)
	}

	entries := store.Entries()
	res, err := formatter.WriteExport(ctx, entries, stats.Derive(entries, r.now()), output, formatter.ExportOpts{
		Format:     format,
		Title:      cmd.String("title"),
		Covers:     cmd.Bool("covers"),
		HTTPClient: r.httpClient,
		Warn:       func(msg string, kv ...any) { r.logger.Warn(msg, kv...) },
	})
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %d books to %s\n", len(entries), res.Path)
	if len(res.Covers) > 0 {
		r.writePlain("  %d covers saved\n", len(res.Covers))
	}
	return nil
}

func exportExt(format string) string {
	switch format {
	case "markdown", "md":
		return "md"
	case "txt", "text":
		return "txt"
	default:
		return format
	}
}
