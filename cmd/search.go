package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/readx/internal/formatter"
	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/search"
	"github.com/desertthunder/readx/internal/shared"
)

// Search runs one catalog query through the search controller and prints the settled results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := joinArgs(cmd, 0)
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	filters := models.SearchFilters{
		PrintType:    cmd.String("print-type"),
		Availability: cmd.String("availability"),
		Language:     cmd.String("language"),
		Subject:      cmd.String("subject"),
	}
	if err := filters.Validate(); err != nil {
		return err
	}

	catalog, err := r.catalogClient(ctx)
	if err != nil {
		return err
	}

	pageSize := cmd.Int("page-size")
	if pageSize <= 0 {
		pageSize = r.config.Catalog.PageSize
	}

	controller := search.NewController(catalog,
		search.WithPageSize(pageSize),
		search.WithFilters(filters),
		search.WithLogger(shared.WithLogger(r.logger, "component", "search")),
	)
	defer controller.Close()

	controller.SetQuery(query)
	controller.Flush()
	controller.Wait()

	for range cmd.Int("more") {
		if !controller.LoadMore() {
			break
		}
		controller.Wait()
	}

	state := controller.State()
	if state.Reason == search.ReasonError {
		return fmt.Errorf("%w: %s", shared.ErrServiceUnavailable, state.Message)
	}

	if cmd.Bool("json") {
		return r.writeJSON(state, true)
	}

	if state.Reason == search.ReasonNoResults {
		return r.writePlain("%s\n", state.Message)
	}

	r.writePlainHeader(fmt.Sprintf("%q: %d of %d", state.DebouncedQuery, len(state.Results), state.TotalItems))
	for _, b := range state.Results {
		r.writePlain("%-14s %s\n", b.ID, formatter.Truncate(b.Title, 60))
		meta := []string{b.Byline()}
		if b.PublishedYear != "" {
			meta = append(meta, b.PublishedYear)
		}
		if b.PageCount > 0 {
			meta = append(meta, fmt.Sprintf("%d pages", b.PageCount))
		}
		r.writePlain("%-14s %s\n", "", strings.Join(meta, " • "))
	}
	if state.HasMore {
		r.writePlainln("More results available: rerun with --more %d", cmd.Int("more")+1)
	}
	return nil
}

// BookShow prints one book's details.
func (r *Runner) BookShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}

	catalog, err := r.catalogClient(ctx)
	if err != nil {
		return err
	}
	book, err := catalog.GetBook(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("open") {
		link := book.PreviewLink
		if link == "" {
			link = book.InfoLink
		}
		if err := shared.OpenBrowser(link); err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(book, true)
	}

	r.writePlainHeader(book.Title)
	r.writePlain("By:        %s\n", book.Byline())
	if book.Publisher != "" || book.PublishedYear != "" {
		r.writePlain("Published: %s %s\n", book.Publisher, book.PublishedYear)
	}
	if book.PageCount > 0 {
		r.writePlain("Pages:     %d\n", book.PageCount)
	}
	if len(book.Categories) > 0 {
		r.writePlain("Subjects:  %s\n", strings.Join(book.Categories, ", "))
	}
	if book.RatingsCount > 0 {
		r.writePlain("Rating:    %.1f (%d ratings)\n", book.AverageRating, book.RatingsCount)
	}
	r.writePlainln("%s", formatter.CleanDescription(book.Description))
	return nil
}
