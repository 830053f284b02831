// package formatter renders library data for export (CSV, Markdown, plain text, JSON) and formats
// catalog text for display.
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
)

// Export formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

const dateLayout = "2006-01-02"

// ExportToCSV writes one row per entry with columns: ID, Book ID, Title, Authors, Pages, Progress,
// Current Page, Saved, Last Read, Notes
func ExportToCSV(entries []models.LibraryEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Book ID", "Title", "Authors", "Pages", "Progress", "Current Page", "Saved", "Last Read", "Notes"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range entries {
		lastRead := ""
		if e.LastRead != nil {
			lastRead = e.LastRead.Format(dateLayout)
		}
		record := []string{
			e.ID,
			e.Book.ID,
			e.Book.Title,
			e.Book.Byline(),
			strconv.Itoa(e.Book.PageCount),
			strconv.Itoa(e.Progress),
			strconv.Itoa(e.CurrentPage),
			e.SavedAt.Format(dateLayout),
			lastRead,
			e.Notes,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a reading report grouped by status. covers maps book IDs to image paths
// relative to the document and may be nil.
func ExportToMarkdown(title string, entries []models.LibraryEntry, stats models.Stats, covers map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Books**: %d\n", stats.TotalBooks)
	fmt.Fprintf(&buf, "**Reading**: %d\n", stats.Reading)
	fmt.Fprintf(&buf, "**Completed**: %d\n", stats.Completed)
	fmt.Fprintf(&buf, "**Pages read**: %d of %d\n", stats.PagesRead, stats.TotalPages)
	fmt.Fprintf(&buf, "**Average progress**: %d%%\n\n", stats.AvgProgress)

	sections := []struct {
		heading string
		keep    func(models.LibraryEntry) bool
	}{
		{"Reading", models.LibraryEntry.InProgress},
		{"Completed", models.LibraryEntry.Completed},
		{"Not started", func(e models.LibraryEntry) bool { return e.Progress == 0 }},
	}

	for _, section := range sections {
		var rows []models.LibraryEntry
		for _, e := range entries {
			if section.keep(e) {
				rows = append(rows, e)
			}
		}
		if len(rows) == 0 {
			continue
		}

		fmt.Fprintf(&buf, "## %s\n\n", section.heading)
		for i, e := range rows {
			fmt.Fprintf(&buf, "%d. **%s** by %s [%d%%]\n", i+1, e.Book.Title, e.Book.Byline(), e.Progress)
			if cover := covers[e.Book.ID]; cover != "" {
				fmt.Fprintf(&buf, "   ![%s](%s)\n", e.Book.Title, cover)
			}
			if notes := strings.TrimSpace(e.Notes); notes != "" {
				for line := range strings.SplitSeq(notes, "\n") {
					fmt.Fprintf(&buf, "   > %s\n", line)
				}
			}
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText renders one line per entry.
func ExportToText(entries []models.LibraryEntry) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Library: %d books\n\n", len(entries))
	for i, e := range entries {
		fmt.Fprintf(&buf, "%d. %s - %s (%d%%)\n", i+1, e.Book.Byline(), e.Book.Title, e.Progress)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders entries as indented JSON.
func ExportToJSON(entries []models.LibraryEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.LibraryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal library: %w", err)
	}
	return append(data, '\n'), nil
}

// DownloadImage fetches an image and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ExportOpts configures WriteExport.
type ExportOpts struct {
	Format string
	Title  string
	// Covers downloads thumbnails next to a Markdown export.
	Covers     bool
	HTTPClient *http.Client
	Warn       func(msg string, kv ...any)
}

// ExportResult lists the files WriteExport created.
type ExportResult struct {
	Path   string
	Covers []string
}

// WriteExport writes entries to path in opts.Format. Markdown exports with Covers set also
// download each thumbnail into a covers/ directory beside path; failed downloads are skipped.
func WriteExport(ctx context.Context, entries []models.LibraryEntry, stats models.Stats, path string, opts ExportOpts) (*ExportResult, error) {
	if opts.Title == "" {
		opts.Title = "My Library"
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	result := &ExportResult{Path: path}

	var (
		data []byte
		err  error
	)
	switch opts.Format {
	case FormatCSV:
		data, err = ExportToCSV(entries)
	case FormatText:
		data, err = ExportToText(entries)
	case FormatMarkdown:
		covers := map[string]string{}
		if opts.Covers {
			covers, result.Covers = downloadCovers(ctx, entries, filepath.Dir(path), opts)
		}
		data, err = ExportToMarkdown(opts.Title, entries, stats, covers)
	case FormatJSON, "":
		data, err = ExportToJSON(entries)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}
	return result, nil
}

func downloadCovers(ctx context.Context, entries []models.LibraryEntry, dir string, opts ExportOpts) (map[string]string, []string) {
	covers := map[string]string{}
	var files []string

	coverDir := filepath.Join(dir, "covers")
	if err := os.MkdirAll(coverDir, 0755); err != nil {
		warn(opts, "failed to create cover directory", "error", err)
		return covers, nil
	}

	for _, e := range entries {
		if e.Book.Thumbnail == "" {
			continue
		}
		data, err := DownloadImage(ctx, opts.HTTPClient, e.Book.Thumbnail)
		if err != nil {
			warn(opts, "failed to download cover", "book", e.Book.ID, "error", err)
			continue
		}
		name := e.Book.ID + ".jpg"
		full := filepath.Join(coverDir, name)
		if err := os.WriteFile(full, data, 0644); err != nil {
			warn(opts, "failed to save cover", "book", e.Book.ID, "error", err)
			continue
		}
		covers[e.Book.ID] = "covers/" + name
		files = append(files, full)
	}
	return covers, files
}

func warn(opts ExportOpts, msg string, kv ...any) {
	if opts.Warn != nil {
		opts.Warn(msg, kv...)
	}
}
