// Package format renders page records as JSON, CSV, plain text or Markdown.
package format

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/masahif/scrapeline/internal/model"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown format")

// Formatter renders a sequence of records to a writer.
type Formatter interface {
	// Format writes records in order. An empty slice is valid.
	Format(w io.Writer, records []model.PageRecord) error

	// Extension is the file extension used for per-page output, without the dot.
	Extension() string
}

// Names lists the accepted format names.
var Names = []string{"json", "csv", "text", "txt", "markdown", "md"}

// New returns the formatter for name (case-insensitive).
func New(name string) (Formatter, error) {
	switch strings.ToLower(name) {
	case "json":
		return &JSONFormatter{Indent: "  "}, nil
	case "csv":
		return &CSVFormatter{}, nil
	case "text", "txt":
		return &TextFormatter{}, nil
	case "markdown", "md":
		return &MarkdownFormatter{}, nil
	default:
		return nil, fmt.Errorf("%w '%s'. Use: json, csv, text or markdown", ErrUnknownFormat, name)
	}
}

// PerPageFilename returns the file name of the index-th (zero based) record.
func PerPageFilename(prefix string, index int, ext string) string {
	return fmt.Sprintf("%s_%03d.%s", prefix, index+1, ext)
}

// WritePerPage writes every record to its own file named prefix_001.ext,
// prefix_002.ext and so on. It returns the written file names.
func WritePerPage(prefix string, f Formatter, records []model.PageRecord) ([]string, error) {
	slog.Info("Writing pages to individual files", "count", len(records), "prefix", prefix)

	files := make([]string, 0, len(records))
	for i := range records {
		name := PerPageFilename(prefix, i, f.Extension())
		if err := writeFile(name, f, records[i:i+1]); err != nil {
			return files, err
		}
		slog.Debug("Saved page", "file", name, "url", records[i].URL)
		files = append(files, name)
	}
	return files, nil
}

// WriteFile renders all records into a single file.
func WriteFile(path string, f Formatter, records []model.PageRecord) error {
	if err := writeFile(path, f, records); err != nil {
		return err
	}
	slog.Info("Output saved", "file", path, "records", len(records))
	return nil
}

func writeFile(path string, f Formatter, records []model.PageRecord) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	if err := f.Format(file, records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// truncate shortens s to at most maxLen bytes plus an ellipsis, never
// splitting a UTF-8 sequence.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
