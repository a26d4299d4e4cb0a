package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/masahif/scrapeline/internal/model"
)

const (
	paragraphPreview   = 5
	paragraphMaxLen    = 100
	linkPreview        = 10
	imagePreview       = 5
	tablePreview       = 3
	codePreview        = 3
	codeMaxLen         = 60
	selectorPreview    = 3
	recordSeparatorLen = 80
)

// TextFormatter writes a human-readable block per record.
type TextFormatter struct{}

// Format implements Formatter.
func (f *TextFormatter) Format(w io.Writer, records []model.PageRecord) error {
	var b strings.Builder

	for i := range records {
		if i > 0 {
			b.WriteString("\n\n")
			b.WriteString(strings.Repeat("=", recordSeparatorLen))
			b.WriteString("\n\n")
		}
		writeTextRecord(&b, &records[i])
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Extension implements Formatter.
func (f *TextFormatter) Extension() string { return "txt" }

func writeTextRecord(b *strings.Builder, rec *model.PageRecord) {
	fmt.Fprintf(b, "URL: %s\n", rec.URL)
	fmt.Fprintf(b, "Status: %d\n", rec.StatusCode)
	fmt.Fprintf(b, "Depth: %d\n", rec.Depth)
	if rec.Title != nil {
		fmt.Fprintf(b, "Title: %s\n", *rec.Title)
	}
	if rec.Error != "" {
		fmt.Fprintf(b, "Error: %s\n", rec.Error)
	}

	if len(rec.Headings) > 0 {
		fmt.Fprintf(b, "\nHeadings (%d):\n", len(rec.Headings))
		for _, h := range rec.Headings {
			fmt.Fprintf(b, "  - %s\n", h)
		}
	}

	if len(rec.Paragraphs) > 0 {
		fmt.Fprintf(b, "\nParagraphs (%d):\n", len(rec.Paragraphs))
		for i, p := range head(rec.Paragraphs, paragraphPreview) {
			fmt.Fprintf(b, "  %d. %s\n", i+1, truncate(p, paragraphMaxLen))
		}
		writeMore(b, "  ", len(rec.Paragraphs), paragraphPreview)
	}

	if len(rec.Links) > 0 {
		fmt.Fprintf(b, "\nLinks (%d):\n", len(rec.Links))
		for _, l := range head(rec.Links, linkPreview) {
			fmt.Fprintf(b, "  - %s (%s)\n", l.Text, l.URL)
		}
		writeMore(b, "  ", len(rec.Links), linkPreview)
	}

	if len(rec.Images) > 0 {
		fmt.Fprintf(b, "\nImages (%d):\n", len(rec.Images))
		for _, img := range head(rec.Images, imagePreview) {
			alt := img.Alt
			if alt == "" {
				alt = "No alt text"
			}
			fmt.Fprintf(b, "  - %s (%s)\n", alt, img.Src)
		}
		writeMore(b, "  ", len(rec.Images), imagePreview)
	}

	if len(rec.Tables) > 0 {
		fmt.Fprintf(b, "\nTables (%d):\n", len(rec.Tables))
		for i, t := range head(rec.Tables, tablePreview) {
			fmt.Fprintf(b, "  Table %d:\n", i+1)
			if len(t.Headers) > 0 {
				fmt.Fprintf(b, "    Headers: %s\n", strings.Join(t.Headers, ", "))
			}
			fmt.Fprintf(b, "    Rows: %d\n", len(t.Rows))
		}
		writeMore(b, "  ", len(rec.Tables), tablePreview)
	}

	if len(rec.CodeBlocks) > 0 {
		fmt.Fprintf(b, "\nCode Blocks (%d):\n", len(rec.CodeBlocks))
		for i, c := range head(rec.CodeBlocks, codePreview) {
			lang := ""
			if c.Language != nil {
				lang = " (" + *c.Language + ")"
			}
			fmt.Fprintf(b, "  %d. %s%s\n", i+1, truncate(c.Content, codeMaxLen), lang)
		}
		writeMore(b, "  ", len(rec.CodeBlocks), codePreview)
	}

	if rec.Metadata != nil {
		writeTextMetadata(b, rec.Metadata)
	}

	if len(rec.CustomSelectors) > 0 {
		b.WriteString("\nCustom Selectors:\n")
		for _, sel := range rec.CustomSelectors {
			fmt.Fprintf(b, "  '%s' (%d matches):\n", sel.Selector, len(sel.Matches))
			for i, m := range head(sel.Matches, selectorPreview) {
				fmt.Fprintf(b, "    %d. %s\n", i+1, m)
			}
			writeMore(b, "    ", len(sel.Matches), selectorPreview)
		}
	}

	if len(rec.Warnings) > 0 {
		fmt.Fprintf(b, "\nWarnings (%d):\n", len(rec.Warnings))
		for _, warn := range rec.Warnings {
			fmt.Fprintf(b, "  - %s\n", warn)
		}
	}
}

func writeTextMetadata(b *strings.Builder, m *model.Metadata) {
	b.WriteString("\nMetadata:\n")

	fields := []struct {
		label string
		value *string
	}{
		{"Description", m.Description},
		{"Keywords", m.Keywords},
		{"Author", m.Author},
		{"OG Title", m.OGTitle},
		{"OG Description", m.OGDescription},
		{"OG Image", m.OGImage},
		{"OG URL", m.OGURL},
		{"Canonical URL", m.CanonicalURL},
		{"Favicon", m.Favicon},
	}
	for _, field := range fields {
		if field.value != nil {
			fmt.Fprintf(b, "  %s: %s\n", field.label, *field.value)
		}
	}
}

func writeMore(b *strings.Builder, indent string, total, shown int) {
	if total > shown {
		fmt.Fprintf(b, "%s... and %d more\n", indent, total-shown)
	}
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
