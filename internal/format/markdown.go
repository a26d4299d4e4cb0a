package format

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/masahif/scrapeline/internal/model"
)

// MarkdownFormatter writes a Markdown report with a summary table and one
// section per record.
type MarkdownFormatter struct{}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(w io.Writer, records []model.PageRecord) error {
	md := markdown.NewMarkdown(w)

	md.H1("Scrape Report")
	md.PlainText("")
	writeMarkdownSummary(md, records)

	for i := range records {
		writeMarkdownRecord(md, &records[i])
	}

	return md.Build()
}

// Extension implements Formatter.
func (f *MarkdownFormatter) Extension() string { return "md" }

func writeMarkdownSummary(md *markdown.Markdown, records []model.PageRecord) {
	if len(records) == 0 {
		md.PlainText("No pages were scraped.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(records))
	for i := range records {
		rec := &records[i]
		rows[i] = []string{
			cell(rec.URL),
			strconv.Itoa(rec.StatusCode),
			cell(rec.TitleOrEmpty()),
			strconv.Itoa(rec.Depth),
			strconv.Itoa(len(rec.Links)),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Title", "Depth", "Links"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeMarkdownRecord(md *markdown.Markdown, rec *model.PageRecord) {
	title := rec.TitleOrEmpty()
	if title == "" {
		title = rec.URL
	}
	md.H2(title)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", cell(rec.URL)},
			{"Status", strconv.Itoa(rec.StatusCode)},
			{"Depth", strconv.Itoa(rec.Depth)},
		},
	})
	md.PlainText("")

	if rec.Error != "" {
		md.Cautionf("%s", rec.Error)
		md.PlainText("")
	}
	for _, warn := range rec.Warnings {
		md.Warningf("%s", warn)
		md.PlainText("")
	}

	if len(rec.Headings) > 0 {
		md.PlainText("### Headings")
		md.PlainText("")
		md.BulletList(rec.Headings...)
		md.PlainText("")
	}

	if len(rec.Paragraphs) > 0 {
		md.PlainText("### Paragraphs")
		md.PlainText("")
		items := make([]string, 0, paragraphPreview)
		for _, p := range head(rec.Paragraphs, paragraphPreview) {
			items = append(items, truncate(p, paragraphMaxLen))
		}
		md.BulletList(items...)
		writeMarkdownMore(md, len(rec.Paragraphs), paragraphPreview)
	}

	if len(rec.Links) > 0 {
		md.PlainText("### Links")
		md.PlainText("")
		items := make([]string, 0, linkPreview)
		for _, l := range head(rec.Links, linkPreview) {
			text := l.Text
			if text == "" {
				text = l.URL
			}
			items = append(items, "["+text+"]("+l.URL+")")
		}
		md.BulletList(items...)
		writeMarkdownMore(md, len(rec.Links), linkPreview)
	}

	if len(rec.Images) > 0 {
		md.PlainText("### Images")
		md.PlainText("")
		items := make([]string, 0, imagePreview)
		for _, img := range head(rec.Images, imagePreview) {
			alt := img.Alt
			if alt == "" {
				alt = "No alt text"
			}
			items = append(items, alt+" (`"+img.Src+"`)")
		}
		md.BulletList(items...)
		writeMarkdownMore(md, len(rec.Images), imagePreview)
	}

	for i, t := range head(rec.Tables, tablePreview) {
		if len(t.Headers) == 0 || len(t.Rows) == 0 {
			continue
		}
		md.PlainText("### Table " + strconv.Itoa(i+1))
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: cells(t.Headers),
			Rows:   padRows(t.Rows, len(t.Headers)),
		})
		md.PlainText("")
	}

	for _, c := range head(rec.CodeBlocks, codePreview) {
		lang := ""
		if c.Language != nil {
			lang = *c.Language
		}
		md.CodeBlocks(markdown.SyntaxHighlight(lang), c.Content)
		md.PlainText("")
	}

	if rec.Metadata != nil {
		writeMarkdownMetadata(md, rec.Metadata)
	}

	for _, sel := range rec.CustomSelectors {
		md.PlainText("### Selector `" + sel.Selector + "`")
		md.PlainText("")
		if len(sel.Matches) == 0 {
			md.PlainText("No matches.")
			md.PlainText("")
			continue
		}
		md.BulletList(sel.Matches...)
		md.PlainText("")
	}
}

func writeMarkdownMetadata(md *markdown.Markdown, m *model.Metadata) {
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

	var rows [][]string
	for _, field := range fields {
		if field.value != nil {
			rows = append(rows, []string{field.label, cell(*field.value)})
		}
	}
	if len(rows) == 0 {
		return
	}

	md.PlainText("### Metadata")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeMarkdownMore(md *markdown.Markdown, total, shown int) {
	if total > shown {
		md.PlainTextf("*... and %d more*", total-shown)
	}
	md.PlainText("")
}

// cell escapes a value for use inside a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func cells(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = cell(v)
	}
	return out
}

// padRows fits every row to width columns.
func padRows(rows [][]string, width int) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		padded := make([]string, width)
		for j := 0; j < width && j < len(row); j++ {
			padded[j] = cell(row[j])
		}
		out[i] = padded
	}
	return out
}
