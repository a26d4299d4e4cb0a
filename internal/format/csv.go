package format

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/masahif/scrapeline/internal/model"
)

// CSVHeader is the fixed column set of the CSV summary.
var CSVHeader = []string{
	"url",
	"status_code",
	"title",
	"headings_count",
	"paragraphs_count",
	"links_count",
	"images_count",
	"depth",
}

// CSVFormatter writes one summary row per record. Content is reduced to counts.
type CSVFormatter struct{}

// Format implements Formatter.
func (f *CSVFormatter) Format(w io.Writer, records []model.PageRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range records {
		rec := &records[i]
		row := []string{
			rec.URL,
			strconv.Itoa(rec.StatusCode),
			rec.TitleOrEmpty(),
			strconv.Itoa(len(rec.Headings)),
			strconv.Itoa(len(rec.Paragraphs)),
			strconv.Itoa(len(rec.Links)),
			strconv.Itoa(len(rec.Images)),
			strconv.Itoa(rec.Depth),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", rec.URL, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Extension implements Formatter.
func (f *CSVFormatter) Extension() string { return "csv" }
