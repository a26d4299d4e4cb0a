package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/masahif/scrapeline/internal/model"
)

// JSONFormatter writes records as a JSON array.
type JSONFormatter struct {
	// Indent enables pretty-printed output when non-empty.
	Indent string
}

// Format implements Formatter.
func (f *JSONFormatter) Format(w io.Writer, records []model.PageRecord) error {
	if records == nil {
		records = []model.PageRecord{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if f.Indent != "" {
		enc.SetIndent("", f.Indent)
	}
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Extension implements Formatter.
func (f *JSONFormatter) Extension() string { return "json" }
