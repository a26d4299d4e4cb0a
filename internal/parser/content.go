package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/masahif/scrapeline/internal/model"
)

var languageClass = regexp.MustCompile(`(?:^|\s)(?:language|lang)-([A-Za-z0-9_+#.-]+)`)

func extractTables(doc *goquery.Document) []model.Table {
	var tables []model.Table
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		t := model.Table{
			Headers: collectText(table.Find("th")),
			Rows:    [][]string{},
		}

		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := []string{}
			tr.ChildrenFiltered("td").Each(func(_ int, td *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(td.Text()))
			})
			if len(cells) > 0 {
				t.Rows = append(t.Rows, cells)
			}
		})

		if len(t.Headers) > 0 || len(t.Rows) > 0 {
			tables = append(tables, t)
		}
	})
	return tables
}

// extractCodeBlocks collects <pre> blocks and inline <code> elements that
// are not inside a <pre>.
func extractCodeBlocks(doc *goquery.Document) []model.CodeBlock {
	var blocks []model.CodeBlock

	add := func(s *goquery.Selection, langSource *goquery.Selection) {
		content := s.Text()
		if strings.TrimSpace(content) == "" {
			return
		}
		blocks = append(blocks, model.CodeBlock{
			Content:  content,
			Language: detectLanguage(langSource),
		})
	}

	doc.Find("pre").Each(func(_ int, pre *goquery.Selection) {
		codes := pre.Find("code")
		if codes.Length() == 0 {
			add(pre, pre)
			return
		}
		codes.Each(func(_ int, code *goquery.Selection) {
			add(code, code)
		})
	})

	doc.Find("code").Each(func(_ int, code *goquery.Selection) {
		if code.ParentsFiltered("pre").Length() > 0 {
			return
		}
		add(code, code)
	})

	return blocks
}

func detectLanguage(s *goquery.Selection) *string {
	class, ok := s.Attr("class")
	if !ok {
		return nil
	}
	m := languageClass.FindStringSubmatch(class)
	if m == nil {
		return nil
	}
	return model.StringPtr(m[1])
}
