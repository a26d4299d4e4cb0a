package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/masahif/scrapeline/internal/frontier"
	"github.com/masahif/scrapeline/internal/model"
)

// extractMetadata reads meta tags and link relations. The first occurrence
// of each field wins; names, properties and rel tokens match case-insensitively.
func extractMetadata(doc *goquery.Document, base *url.URL) *model.Metadata {
	md := &model.Metadata{}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		content = strings.TrimSpace(content)

		key := strings.ToLower(strings.TrimSpace(s.AttrOr("name", "")))
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(s.AttrOr("property", "")))
		}

		switch key {
		case "description":
			setOnce(&md.Description, content)
		case "keywords":
			setOnce(&md.Keywords, content)
		case "author":
			setOnce(&md.Author, content)
		case "og:title":
			setOnce(&md.OGTitle, content)
		case "og:description":
			setOnce(&md.OGDescription, content)
		case "og:image":
			setOnce(&md.OGImage, resolveOrRaw(base, content))
		case "og:url":
			setOnce(&md.OGURL, resolveOrRaw(base, content))
		}
	})

	doc.Find("link[rel][href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		for _, rel := range strings.Fields(strings.ToLower(s.AttrOr("rel", ""))) {
			switch rel {
			case "canonical":
				setOnce(&md.CanonicalURL, resolveOrRaw(base, href))
			case "icon":
				setOnce(&md.Favicon, resolveOrRaw(base, href))
			}
		}
	})

	return md
}

func setOnce(field **string, value string) {
	if *field == nil {
		*field = model.StringPtr(value)
	}
}

// resolveOrRaw resolves a URL-valued attribute against the page, keeping the
// raw value when it is not a crawlable URL (data: URIs, for example).
func resolveOrRaw(base *url.URL, raw string) string {
	u, err := frontier.Canonicalize(base, raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return u.String()
}
