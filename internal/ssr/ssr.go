package ssr

import (
	"bytes"
	"fmt"
	"github.com/PuerkitoBio/goquery"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"html/template"
	"io"
	"strings"
)

// classes applied to the elements goldmark renders so that messages match the chat bubble styling.
var classes = map[string]string{
	"h1":         "md-heading md-heading-1",
	"h2":         "md-heading md-heading-2",
	"h3":         "md-heading md-heading-3",
	"ul":         "md-list",
	"ol":         "md-list md-list-ordered",
	"blockquote": "md-quote",
	"code":       "md-code",
}

// Markdown renders assistant text to HTML that is safe to embed in a template. Raw HTML in the source is omitted by
// goldmark, so only markdown constructs reach the page.
func Markdown(source string) (template.HTML, error) {
	var rendered bytes.Buffer
	if err := goldmark.Convert([]byte(source), &rendered); err != nil {
		return "", errors.Wrap(err, "convert markdown")
	}
	var decorated strings.Builder
	if err := Decorate(&decorated, &rendered); err != nil {
		return "", errors.Wrap(err, "decorate markdown")
	}
	return template.HTML(decorated.String()), nil //nolint:gosec // goldmark omits raw HTML
}

// Decorate adds the chat styling classes to an HTML fragment and opens external links in a new tab.
func Decorate(writer io.Writer, reader io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return errors.Wrap(err, "parse html")
	}

	for selector, class := range classes {
		doc.Find(selector).AddClass(class)
	}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		s.AddClass("md-link")
		href, _ := s.Attr("href")
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
			s.SetAttr("target", "_blank")
			s.SetAttr("rel", "noopener noreferrer")
		}
	})

	// goquery wraps the fragment in a document. Only the body's children are written back.
	body := doc.Find("body")
	if len(body.Nodes) > 0 {
		for c := body.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
			if err = html.Render(writer, c); err != nil {
				return fmt.Errorf("render html: %w", err)
			}
		}
	}
	return nil
}
