package ingest

import (
	"bytes"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Article is the readable part of a crawled page.
type Article struct {
	Title string
	Text  string
}

// extractArticle pulls the main article text out of an HTML page.
// Readability handles well-structured article pages; forum threads and
// other pages it rejects fall back to collecting paragraph text with a
// CSS query.
func extractArticle(body []byte, pageURL *url.URL) (Article, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return Article{
			Title: strings.TrimSpace(article.Title),
			Text:  normalizeWhitespace(article.TextContent),
		}, nil
	}

	return extractParagraphs(body)
}

// extractParagraphs is the fallback extractor: page title plus the
// concatenated text of every paragraph node.
func extractParagraphs(body []byte) (Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Article{}, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	var parts []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return Article{}, errors.New("no readable content")
	}

	return Article{
		Title: title,
		Text:  strings.Join(parts, "\n\n"),
	}, nil
}

// normalizeWhitespace collapses runs of blank lines and trims each
// line, keeping paragraph boundaries intact.
func normalizeWhitespace(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
