// Package parser turns fetched HTML into link lists and article records using
// the declarative specs from package selector.
package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvmarrod/harvester/internal/selector"
	"github.com/alvmarrod/harvester/internal/timestamp"
)

// LinkItem is one entry of an index page's link list.
type LinkItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ArticleRecord is the outcome of parsing one article page. Error is set when
// the page could not be parsed as described; Content is then empty.
type ArticleRecord struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Time    string `json:"time"`
	Error   string `json:"error,omitempty"`
}

// NewDocument parses an HTML body.
func NewDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

// ParseLinkList extracts the link list described by spec, in document order.
// Relative links are resolved against baseURL. Items whose link element lacks
// the link attribute produce an entry with an empty URL.
func ParseLinkList(doc *goquery.Document, baseURL string, spec selector.ListSpec) []LinkItem {
	if doc == nil {
		return nil
	}

	container := selector.Container(doc.Selection, spec.Container)
	items := selector.Items(container, spec.Item.Element)

	links := make([]LinkItem, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		title, _ := spec.Item.Title.Extract(item)

		var link string
		if spec.Item.Link.Has(item) {
			href, _ := spec.Item.Link.Extract(item)
			link = ResolveURL(baseURL, href)
		}

		if title == "" {
			title = link
		}
		links = append(links, LinkItem{Title: title, URL: link})
	})

	return links
}

// ParseArticle extracts the body text described by spec. The title comes from
// the first h1, then the document title. The time is inferred from the whole
// document with now as the fallback.
func ParseArticle(doc *goquery.Document, pageURL string, spec selector.ArticleSpec, now time.Time) (rec ArticleRecord) {
	rec = ArticleRecord{URL: pageURL}
	if doc == nil {
		rec.Error = "empty document"
		return rec
	}

	defer func() {
		if r := recover(); r != nil {
			rec.Content = ""
			rec.Error = fmt.Sprintf("parse article: %v", r)
		}
	}()

	rec.Title = documentTitle(doc)
	rec.Time = timestamp.Infer(doc.Selection, now)

	container := selector.Container(doc.Selection, spec.Container)
	if container.Length() == 0 {
		rec.Error = fmt.Sprintf("container %s not found", selector.Describe(spec.Container))
		return rec
	}

	rec.Content = strings.Join(textPieces(container, spec.TextItem), "\n")
	return rec
}

func textPieces(container *goquery.Selection, spec selector.TextSpec) []string {
	attr := strings.TrimSpace(spec.Attr)
	if attr == "" {
		attr = selector.TextAttr
	}

	var pieces []string
	selector.Items(container, spec.Element).Each(func(_ int, item *goquery.Selection) {
		var value string
		if attr == selector.TextAttr {
			value = selector.VisibleText(item)
		} else {
			v, ok := item.Attr(attr)
			if !ok {
				return
			}
			value = strings.TrimSpace(v)
		}
		if value != "" {
			pieces = append(pieces, value)
		}
	})
	return pieces
}

func documentTitle(doc *goquery.Document) string {
	if h1 := selector.VisibleText(doc.Find("h1").First()); h1 != "" {
		return h1
	}
	return selector.VisibleText(doc.Find("title").First())
}
