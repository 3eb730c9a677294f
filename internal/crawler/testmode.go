package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/alvmarrod/harvester/internal/parser"
)

const (
	// TestDelayCap bounds every delay during a configuration test.
	TestDelayCap = 500 * time.Millisecond

	maxSampleLinks    = 10
	maxSampleArticles = 5
	previewRunes      = 200
)

// SampleLink is a link seen during a configuration test.
type SampleLink struct {
	Page  int    `json:"page"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SampleArticle is a parsed article seen during a configuration test.
type SampleArticle struct {
	Title          string `json:"title"`
	URL            string `json:"url"`
	Time           string `json:"time"`
	ContentLength  int    `json:"content_length"`
	ContentPreview string `json:"content_preview"`
}

// TestReport describes how a crawl document behaves against the live site.
type TestReport struct {
	PagesTested    int             `json:"pages_tested"`
	LinksFound     int             `json:"links_found"`
	ArticlesTested int             `json:"articles_tested"`
	ArticlesParsed int             `json:"articles_parsed"`
	SampleLinks    []SampleLink    `json:"sample_links"`
	SampleArticles []SampleArticle `json:"sample_articles"`
	Errors         []string        `json:"errors"`
	Success        bool            `json:"success"`
	Stopped        bool            `json:"stopped"`
}

func (t *TestReport) addError(msg string) {
	if t == nil {
		return
	}
	t.Errors = append(t.Errors, msg)
}

func (t *TestReport) addLinks(page int, links []parser.LinkItem) {
	if t == nil {
		return
	}
	for _, link := range links {
		if len(t.SampleLinks) >= maxSampleLinks {
			return
		}
		t.SampleLinks = append(t.SampleLinks, SampleLink{Page: page, Title: link.Title, URL: link.URL})
	}
}

func (t *TestReport) addArticle(rec parser.ArticleRecord) {
	if t == nil {
		return
	}
	t.ArticlesParsed++
	if len(t.SampleArticles) >= maxSampleArticles {
		return
	}
	t.SampleArticles = append(t.SampleArticles, SampleArticle{
		Title:          rec.Title,
		URL:            rec.URL,
		Time:           rec.Time,
		ContentLength:  len([]rune(rec.Content)),
		ContentPreview: preview(rec.Content, previewRunes),
	})
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// TestConfig runs the harvest pipeline against at most maxPages index pages
// and maxArticles articles without persisting anything, with every delay
// capped at TestDelayCap. Failures of the pipeline itself end up in the
// report; only configuration errors and concurrent use are returned.
func (c *Crawler) TestConfig(ctx context.Context, maxPages, maxArticles int) (*TestReport, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrRunning
	}
	defer c.running.Store(false)

	if maxPages <= 0 {
		maxPages = 1
	}
	if maxArticles <= 0 {
		maxArticles = 1
	}

	last := c.cfg.StopPage
	if span := c.cfg.StartPage + maxPages - 1; span < last {
		last = span
	}

	report := &TestReport{
		SampleLinks:    []SampleLink{},
		SampleArticles: []SampleArticle{},
		Errors:         []string{},
	}
	r := c.newRun(ctx, plan{
		mode:     "test",
		persist:  false,
		lastPage: last,
		maxLinks: maxArticles,
		delayCap: TestDelayCap,
		report:   report,
	})

	res, err := r.execute()
	report.PagesTested = res.Pages
	report.LinksFound = res.LinksUnique
	report.Success = report.PagesTested > 0 && report.LinksFound > 0 && report.ArticlesParsed > 0

	if errors.Is(err, ErrMissingURLs) {
		return report, err
	}
	return report, nil
}
