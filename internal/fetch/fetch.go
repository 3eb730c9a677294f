// Package fetch performs the HTTP requests a crawl needs, on top of a colly
// collector.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Page is a fetched response. Body is already converted to UTF-8 when the
// server declared or implied another charset.
type Page struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Encoding   string
	Elapsed    time.Duration
}

// Fetcher retrieves a single page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Request is an arbitrary request issued through Do.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   string
}

// Options configures a CollyFetcher.
type Options struct {
	Timeout time.Duration
	Header  http.Header
	Logger  logrus.FieldLogger
}

// CollyFetcher is a Fetcher backed by a colly collector. Each request runs on
// a clone of the base collector, so one CollyFetcher may serve concurrent
// callers.
type CollyFetcher struct {
	base   *colly.Collector
	header http.Header
	log    logrus.FieldLogger
}

// NewCollyFetcher builds a fetcher that revisits URLs freely, converts
// response charsets and hands non-2xx responses back to the caller.
func NewCollyFetcher(opts Options) *CollyFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.DetectCharset(),
		colly.ParseHTTPErrorResponse(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(timeout)

	return &CollyFetcher{
		base:   c,
		header: opts.Header.Clone(),
		log:    log,
	}
}

// Fetch issues a GET for url with the configured headers. Non-2xx responses
// are returned as *StatusError.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	page, err := f.Do(ctx, Request{Method: http.MethodGet, URL: url})
	if err != nil {
		return nil, err
	}
	if page.StatusCode < 200 || page.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: page.StatusCode}
	}
	return page, nil
}

// Do issues req and returns the response whatever its status. Headers in req
// override the fetcher's configured headers.
func (f *CollyFetcher) Do(ctx context.Context, req Request) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	hdr := f.header.Clone()
	if hdr == nil {
		hdr = http.Header{}
	}
	for key, values := range req.Header {
		hdr[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	var (
		page     *Page
		fetchErr error
	)

	c := f.base.Clone()
	c.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
		if r.Headers != nil {
			page.Header = r.Headers.Clone()
		}
		page.Encoding = charsetOf(page.Header)
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	f.log.WithFields(logrus.Fields{"url": req.URL, "method": method}).Debug("Sending request")

	start := time.Now()
	err := c.Request(method, req.URL, body, nil, hdr)
	elapsed := time.Since(start)

	if err == nil {
		err = fetchErr
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
	}
	if page == nil {
		return nil, fmt.Errorf("fetch %s: no response", req.URL)
	}

	page.Elapsed = elapsed
	return page, nil
}

func charsetOf(h http.Header) string {
	if h == nil {
		return ""
	}
	_, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return strings.ToLower(params["charset"])
}
