// Package config holds the crawl document a run is driven by, the store that
// keeps named documents on disk, and the application settings.
package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alvmarrod/harvester/internal/selector"
)

// MaxPage is the stop page used when pagination is unbounded.
const MaxPage = 9999999

// DefaultRequestTimeout applies when neither the document nor the settings
// set a request timeout.
const DefaultRequestTimeout = 10 * time.Second

// Placeholders accepted in the multi-page URL template.
var pagePlaceholders = []string{"{}", "{0}", "{page}", "%d"}

// OutputConfig configures the JSONL sink.
type OutputConfig struct {
	FilePrefix string `json:"file_prefix"`
	MaxEntries int    `json:"max_entries"`
	BasePath   string `json:"base_path"`
}

// CrawlConfig describes one harvest: where the index pages are, how to find
// links on them, how to read each article and where to put the results.
type CrawlConfig struct {
	Name             string               `json:"name"`
	BaseURL          string               `json:"base_url"`
	URLOnePage       string               `json:"url_onepage"`
	URLMultiPage     string               `json:"url_multi_page"`
	StartPage        int                  `json:"url_multi_page_start"`
	StopPage         int                  `json:"url_multi_page_stop"`
	List             selector.ListSpec    `json:"url_list_config"`
	Article          selector.ArticleSpec `json:"article_config"`
	DelayMin         int                  `json:"delay_min"`
	DelayMax         int                  `json:"delay_max"`
	Headers          map[string]string    `json:"headers"`
	UseJSONL         bool                 `json:"use_jsonl"`
	Output           OutputConfig         `json:"jsonl_config"`
	RequestTimeoutMs int                  `json:"request_timeout_ms,omitempty"`
	KeepEmptyLinks   bool                 `json:"keep_empty_links,omitempty"`
}

// ValidationError reports a field holding an unusable value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Default returns a document with every optional value filled in. Decoding a
// JSON document on top of it keeps these values for absent keys.
func Default() *CrawlConfig {
	return &CrawlConfig{
		Name:      "default",
		BaseURL:   "https://example.com",
		StartPage: 1,
		StopPage:  MaxPage,
		List: selector.ListSpec{
			Container: selector.Element{Name: "div"},
			Item: selector.ItemSpec{
				Element: selector.Element{Name: "li"},
				Title:   selector.Field{Name: "a", Attr: selector.TextAttr},
				Link:    selector.Field{Name: "a", Attr: "href"},
			},
		},
		Article: selector.ArticleSpec{
			Container: selector.Element{Name: "div"},
			TextItem: selector.TextSpec{
				Element: selector.Element{Name: "p"},
				Attr:    selector.TextAttr,
			},
		},
		DelayMin: 1000,
		DelayMax: 3000,
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		},
		Output: OutputConfig{
			MaxEntries: 5000,
			BasePath:   "output",
		},
	}
}

// LoadConfig reads and validates a crawl document from a JSON file.
func LoadConfig(path string) (*CrawlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON crawl document, applies defaults and validates it.
func Parse(data []byte) (*CrawlConfig, error) {
	cfg := Default()
	// Headers replace the defaults rather than merging into them.
	cfg.Headers = nil
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyDefaults fills values that were present but left empty.
func (c *CrawlConfig) applyDefaults() {
	def := Default()

	if c.StopPage == 0 {
		c.StopPage = MaxPage
	}
	if c.Headers == nil {
		c.Headers = def.Headers
	} else {
		c.Headers = canonicalHeaders(c.Headers)
	}
	if c.List.Item.Name == "" {
		c.List.Item.Name = def.List.Item.Name
	}
	if c.List.Item.Title.Name == "" {
		c.List.Item.Title.Name = def.List.Item.Title.Name
	}
	if c.List.Item.Link.Name == "" {
		c.List.Item.Link.Name = def.List.Item.Link.Name
	}
	if c.List.Item.Link.Attr == "" {
		c.List.Item.Link.Attr = def.List.Item.Link.Attr
	}
	if c.Article.TextItem.Name == "" {
		c.Article.TextItem.Name = def.Article.TextItem.Name
	}
	if c.Output.FilePrefix == "" {
		c.Output.FilePrefix = c.Name
	}
	if c.Output.FilePrefix == "" {
		c.Output.FilePrefix = "crawl_result"
	}
	if c.Output.MaxEntries == 0 {
		c.Output.MaxEntries = def.Output.MaxEntries
	}
	if c.Output.BasePath == "" {
		c.Output.BasePath = def.Output.BasePath
	}
}

// Validate checks that numeric bounds are consistent. Missing URLs are not
// reported here; see RequireURLs.
func (c *CrawlConfig) Validate() error {
	if c.DelayMin < 0 {
		return &ValidationError{Field: "delay_min", Reason: "must be >= 0"}
	}
	if c.DelayMax < c.DelayMin {
		return &ValidationError{
			Field:  "delay_max",
			Reason: fmt.Sprintf("must be >= delay_min (%d < %d)", c.DelayMax, c.DelayMin),
		}
	}
	if c.StartPage < 0 {
		return &ValidationError{Field: "url_multi_page_start", Reason: "must be >= 0"}
	}
	if c.StopPage < c.StartPage {
		return &ValidationError{Field: "url_multi_page_stop", Reason: "must be >= url_multi_page_start"}
	}
	if c.Output.MaxEntries < 0 {
		return &ValidationError{Field: "jsonl_config.max_entries", Reason: "must be > 0"}
	}
	if c.RequestTimeoutMs < 0 {
		return &ValidationError{Field: "request_timeout_ms", Reason: "must be >= 0"}
	}
	if c.URLMultiPage != "" && c.StopPage > c.StartPage && !hasPlaceholder(c.URLMultiPage) {
		return &ValidationError{Field: "url_multi_page", Reason: "needs a page number placeholder such as {}"}
	}
	return nil
}

// RequireURLs reports whether both the one-page URL and the page template
// are set.
func (c *CrawlConfig) RequireURLs() error {
	if strings.TrimSpace(c.URLOnePage) == "" {
		return &ValidationError{Field: "url_onepage", Reason: "is required"}
	}
	if strings.TrimSpace(c.URLMultiPage) == "" {
		return &ValidationError{Field: "url_multi_page", Reason: "is required"}
	}
	return nil
}

// PageURL returns the index page URL for page n. The start page is the
// one-page URL; every other page fills the template's placeholder.
func (c *CrawlConfig) PageURL(n int) string {
	if n == c.StartPage && c.URLOnePage != "" {
		return c.URLOnePage
	}

	page := strconv.Itoa(n)
	for _, ph := range pagePlaceholders {
		if strings.Contains(c.URLMultiPage, ph) {
			return strings.Replace(c.URLMultiPage, ph, page, 1)
		}
	}
	return c.URLMultiPage
}

// Header returns the configured headers with canonical keys.
func (c *CrawlConfig) Header() http.Header {
	h := make(http.Header, len(c.Headers))
	for key, value := range canonicalHeaders(c.Headers) {
		h.Set(key, value)
	}
	return h
}

// canonicalHeaders rewrites keys with http.CanonicalHeaderKey. When several
// keys differ only in case, the lexically greatest original key wins.
func canonicalHeaders(headers map[string]string) map[string]string {
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(headers))
	for _, key := range keys {
		out[http.CanonicalHeaderKey(strings.TrimSpace(key))] = headers[key]
	}
	return out
}

// Delays returns the delay bounds as durations.
func (c *CrawlConfig) Delays() (time.Duration, time.Duration) {
	return time.Duration(c.DelayMin) * time.Millisecond, time.Duration(c.DelayMax) * time.Millisecond
}

// RequestTimeout returns the per-request timeout. Zero means unset and falls
// back to DefaultRequestTimeout.
func (c *CrawlConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutMs <= 0 {
		return DefaultRequestTimeout
	}
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// Clone returns a deep copy.
func (c *CrawlConfig) Clone() *CrawlConfig {
	cp := *c
	if c.Headers != nil {
		cp.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			cp.Headers[k] = v
		}
	}
	return &cp
}

func hasPlaceholder(tmpl string) bool {
	for _, ph := range pagePlaceholders {
		if strings.Contains(tmpl, ph) {
			return true
		}
	}
	return false
}
