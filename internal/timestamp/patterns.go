package timestamp

import "regexp"

// Layout is the canonical timestamp layout every inferred time is rendered in.
const Layout = "2006-01-02 15:04:05"

// datePatterns are tried in order against free text; the first match wins.
// More specific forms come first so a date followed by a time is never cut
// short at the date.
var datePatterns = []*regexp.Regexp{
	// ISO-8601 with 'T' separator, optional fraction and zone
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+(?:Z|[+-]\d{2}:?\d{2})?`),
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(?::\d{2})?(?:Z|[+-]\d{2}:?\d{2})?`),
	// ISO date + time
	regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}\s+\d{1,2}:\d{2}(?::\d{2})?`),
	// slash date + time
	regexp.MustCompile(`\d{4}/\d{1,2}/\d{1,2}\s+\d{1,2}:\d{2}(?::\d{2})?`),
	// localized year/month/day + time
	regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日\s*\d{1,2}:\d{2}(?::\d{2})?`),
	regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`),
	regexp.MustCompile(`\d{4}/\d{1,2}/\d{1,2}`),
	regexp.MustCompile(`\d{4}\.\d{1,2}\.\d{1,2}`),
	regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日`),
	// partial month/day, year taken from the clock
	regexp.MustCompile(`\d{1,2}月\d{1,2}日\s*\d{1,2}:\d{2}(?::\d{2})?`),
	regexp.MustCompile(`\d{1,2}月\d{1,2}日`),
}

type template struct {
	layout   string
	dateOnly bool
	noYear   bool
}

// templates are attempted in order after zero padding; the first successful
// parse wins.
var templates = []template{
	{layout: "2006-01-02T15:04:05Z07:00"},
	{layout: "2006-01-02T15:04:05Z0700"},
	{layout: "2006-01-02T15:04:05"},
	{layout: "2006-01-02T15:04Z07:00"},
	{layout: "2006-01-02T15:04"},
	{layout: "2006-01-02 15:04:05"},
	{layout: "2006-01-02 15:04"},
	{layout: "2006/01/02 15:04:05"},
	{layout: "2006/01/02 15:04"},
	{layout: "2006年01月02日 15:04:05"},
	{layout: "2006年01月02日15:04:05"},
	{layout: "2006年01月02日 15:04"},
	{layout: "2006年01月02日15:04"},
	{layout: "2006-01-02", dateOnly: true},
	{layout: "2006/01/02", dateOnly: true},
	{layout: "2006.01.02", dateOnly: true},
	{layout: "2006年01月02日", dateOnly: true},
	{layout: "01月02日 15:04:05", noYear: true},
	{layout: "01月02日15:04:05", noYear: true},
	{layout: "01月02日 15:04", noYear: true},
	{layout: "01月02日15:04", noYear: true},
	{layout: "01月02日", dateOnly: true, noYear: true},
}

// looseDate is the secondary extraction path: year, month and day separated by
// anything short, optionally followed by hour:minute[:second].
var looseDate = regexp.MustCompile(
	`(\d{4})\D{1,3}?(\d{1,2})\D{1,3}?(\d{1,2})(?:\D{1,3}?(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?)?`,
)

var digitRun = regexp.MustCompile(`\d+`)

// prioritySelectors are checked, in order, before falling back to a scan of
// the whole page.
var prioritySelectors = []string{
	"time[datetime]",
	"time",
	"[itemprop=datePublished]",
	"meta[property='article:published_time']",
	"meta[name=pubdate]",
	"meta[name=publishdate]",
	"meta[name=PubDate]",
	".publish-time",
	".publish_time",
	".pub-time",
	".pubtime",
	".post-time",
	".article-time",
	".date",
	".time",
	"[class*=date]",
	"[class*=time]",
	"[class*=publish]",
	"[id*=date]",
	"[id*=time]",
}

// datetimeAttrs are machine-readable attributes parsed before visible text.
var datetimeAttrs = []string{"datetime", "content"}
