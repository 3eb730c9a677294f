// Package timestamp infers a best-effort publication time for a page without
// any per-site configuration.
package timestamp

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvmarrod/harvester/internal/selector"
)

// Infer returns the canonical publication time for the document rooted at
// root. Likely time-bearing elements are checked first, then the whole page
// text; when nothing parses the result is now.
func Infer(root *goquery.Selection, now time.Time) string {
	if root == nil || root.Length() == 0 {
		return now.Format(Layout)
	}

	if t, ok := fromPriorityElements(root, now); ok {
		return t.Format(Layout)
	}

	if s, ok := Extract(selector.VisibleText(root), now); ok {
		return s
	}

	return now.Format(Layout)
}

// Extract finds the first date-like substring of text and returns it in
// canonical form.
func Extract(text string, now time.Time) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	for _, pattern := range datePatterns {
		match := pattern.FindString(text)
		if match == "" {
			continue
		}
		if t, ok := Parse(match, now); ok {
			return t.Format(Layout), true
		}
	}
	return "", false
}

// Parse converts a single date or date-time value to a time. Date-only values
// take their time of day from now, and values without a year take now's year.
func Parse(value string, now time.Time) (time.Time, bool) {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	padded := zeroPad(value)
	for _, tmpl := range templates {
		t, err := time.ParseInLocation(tmpl.layout, padded, now.Location())
		if err != nil {
			continue
		}
		if t, ok := complete(t, tmpl, now); ok {
			return t, true
		}
	}

	return parseLoose(value, now)
}

// complete fills what tmpl leaves out from now. It reports false when the
// date does not exist in the year it ends up in, such as 2月29日 outside a
// leap year.
func complete(t time.Time, tmpl template, now time.Time) (time.Time, bool) {
	if !tmpl.dateOnly && !tmpl.noYear {
		return t, true
	}

	year := t.Year()
	if tmpl.noYear {
		year = now.Year()
	}
	hour, minute, second := t.Hour(), t.Minute(), t.Second()
	loc := t.Location()
	if tmpl.dateOnly {
		hour, minute, second = now.Hour(), now.Minute(), now.Second()
		loc = now.Location()
	}

	out := time.Date(year, t.Month(), t.Day(), hour, minute, second, 0, loc)
	if out.Month() != t.Month() || out.Day() != t.Day() {
		return time.Time{}, false
	}
	return out, true
}

// parseLoose matches year, month and day separately with an optional time of
// day. A missing time of day is taken from now.
func parseLoose(value string, now time.Time) (time.Time, bool) {
	m := looseDate.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, false
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, minute, second := now.Hour(), now.Minute(), now.Second()
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
		second = 0
		if m[6] != "" {
			second, _ = strconv.Atoi(m[6])
		}
	}

	if year < 1900 || year > 2200 || month < 1 || month > 12 || day < 1 ||
		hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, now.Location())
	if t.Day() != day {
		// day overflowed into the next month
		return time.Time{}, false
	}
	return t, true
}

func fromPriorityElements(root *goquery.Selection, now time.Time) (time.Time, bool) {
	for _, css := range prioritySelectors {
		var (
			found time.Time
			ok    bool
		)
		root.Find(css).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			found, ok = fromElement(el, now)
			return !ok
		})
		if ok {
			return found, true
		}
	}
	return time.Time{}, false
}

func fromElement(el *goquery.Selection, now time.Time) (time.Time, bool) {
	for _, attr := range datetimeAttrs {
		value, exists := el.Attr(attr)
		if !exists || strings.TrimSpace(value) == "" {
			continue
		}
		if t, ok := Parse(value, now); ok {
			return t, true
		}
		if s, ok := Extract(value, now); ok {
			return Parse(s, now)
		}
	}

	if s, ok := Extract(selector.VisibleText(el), now); ok {
		return Parse(s, now)
	}
	return time.Time{}, false
}

// zeroPad left-pads every single-digit number in value, leaving fractional
// seconds untouched.
func zeroPad(value string) string {
	var b strings.Builder
	last := 0
	for _, loc := range digitRun.FindAllStringIndex(value, -1) {
		start, end := loc[0], loc[1]
		b.WriteString(value[last:start])
		if end-start == 1 && !isFraction(value, start) {
			b.WriteByte('0')
		}
		b.WriteString(value[start:end])
		last = end
	}
	b.WriteString(value[last:])
	return b.String()
}

// isFraction reports whether the digits at start follow "hh:mm:ss.".
func isFraction(value string, start int) bool {
	return start >= 4 && value[start-1] == '.' && value[start-4] == ':'
}
