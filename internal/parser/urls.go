package parser

import (
	"net/url"
	"strings"
)

// ResolveURL turns href into an absolute URL against base. Hrefs that already
// start with "http" are returned unchanged; protocol-relative hrefs take the
// scheme of base. An href that cannot be resolved is returned trimmed.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	if strings.HasPrefix(strings.ToLower(href), "http") {
		return href
	}

	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil || baseURL.Scheme == "" {
		// Handle protocol-relative URLs without a usable base
		if strings.HasPrefix(href, "//") {
			return "https:" + href
		}
		return href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// Hostname returns the lower-cased host of rawURL, or "" for relative or
// malformed URLs.
func Hostname(rawURL string) string {
	if strings.HasPrefix(rawURL, "//") {
		rawURL = "https:" + rawURL
	}
	if !strings.Contains(rawURL, "://") {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
