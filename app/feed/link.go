package feed

import (
	"net/url"
	"strings"
)

const (
	redirectHost = "www.google.com"
	redirectPath = "/url"

	// Nested wrappers are rare; the bound only guards against pathological input.
	maxUnwrapDepth = 5
)

// NormalizeLink returns the canonical form of a feed entry link. Google
// redirect wrappers (https://www.google.com/url?url=...) are unwrapped to
// the article they point at; anything that does not parse as a URL is
// returned trimmed but otherwise untouched.
func NormalizeLink(raw string) string {
	href := strings.TrimSpace(raw)

	for i := 0; i < maxUnwrapDepth; i++ {
		next := unwrapRedirect(href)
		if next == href {
			break
		}
		href = next
	}

	return href
}

func unwrapRedirect(href string) string {
	if href == "" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	if u.Hostname() != redirectHost || u.Path != redirectPath {
		return href
	}

	// Query().Get already percent-decodes the value
	if inner := strings.TrimSpace(u.Query().Get("url")); inner != "" {
		return inner
	}

	return href
}
