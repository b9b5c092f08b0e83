package pipeline

import (
	"net/url"
	"strings"
)

const (
	titleOpen  = "<PAGE_TITLE>"
	titleClose = "</PAGE_TITLE>"
)

// ResolveTitle reads the PAGE_TITLE marker from the GKG extras field and
// falls back to the article URL.
func ResolveTitle(extras, articleURL *string) *string {
	if extras != nil {
		if start := strings.Index(*extras, titleOpen); start >= 0 {
			rest := (*extras)[start+len(titleOpen):]
			if end := strings.Index(rest, titleClose); end >= 0 {
				if title := strings.TrimSpace(rest[:end]); title != "" {
					return &title
				}
			}
		}
	}
	return articleURL
}

// ResolveSourceName returns the network location of the URL, or the URL
// itself when it has none.
func ResolveSourceName(articleURL *string) *string {
	if articleURL == nil {
		return nil
	}
	raw := *articleURL
	if raw == "" {
		return articleURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return articleURL
	}
	host := u.Host
	if u.User != nil {
		host = u.User.String() + "@" + host
	}
	return &host
}
