package sprite

import (
	"net/url"
	"strings"
)

// ValidReference reports whether ref is an absolute http(s) URL with a host.
// Anything else resolves to nothing without touching disk or network.
func ValidReference(ref string) bool {
	if ref == "" || strings.TrimSpace(ref) != ref {
		return false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
