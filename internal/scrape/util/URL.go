package util

import (
	"net/url"
	"strings"
)

// ResolveURL makes ref absolute against base. Protocol-relative ("//host/x")
// and root-relative ("/x") references are both handled; absolute references
// are returned unchanged.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return ""
	}
	return b.ResolveReference(r).String()
}

// QueryParam returns the value of key in raw's query string, or "".
// raw may be relative.
func QueryParam(raw, key string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(u.Query().Get(key))
}

// HostOf returns the lower-cased host of raw, or "".
func HostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
