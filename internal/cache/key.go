package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Key addresses one cached origin response. It is derived only from the
// origin URL (method is always GET), never from caller headers, so two
// requests for the same tool collapse onto the same entry. The only
// sanctioned cache-busting mechanism is an explicit query token on the
// origin URL itself.
type Key struct {
	canonical string
}

// ForURL builds the canonical key for a GET of the given origin URL.
// Canonicalization lowercases scheme and host, strips default ports, and
// drops the fragment; path and query are preserved byte for byte.
func ForURL(rawURL string) (Key, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Key{}, fmt.Errorf("parse origin url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Key{}, errors.New("origin url must use http or https")
	}
	if parsed.Host == "" {
		return Key{}, errors.New("origin url must include a host")
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Host)
	host = strings.TrimSuffix(host, ".")
	switch scheme {
	case "http":
		host = strings.TrimSuffix(host, ":80")
	case "https":
		host = strings.TrimSuffix(host, ":443")
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	if parsed.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(parsed.RawQuery)
	}

	return Key{canonical: "GET " + b.String()}, nil
}

// String returns the logical key form.
func (k Key) String() string {
	return k.canonical
}

// Filename returns the filesystem-safe form of the key: the sha256 hex
// digest of the logical form.
func (k Key) Filename() string {
	sum := sha256.Sum256([]byte(k.canonical))
	return hex.EncodeToString(sum[:])
}

// IsZero reports whether the key was never built.
func (k Key) IsZero() bool {
	return k.canonical == ""
}
