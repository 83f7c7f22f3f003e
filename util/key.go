package util

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var whitespace = regexp.MustCompile(`\s+`)

// MakeKey builds the storage key for an uploaded file. The timestamp
// prefix keeps keys unique across uploads of the same file and the
// whitespace replacement keeps them URL-safe
func MakeKey(filename string, now time.Time) string {
	return fmt.Sprintf("%d_%s", now.UnixMilli(), whitespace.ReplaceAllString(filename, "_"))
}

// KeyFromURL resolves a public object URL back to its storage key by
// taking the last path segment and undoing the URL encoding
func KeyFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	seg := u.Path[strings.LastIndex(u.Path, "/")+1:]
	if seg == "" {
		return "", errors.New("url has no object key")
	}

	key, err := url.PathUnescape(seg)
	if err != nil {
		return "", err
	}

	return key, nil
}
