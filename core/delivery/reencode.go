package delivery

import (
	"net/url"
	"strings"
)

// ReencodeURL re-encodes every path segment of a URL exactly once. Some
// third-party file hosts reject requests whose paths are not byte-for-byte
// percent-encoded the way they published them; decoding first makes the
// operation idempotent on already-encoded input.
func ReencodeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	escaped := u.EscapedPath()
	if escaped == "" {
		return raw
	}

	segments := strings.Split(escaped, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			// Tolerate malformed escapes: encode what is there.
			decoded = seg
		}
		segments[i] = url.PathEscape(decoded)
	}

	u.RawPath = strings.Join(segments, "/")
	if decodedPath, err := url.PathUnescape(u.RawPath); err == nil {
		u.Path = decodedPath
	}
	return u.String()
}
