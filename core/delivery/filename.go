package delivery

import (
	"fmt"
	"strings"
	"unicode"
)

const maxFilenameRunes = 120

// SanitizeName builds a single-line file base name from a track title and
// optional artist, safe for both filesystems and HTTP headers. It never
// returns an empty string; when nothing survives cleaning it falls back to
// "track-<id>".
func SanitizeName(title, artist string, trackID int64) string {
	base := title
	if artist != "" {
		if base != "" {
			base = base + " - " + artist
		} else {
			base = artist
		}
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r == '\\' || r == '/' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune(' ')
		case unicode.IsControl(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.Join(strings.Fields(b.String()), " ")

	runes := []rune(cleaned)
	if len(runes) > maxFilenameRunes {
		cleaned = strings.TrimSpace(string(runes[:maxFilenameRunes]))
	}

	if cleaned == "" {
		return fmt.Sprintf("track-%d", trackID)
	}
	return cleaned
}

// ContentDisposition emits an attachment header value carrying the name in
// both the plain (ASCII) parameter and the RFC 5987 UTF-8 parameter. Both
// parameters reference the same logical name; the plain one degrades
// non-ASCII runes to underscores for old clients.
func ContentDisposition(name, ext string) string {
	return fmt.Sprintf(`attachment; filename="%s.%s"; filename*=UTF-8''%s.%s`,
		asciiFallback(name), ext, rfc5987Encode(name), ext)
}

// asciiFallback reduces a name to printable ASCII for the plain filename
// parameter. Quotes and backslashes are dropped so the quoted-string stays
// well formed.
func asciiFallback(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			// skip
		case r > 0x20 && r < 0x7f:
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune(' ')
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if out == "" {
		return "track"
	}
	return out
}

// rfc5987Encode percent-encodes a string as an RFC 5987 ext-value, leaving
// only attr-char runes literal.
func rfc5987Encode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '&', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
