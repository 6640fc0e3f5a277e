package encoding

import "strings"

// Allowed reports whether a byte may appear unescaped.
type Allowed func(b byte) bool

func unreserved(b byte) bool {
	return 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z' || '0' <= b && b <= '9' ||
		b == '-' || b == '.' || b == '_' || b == '~'
}

// PathSafe is the set used for every overlay token: characters legal in a
// URL path segment except '/', which separates segments, and ')', which
// closes an overlay token.
func PathSafe(b byte) bool {
	if unreserved(b) {
		return true
	}
	switch b {
	case '!', '$', '&', '\'', '(', '*', '+', ',', ';', '=', ':', '@':
		return true
	}
	return false
}

// QueryLegacy is the older convention: characters legal in a URL query
// except '/'. It keeps ')' and '?' and must not be mixed with PathSafe.
func QueryLegacy(b byte) bool {
	if unreserved(b) {
		return true
	}
	switch b {
	case '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=', ':', '@', '?':
		return true
	}
	return false
}

const upperHex = "0123456789ABCDEF"

// PercentEncode replaces every byte outside allowed with %XX. Multi-byte
// UTF-8 characters are escaped byte by byte.
func PercentEncode(s string, allowed Allowed) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !allowed(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if allowed(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}
