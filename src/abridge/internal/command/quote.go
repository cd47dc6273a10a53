package command

import (
	"strconv"
	"strings"
)

// quote renders a string as the Haskell literal agda's command reader
// expects: backslash and double quote are backslash-escaped, printable
// ASCII passes through, and every other character becomes a backslash
// followed by its decimal code point.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '\\' || r == '"':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r >= 0x20 && r <= 0x7e:
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteString(strconv.Itoa(int(r)))
		}
	}
	b.WriteByte('"')
	return b.String()
}

// quoteList renders a bracketed, comma-separated sequence of literals.
func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = quote(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
