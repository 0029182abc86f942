package guard

import (
	"strings"
	"unicode"
)

// collapseSpace replaces every whitespace run with a single space and trims.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// indexFold returns the byte index of the first ASCII case-insensitive
// match of substr in s at or after from, or -1.
func indexFold(s, substr string, from int) int {
	n := len(substr)
	for i := from; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

// stripBlocksFold removes every open...close block, matching the shortest
// span. An unterminated open marker is left in place.
func stripBlocksFold(s, open, close string) string {
	var b strings.Builder
	pos := 0
	for {
		start := indexFold(s, open, pos)
		if start < 0 {
			break
		}
		end := indexFold(s, close, start+len(open))
		if end < 0 {
			break
		}
		b.WriteString(s[pos:start])
		pos = end + len(close)
	}
	b.WriteString(s[pos:])
	return b.String()
}

// removeFold deletes every case-insensitive occurrence of substr.
func removeFold(s, substr string) string {
	if substr == "" {
		return s
	}
	var b strings.Builder
	pos := 0
	for {
		i := indexFold(s, substr, pos)
		if i < 0 {
			break
		}
		b.WriteString(s[pos:i])
		pos = i + len(substr)
	}
	b.WriteString(s[pos:])
	return b.String()
}

// removeRuns deletes runs of at least minLen characters drawn from set.
func removeRuns(s, set string, minLen int) string {
	if set == "" || minLen <= 0 {
		return s
	}
	var b strings.Builder
	var run []rune
	flush := func() {
		if len(run) < minLen {
			b.WriteString(string(run))
		}
		run = run[:0]
	}
	for _, r := range s {
		if strings.ContainsRune(set, r) && !unicode.IsSpace(r) {
			run = append(run, r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}
