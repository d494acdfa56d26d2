package render

import (
	"strings"
	"unicode/utf8"
)

// Split cuts text into chunks of at most limit bytes, breaking at line
// boundaries. A single line longer than limit is cut at rune boundaries.
func Split(text string, limit int) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" || limit <= 0 {
		return nil
	}

	var chunks []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if b.Len() > 0 && b.Len()+1+len(line) > limit {
			flush()
		}
		for len(line) > limit {
			flush()
			cut := runeCut(line, limit)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	flush()
	return chunks
}

// runeCut returns the largest index <= n that does not split a rune.
func runeCut(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	if n == 0 {
		_, size := utf8.DecodeRuneInString(s)
		return size
	}
	return n
}
