package filtergraph

import (
	"strings"
	"unicode/utf8"
)

// LineBreak separates wrapped lines. drawtext starts a new line on it when
// reading from a textfile.
const LineBreak = "\n"

// Wrap greedily packs space separated tokens into lines of at most maxWidth
// characters. A token longer than maxWidth is kept whole on its own line.
// Runs of spaces are not collapsed, so empty tokens survive the round trip.
func Wrap(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}

	words := strings.Split(text, " ")
	lines := make([]string, 0, 4)
	current := words[0]

	for _, w := range words[1:] {
		if utf8.RuneCountInString(current)+1+utf8.RuneCountInString(w) <= maxWidth {
			current += " " + w
			continue
		}
		lines = append(lines, current)
		current = w
	}
	lines = append(lines, current)

	return strings.Join(lines, LineBreak)
}
