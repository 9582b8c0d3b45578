package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName trims a name and collapses inner whitespace into single
// spaces, keeping the original casing.
func NormalizeName(name string) string {
	name = strings.Trim(name, " \n\t\r")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

// ContainsFold reports whether text contains any of the given words,
// ignoring case.
func ContainsFold(text string, words ...string) bool {
	text = strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(text, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// ReplacePipes makes a string safe to put into a markdown table cell.
func ReplacePipes(s string) string {
	return strings.ReplaceAll(s, "|", "-")
}
