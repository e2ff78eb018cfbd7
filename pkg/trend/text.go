package trend

import "strings"

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// NormalizeText replaces newlines with single spaces and trims surrounding whitespace.
func NormalizeText(s string) string {
	return strings.TrimSpace(newlines.Replace(s))
}
