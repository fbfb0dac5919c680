package chunker

import "unicode/utf8"

// CountTokens measures text in the units every size threshold is expressed in:
// one token per code point, whitespace and punctuation included.
//
// This is a character count for every script. Thresholds downstream were tuned
// against it, so it must not be swapped for a word count on Latin text.
func CountTokens(text string) int {
	return utf8.RuneCountInString(text)
}
