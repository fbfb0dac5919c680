package chunker

import "strings"

// isSentenceEnd reports whether r closes a sentence: the CJK full stop,
// exclamation and question marks, or a newline. ASCII punctuation does not,
// so "3.10" stays whole.
func isSentenceEnd(r rune) bool {
	switch r {
	case '。', '！', '？', '\n':
		return true
	}
	return false
}

// splitSentences cuts text after every delimiter. Delimiters stay with the
// sentence they end, and nothing is trimmed or dropped.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i, r := range text {
		if isSentenceEnd(r) {
			end := i + len(string(r))
			sentences = append(sentences, text[start:end])
			start = end
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// SplitLong breaks an over-long span into pieces of at most maxTokens,
// cutting only at sentence boundaries. A sentence that is longer than
// maxTokens on its own is returned whole. Concatenating the result gives
// back text.
func SplitLong(text string, maxTokens int) []string {
	var (
		spans     []string
		buf       strings.Builder
		bufTokens int
	)

	for _, sent := range splitSentences(text) {
		sentTokens := CountTokens(sent)
		if bufTokens+sentTokens > maxTokens {
			if buf.Len() > 0 {
				spans = append(spans, buf.String())
			}
			buf.Reset()
			bufTokens = 0
		}
		buf.WriteString(sent)
		bufTokens += sentTokens
	}

	if buf.Len() > 0 {
		spans = append(spans, buf.String())
	}
	return spans
}
