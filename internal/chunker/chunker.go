package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid chunk config")

// Config controls chunk sizing. All values are in tokens (see CountTokens).
type Config struct {
	Min    int // Paragraphs and buffers below this are merged.
	Target int // A merge buffer holding a normal paragraph is emitted at this size.
	Max    int // Paragraphs above this are handed to SplitLong.
}

// DefaultConfig returns the thresholds the size heuristics were tuned for.
func DefaultConfig() Config {
	return Config{
		Min:    100,
		Target: 300,
		Max:    500,
	}
}

// Validate checks 0 < Min <= Target <= Max.
func (c Config) Validate() error {
	if c.Min <= 0 {
		return fmt.Errorf("%w: min must be positive, got %d", ErrInvalidConfig, c.Min)
	}
	if c.Min > c.Target {
		return fmt.Errorf("%w: min %d exceeds target %d", ErrInvalidConfig, c.Min, c.Target)
	}
	if c.Target > c.Max {
		return fmt.Errorf("%w: target %d exceeds max %d", ErrInvalidConfig, c.Target, c.Max)
	}
	return nil
}

// Adjust normalizes a paragraph sequence into chunks. Short paragraphs are
// merged, long ones are split at sentence boundaries, and everything else
// passes through. No text is dropped or duplicated.
//
// Sizes are best effort: the last chunk, and a merge buffer that never reached
// Min, can fall outside [Min, Max]. An over-long paragraph does not flush a
// pending merge buffer; its pieces are emitted right away and the buffer keeps
// collecting, so buffered text lands after those pieces.
func Adjust(paragraphs []string, cfg Config) []string {
	var (
		chunks []string
		buf    strings.Builder
	)

	emit := func() {
		chunks = append(chunks, buf.String())
		buf.Reset()
	}

	for _, para := range paragraphs {
		tokens := CountTokens(para)

		switch {
		case tokens > cfg.Max:
			// The pending buffer is left as is and keeps collecting.
			chunks = append(chunks, SplitLong(para, cfg.Max)...)

		case tokens < cfg.Min:
			buf.WriteString(para)
			if CountTokens(buf.String()) >= cfg.Min {
				emit()
			}

		default:
			if buf.Len() == 0 {
				chunks = append(chunks, para)
				continue
			}
			buf.WriteString(para)
			if CountTokens(buf.String()) >= cfg.Target {
				emit()
			}
		}
	}

	if buf.Len() > 0 {
		emit()
	}
	return chunks
}
