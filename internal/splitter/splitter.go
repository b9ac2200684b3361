// Package splitter breaks long answers into transport-sized chunks while
// trying to preserve semantic boundaries.
package splitter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkSize is the Telegram single-message character limit.
const DefaultMaxChunkSize = 4096

// defaultMarker matches enumerated idea headers the creative strategy
// emits ("**Идея 1: ..." at the start of a line). Splitting on these
// keeps each idea in its own message.
var defaultMarker = regexp.MustCompile(`(?m)^\s*\*\*Идея \d+.*`)

// Segmenter splits text into ordered chunks of at most maxSize
// characters, preferring semantic boundaries over blind slicing.
type Segmenter struct {
	maxSize int
	marker  *regexp.Regexp
}

// New creates a segmenter with the given chunk size limit and the default
// idea-header marker.
func New(maxSize int) *Segmenter {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	return &Segmenter{maxSize: maxSize, marker: defaultMarker}
}

// NewWithMarker creates a segmenter with a custom semantic marker.
func NewWithMarker(maxSize int, marker *regexp.Regexp) *Segmenter {
	s := New(maxSize)
	s.marker = marker
	return s
}

// Segment splits text into non-empty chunks, each at most maxSize
// characters, in delivery order. Strategies are tried in priority order:
// semantic marker split, paragraph accumulation, hard slicing at fixed
// boundaries. Returns nil for blank input.
func (s *Segmenter) Segment(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if chunks := s.splitSemantic(text); chunks != nil {
		return chunks
	}

	chunks := s.splitParagraphs(text)
	if len(chunks) == 0 || s.anyOversized(chunks) {
		return s.hardSlice(text)
	}
	return chunks
}

// splitSemantic splits on marker boundaries. It returns nil when there
// are no markers or when any resulting chunk would not fit, so the
// caller can fall through to the next strategy.
func (s *Segmenter) splitSemantic(text string) []string {
	if s.marker == nil {
		return nil
	}
	locs := s.marker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	var chunks []string
	if head := strings.TrimSpace(text[:locs[0][0]]); head != "" {
		chunks = append(chunks, head)
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if part := strings.TrimSpace(text[loc[0]:end]); part != "" {
			chunks = append(chunks, part)
		}
	}

	if len(chunks) == 0 || s.anyOversized(chunks) {
		return nil
	}
	return chunks
}

// splitParagraphs greedily accumulates lines into chunks until adding the
// next line would exceed the limit.
func (s *Segmenter) splitParagraphs(text string) []string {
	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		if chunk := strings.TrimSpace(strings.Join(current, "\n")); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current = current[:0]
		currentLen = 0
	}

	for _, line := range strings.Split(text, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if len(current) > 0 && currentLen+lineLen+1 >= s.maxSize {
			flush()
		}
		current = append(current, line)
		currentLen += lineLen + 1
	}
	flush()

	return chunks
}

// hardSlice cuts the text at fixed rune boundaries. Last resort: it
// ignores word and line boundaries but never splits a multibyte
// character.
func (s *Segmenter) hardSlice(text string) []string {
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+s.maxSize-1)/s.maxSize)
	for start := 0; start < len(runes); start += s.maxSize {
		end := start + s.maxSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// anyOversized reports whether a chunk exceeds the configured limit.
func (s *Segmenter) anyOversized(chunks []string) bool {
	for _, chunk := range chunks {
		if utf8.RuneCountInString(chunk) > s.maxSize {
			return true
		}
	}
	return false
}
