package splitter

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertChunksValid(t *testing.T, chunks []string, maxSize int) {
	t.Helper()
	for i, chunk := range chunks {
		assert.NotEmpty(t, chunk, "chunk %d is empty", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), maxSize, "chunk %d exceeds limit", i)
	}
}

func TestShortTextIsSingleChunk(t *testing.T) {
	s := New(DefaultMaxChunkSize)

	chunks := s.Segment("0123456789")
	require.Len(t, chunks, 1)
	assert.Equal(t, "0123456789", chunks[0])
}

func TestBlankInputYieldsNothing(t *testing.T) {
	s := New(DefaultMaxChunkSize)

	assert.Nil(t, s.Segment(""))
	assert.Nil(t, s.Segment("   \n\t  "))
}

func TestSemanticSplitOnIdeaMarkers(t *testing.T) {
	s := New(DefaultMaxChunkSize)

	text := "Вот три идеи для вашего проекта:\n\n" +
		"**Идея 1: Умная теплица**\nОписание первой идеи.\n\n" +
		"**Идея 2: Бот-помощник**\nОписание второй идеи.\n\n" +
		"**Идея 3: Карта кампуса**\nОписание третьей идеи."

	chunks := s.Segment(text)
	require.Len(t, chunks, 4, "prelude plus one chunk per idea")
	assert.Equal(t, "Вот три идеи для вашего проекта:", chunks[0])
	assert.True(t, strings.HasPrefix(chunks[1], "**Идея 1"))
	assert.True(t, strings.HasPrefix(chunks[2], "**Идея 2"))
	assert.True(t, strings.HasPrefix(chunks[3], "**Идея 3"))
	assertChunksValid(t, chunks, DefaultMaxChunkSize)
}

func TestSemanticSplitWithoutPrelude(t *testing.T) {
	s := New(DefaultMaxChunkSize)

	text := "**Идея 1: Первая**\nтекст\n\n**Идея 2: Вторая**\nтекст"
	chunks := s.Segment(text)
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[0], "**Идея 1"))
}

func TestOversizedIdeaFallsThroughToParagraphs(t *testing.T) {
	s := New(100)

	// One idea far beyond the limit: the marker split is abandoned and
	// the line accumulator takes over.
	text := "**Идея 1: Гигант**\n" + strings.Repeat("слово ", 60) + "\n\n**Идея 2: Мелочь**\nкоротко"
	chunks := s.Segment(text)
	require.NotEmpty(t, chunks)
	assert.Greater(t, len(chunks), 2)
	assertChunksValid(t, chunks, 100)
}

func TestParagraphAccumulation(t *testing.T) {
	s := New(30)

	text := "первый абзац\nвторой абзац\nтретий абзац"
	chunks := s.Segment(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "первый абзац\nвторой абзац", chunks[0])
	assert.Equal(t, "третий абзац", chunks[1])
	assertChunksValid(t, chunks, 30)
}

func TestHardSliceOnUnbreakableText(t *testing.T) {
	s := New(10)

	chunks := s.Segment(strings.Repeat("a", 25))
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("a", 10), chunks[0])
	assert.Equal(t, strings.Repeat("a", 10), chunks[1])
	assert.Equal(t, strings.Repeat("a", 5), chunks[2])
}

func TestHardSliceRespectsRuneBoundaries(t *testing.T) {
	s := New(10)

	text := strings.Repeat("ж", 25)
	chunks := s.Segment(text)
	require.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk))
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestChunkOrderIsPreserved(t *testing.T) {
	s := New(15)

	text := "aaaa\nbbbb\ncccc\ndddd\neeee"
	chunks := s.Segment(text)
	joined := strings.Join(chunks, "\n")
	assert.Equal(t, text, joined)
}

func TestCustomMarker(t *testing.T) {
	s := NewWithMarker(DefaultMaxChunkSize, regexp.MustCompile(`(?m)^## `))

	chunks := s.Segment("intro\n## one\nbody\n## two\nbody")
	require.Len(t, chunks, 3)
	assert.Equal(t, "intro", chunks[0])
}
