package chunker

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

func TestChunk_Empty(t *testing.T) {
	assert.Empty(t, Chunk("", 20))
	assert.Empty(t, Chunk("\n\n  \n\n\t\n\n", 20))
}

func TestChunk_SingleShortParagraph(t *testing.T) {
	got := Chunk("  just one paragraph  ", 100)
	assert.Equal(t, []string{"just one paragraph"}, got)
}

func TestChunk_FlushThenHardSplit(t *testing.T) {
	input := "Hello world\n\nThis is a test paragraph that is long"

	got := Chunk(input, 20)

	require.Len(t, got, 3)
	assert.Equal(t, "Hello world", got[0])
	assert.Equal(t, "This is a test parag", got[1])
	assert.Equal(t, "raph that is long", got[2])
}

func TestChunk_FiftyOneCharParagraph(t *testing.T) {
	long := strings.Repeat("abcdefghij", 5) + "k" // 51 chars
	input := "Hello world\n\n" + long

	got := Chunk(input, 20)

	require.Len(t, got, 4)
	assert.Equal(t, "Hello world", got[0])
	assert.Equal(t, long[:20], got[1])
	assert.Equal(t, long[20:40], got[2])
	assert.Equal(t, long[40:], got[3])
}

func TestChunk_PacksParagraphs(t *testing.T) {
	got := Chunk("aaa\n\nbbb\n\nccc", 100)
	assert.Equal(t, []string{"aaa\n\nbbb\n\nccc"}, got)
}

func TestChunk_NewBufferAfterFlush(t *testing.T) {
	// "aaaaa" + sep + "bbbbb" = 12 fits in 12; "ccccc" does not.
	got := Chunk("aaaaa\n\nbbbbb\n\nccccc", 12)
	assert.Equal(t, []string{"aaaaa\n\nbbbbb", "ccccc"}, got)
}

func TestChunk_SeparatorCountsTwoRunes(t *testing.T) {
	// "aaaa\n\nbbbb" is 10 runes; a third 4-rune paragraph would make 16.
	input := "aaaa\n\nbbbb\n\ncccc"

	got := Chunk(input, 15)

	assert.Equal(t, []string{"aaaa\n\nbbbb", "cccc"}, got)
	for _, c := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 15)
	}
}

func TestChunk_ParagraphEqualToMax(t *testing.T) {
	p := strings.Repeat("x", 10)
	got := Chunk("hi\n\n"+p, 10)
	assert.Equal(t, []string{"hi", p}, got)
}

func TestChunk_OversizeParagraphResetsBuffer(t *testing.T) {
	got := Chunk("a\n\n"+strings.Repeat("z", 25)+"\n\nb", 10)
	assert.Equal(t, []string{"a", "zzzzzzzzzz", "zzzzzzzzzz", "zzzzz", "b"}, got)
}

func TestChunk_DefaultMaxChars(t *testing.T) {
	p := strings.Repeat("y", DefaultMaxChars+1)
	got := Chunk(p, 0)
	require.Len(t, got, 2)
	assert.Len(t, got[0], DefaultMaxChars)
}

func TestChunk_MultibyteRunes(t *testing.T) {
	p := strings.Repeat("ñ", 25)
	got := Chunk(p, 10)

	require.Len(t, got, 3)
	for _, c := range got {
		assert.True(t, utf8.ValidString(c))
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 10)
	}
}

func TestChunk_Properties(t *testing.T) {
	inputs := []string{
		"",
		"one",
		"one\n\ntwo\n\nthree\n\nfour\n\nfive",
		strings.Repeat("word ", 300),
		"short\n\n" + strings.Repeat("long paragraph ", 40) + "\n\n\n\nafter gap\n\nend",
		"p1\n\np2\n\np3\n\np4\n\np5\n\np6\n\np7\n\np8\n\np9",
	}
	limits := []int{5, 7, 20, 64, 1000}

	for _, in := range inputs {
		for _, max := range limits {
			first := Chunk(in, max)
			second := Chunk(in, max)
			assert.Equal(t, first, second, "deterministic")

			for _, c := range first {
				assert.LessOrEqual(t, utf8.RuneCountInString(c), max)
				assert.NotEmpty(t, c)
			}

			// Every non-blank paragraph survives in order when rejoined.
			joined := strings.ReplaceAll(strings.Join(first, ""), "\n", "")
			pos := 0
			for _, para := range strings.Split(in, "\n\n") {
				para = strings.ReplaceAll(strings.TrimSpace(para), "\n", "")
				if para == "" {
					continue
				}
				idx := strings.Index(joined[pos:], para)
				require.GreaterOrEqual(t, idx, 0, "paragraph %q missing for max %d", para, max)
				pos += idx + len(para)
			}
		}
	}
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		assert.Equal(t, DefaultMaxChars, p.MaxChars())
	})

	t.Run("custom max chars", func(t *testing.T) {
		p := New(WithMaxChars(500))
		assert.Equal(t, 500, p.MaxChars())
	})

	t.Run("non-positive values ignored", func(t *testing.T) {
		p := New(WithMaxChars(0), WithMaxChars(-3))
		assert.Equal(t, DefaultMaxChars, p.MaxChars())
	})
}

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "chunker", New().Name())
}

func TestProcessor_Process(t *testing.T) {
	p := New(WithMaxChars(12))
	doc := &domain.Document{
		Source: "papers/a.md",
		Title:  "A",
		Text:   "aaaaa\n\nbbbbb\n\nccccc",
	}

	chunks, err := p.Process(context.Background(), doc)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkID)
		assert.Equal(t, "papers/a.md", c.Source)
		assert.Equal(t, "A", c.Title)
	}
	assert.Equal(t, "ccccc", chunks[1].Text)
}

func TestProcessor_Process_EmptyText(t *testing.T) {
	chunks, err := New().Process(context.Background(), &domain.Document{Source: "s"})

	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestProcessor_Process_NilDocument(t *testing.T) {
	_, err := New().Process(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
