package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mkh/insurebot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longText() string {
	sentences := []string{
		"Liability coverage pays for injuries and property damage you cause to others.",
		"Collision coverage pays to repair your own vehicle after an accident.",
		"Comprehensive coverage applies to theft, fire, and weather damage.",
		"A deductible is the amount you pay before your insurer pays the rest.",
		"Premiums depend on your driving record, location, and vehicle type.",
		"Most states require a minimum amount of liability coverage.",
	}
	var b strings.Builder
	for i := 0; i < 5; i++ {
		for _, s := range sentences {
			b.WriteString(s)
			b.WriteString(" ")
		}
	}
	return b.String()
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	s := NewWithConfig(SplitterConfig{ChunkSize: 500, ChunkOverlap: 50})

	chunks, err := s.Split("A short article about deductibles.")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short article about deductibles.", chunks[0])
}

func TestSplitRespectsChunkSize(t *testing.T) {
	size := 500
	s := NewWithConfig(SplitterConfig{ChunkSize: size, ChunkOverlap: 50})

	chunks, err := s.Split(longText())
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), size)
		assert.NotEmpty(t, strings.TrimSpace(chunk))
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	s := NewWithConfig(SplitterConfig{ChunkSize: 500, ChunkOverlap: 50})

	first, err := s.Split(longText())
	require.NoError(t, err)
	second, err := s.Split(longText())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestChunkArticle(t *testing.T) {
	s := NewWithConfig(SplitterConfig{ChunkSize: 200, ChunkOverlap: 20})

	article := models.Article{
		URL:     "https://example.com/resources/car-insurance/liability",
		Title:   "What is liability coverage?",
		Source:  "acme",
		Content: longText(),
	}

	chunks, err := s.ChunkArticle(article)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		// Every chunk belongs to exactly one article
		assert.Equal(t, article.URL, chunk.ArticleURL)
		assert.Equal(t, article.Title, chunk.Title)
		assert.Equal(t, article.Source, chunk.Source)
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, len(chunks), chunk.Total)
	}
}

func TestDefaults(t *testing.T) {
	s := NewWithConfig(SplitterConfig{})
	assert.Equal(t, 500, s.config.ChunkSize)
	assert.Equal(t, 50, s.config.ChunkOverlap)
}
