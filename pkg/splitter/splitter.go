package splitter

import (
	"fmt"
	"strings"

	"github.com/mkh/insurebot/internal/models"
	"github.com/tmc/langchaingo/textsplitter"
)

type SplitterConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// Splitter derives overlapping fixed-size chunks from article text.
// Splitting is deterministic: the same article always yields the same
// chunks.
type Splitter struct {
	config SplitterConfig
	inner  textsplitter.RecursiveCharacter
}

func NewWithConfig(config SplitterConfig) Splitter {
	if config.ChunkSize == 0 {
		config.ChunkSize = 500
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 50
	}

	return Splitter{
		config: config,
		inner: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(config.ChunkSize),
			textsplitter.WithChunkOverlap(config.ChunkOverlap),
		),
	}
}

func (s Splitter) Split(text string) ([]string, error) {
	return s.inner.SplitText(strings.TrimSpace(text))
}

// ChunkArticle splits an article into positioned chunks.
func (s Splitter) ChunkArticle(article models.Article) ([]models.Chunk, error) {
	texts, err := s.Split(article.Content)
	if err != nil {
		return nil, fmt.Errorf("splitting %s: %w", article.URL, err)
	}

	chunks := make([]models.Chunk, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			ArticleURL: article.URL,
			Title:      article.Title,
			Source:     article.Source,
			Index:      i,
			Total:      len(texts),
			Text:       text,
		})
	}

	return chunks, nil
}
