package models

import (
	"fmt"
	"time"
)

// Article is the raw text pulled from a single provider page. Articles
// are immutable once scraped; re-running ingestion produces a new one.
type Article struct {
	URL       string
	Title     string
	Content   string
	Source    string
	FetchedAt time.Time
}

// Chunk is a bounded span of an article's text, the unit of embedding
// and retrieval. Each chunk belongs to exactly one article.
type Chunk struct {
	ArticleURL string
	Title      string
	Source     string
	Index      int
	Total      int
	Text       string
}

// EmbeddingRecord pairs a chunk with its vector for upserting into the
// index. The ID is derived from the article URL and chunk index, so
// re-ingesting a page overwrites its previous chunks.
type EmbeddingRecord struct {
	ID       string
	Chunk    Chunk
	Vector   []float32
	Metadata map[string]interface{}
}

// RetrievedChunk is a similarity-search hit.
type RetrievedChunk struct {
	URL      string
	Title    string
	Text     string
	Index    int
	Distance float32
}

// Exchange is one question/answer turn in a chat session. History is
// kept only in memory for the lifetime of the session.
type Exchange struct {
	Question string
	Answer   string
	Sources  []string
	AskedAt  time.Time
}

// ChunkID builds the stable identifier for a chunk of an article.
func ChunkID(articleURL string, index int) string {
	return fmt.Sprintf("%s#%d", articleURL, index)
}
