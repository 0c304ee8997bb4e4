package types

import (
	"context"

	"github.com/mkh/insurebot/internal/models"
)

// Core interfaces
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	Upsert(ctx context.Context, records []models.EmbeddingRecord) error
	Search(ctx context.Context, vector []float32, limit int) ([]models.RetrievedChunk, error)
	Count(ctx context.Context) (int64, error)
	Close()
}

type Splitter interface {
	Split(text string) ([]string, error)
	ChunkArticle(article models.Article) ([]models.Chunk, error)
}

// Chatter turns a question plus retrieved context and prior turns into
// an answer from the hosted chat model.
type Chatter interface {
	Chat(ctx context.Context, question string, contexts []models.RetrievedChunk, history []models.Exchange) (string, error)
	ChatStream(ctx context.Context, question string, contexts []models.RetrievedChunk, history []models.Exchange) (<-chan string, error)
}
