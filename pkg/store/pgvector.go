package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkh/insurebot/internal/models"
	"github.com/pgvector/pgvector-go"
)

type StoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	SearchLimit int
}

// Store keeps embedding records in a pgvector-backed index. The
// extension, table, and similarity index are created on first use.
type Store struct {
	config StoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config StoreConfig) (*Store, error) {
	if config.TableName == "" {
		config.TableName = "articles"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // Default for OpenAI embeddings
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 3
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	s := &Store{
		config: config,
		pool:   pool,
	}

	if err := s.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initialize() error {
	ctx := context.Background()

	_, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT,
			source TEXT,
			chunk_index INTEGER,
			total_chunks INTEGER,
			content TEXT,
			embedding vector(%d),
			metadata JSONB
		)`, s.config.TableName, s.config.VectorDim)

	_, err = s.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		s.config.TableName, s.config.TableName)

	_, err = s.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

// Upsert writes embedding records in a single transaction. Records
// whose ID already exists are overwritten, which is how re-ingesting a
// page replaces its chunks.
func (s *Store) Upsert(ctx context.Context, records []models.EmbeddingRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, url, title, source, chunk_index, total_chunks, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			total_chunks = EXCLUDED.total_chunks,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		s.config.TableName)

	for _, record := range records {
		if len(record.Vector) != s.config.VectorDim {
			return fmt.Errorf("record %s: vector has %d dimensions, index expects %d",
				record.ID, len(record.Vector), s.config.VectorDim)
		}

		_, err = tx.Exec(ctx, stmt,
			record.ID,
			record.Chunk.ArticleURL,
			sanitizeUTF8(record.Chunk.Title),
			record.Chunk.Source,
			record.Chunk.Index,
			record.Chunk.Total,
			sanitizeUTF8(record.Chunk.Text),
			pgvector.NewVector(record.Vector),
			record.Metadata,
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %v", record.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// Search returns the limit nearest chunks by cosine distance.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]models.RetrievedChunk, error) {
	if limit == 0 {
		limit = s.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT url, title, content, chunk_index, embedding <=> $1 AS distance
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		s.config.TableName)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %v", err)
	}
	defer rows.Close()

	var chunks []models.RetrievedChunk
	for rows.Next() {
		var chunk models.RetrievedChunk
		var distance float64
		err := rows.Scan(
			&chunk.URL,
			&chunk.Title,
			&chunk.Text,
			&chunk.Index,
			&distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		chunk.Distance = float32(distance)
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

// Count reports how many chunks the index currently holds.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.config.TableName)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %v", err)
	}
	return count, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
