package ingest

import (
	"context"
	"log"

	"github.com/mkh/insurebot/internal/models"
	"github.com/mkh/insurebot/internal/types"
	"github.com/mkh/insurebot/pkg/scraper"
)

// articleSource is what the pipeline needs from the scraper.
type articleSource interface {
	CollectLinks(ctx context.Context, src scraper.Source) ([]string, error)
	FetchArticle(ctx context.Context, url, sourceName string) (models.Article, error)
}

// Stats summarizes one source's ingestion run.
type Stats struct {
	Source   string
	Articles int
	Chunks   int
	Skipped  int
}

type PipelineConfig struct {
	BatchSize  int
	OnArticle  func(article models.Article)
	OnUpserted func(count int)
}

// Pipeline runs scrape -> chunk -> embed -> upsert for each configured
// source, sequentially. A failing article or source is logged and
// skipped; it never aborts the run.
type Pipeline struct {
	config   PipelineConfig
	source   articleSource
	splitter types.Splitter
	embedder types.Embedder
	store    types.VectorStore
}

func New(config PipelineConfig, source articleSource, splitter types.Splitter, embedder types.Embedder, store types.VectorStore) *Pipeline {
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	return &Pipeline{
		config:   config,
		source:   source,
		splitter: splitter,
		embedder: embedder,
		store:    store,
	}
}

func (p *Pipeline) Run(ctx context.Context, sources []scraper.Source) ([]Stats, error) {
	stats := make([]Stats, 0, len(sources))

	for _, src := range sources {
		st, err := p.runSource(ctx, src)
		if err != nil {
			// A wholly failed source contributes nothing but does not
			// fail the run.
			log.Printf("skipping source %s: %v", src.Name, err)
		}
		stats = append(stats, st)

		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
	}

	return stats, nil
}

func (p *Pipeline) runSource(ctx context.Context, src scraper.Source) (Stats, error) {
	stats := Stats{Source: src.Name}

	links, err := p.source.CollectLinks(ctx, src)
	if err != nil {
		return stats, err
	}

	var batch []models.EmbeddingRecord

	for _, link := range links {
		records, err := p.processArticle(ctx, link, src.Name)
		if err != nil {
			log.Printf("skipping article %s: %v", link, err)
			stats.Skipped++
			continue
		}

		stats.Articles++
		stats.Chunks += len(records)
		batch = append(batch, records...)

		for len(batch) >= p.config.BatchSize {
			if err := p.flush(ctx, batch[:p.config.BatchSize]); err != nil {
				return stats, err
			}
			batch = batch[p.config.BatchSize:]
		}
	}

	if len(batch) > 0 {
		if err := p.flush(ctx, batch); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func (p *Pipeline) processArticle(ctx context.Context, link, sourceName string) ([]models.EmbeddingRecord, error) {
	article, err := p.source.FetchArticle(ctx, link, sourceName)
	if err != nil {
		return nil, err
	}

	if p.config.OnArticle != nil {
		p.config.OnArticle(article)
	}

	chunks, err := p.splitter.ChunkArticle(article)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := p.embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, err
	}

	records := make([]models.EmbeddingRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = models.EmbeddingRecord{
			ID:     models.ChunkID(chunk.ArticleURL, chunk.Index),
			Chunk:  chunk,
			Vector: vectors[i],
			Metadata: map[string]interface{}{
				"url":     chunk.ArticleURL,
				"title":   chunk.Title,
				"source":  chunk.Source,
				"preview": preview(chunk.Text, 200),
			},
		}
	}

	return records, nil
}

func (p *Pipeline) flush(ctx context.Context, records []models.EmbeddingRecord) error {
	if err := p.store.Upsert(ctx, records); err != nil {
		return err
	}
	if p.config.OnUpserted != nil {
		p.config.OnUpserted(len(records))
	}
	return nil
}

func preview(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
