package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/mkh/insurebot/internal/models"
	"github.com/mkh/insurebot/pkg/config"
	"github.com/mkh/insurebot/pkg/ingest"
	"github.com/mkh/insurebot/pkg/llm"
	"github.com/mkh/insurebot/pkg/scraper"
	"github.com/mkh/insurebot/pkg/splitter"
	"github.com/mkh/insurebot/pkg/store"
	"github.com/schollz/progressbar/v3"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment from .env")
	}

	cfg := parseFlags()

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config error: %v", e)
		}
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() *config.Config {
	var configPath, dbURL, table string
	var chunkSize, chunkOverlap, batchSize, maxArticles int
	var rateLimit float64

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&dbURL, "db-url", "", "PostgreSQL connection string")
	flag.StringVar(&table, "table", "", "PostgreSQL table name")
	flag.IntVar(&chunkSize, "chunk-size", 0, "Size of text chunks")
	flag.IntVar(&chunkOverlap, "chunk-overlap", 0, "Overlap between neighboring chunks")
	flag.IntVar(&batchSize, "batch-size", 0, "Batch size for upserts")
	flag.IntVar(&maxArticles, "max-articles", 0, "Per-source article cap override")
	flag.Float64Var(&rateLimit, "rate-limit", 0, "Requests per second for scraping")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		color.Red("failed to load config: %v", err)
		os.Exit(1)
	}

	// Command line flags win over the config file
	if dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if table != "" {
		cfg.Database.TableName = table
	}
	if chunkSize > 0 {
		cfg.Processor.ChunkSize = chunkSize
	}
	if chunkOverlap > 0 {
		cfg.Processor.ChunkOverlap = chunkOverlap
	}
	if batchSize > 0 {
		cfg.Database.BatchSize = batchSize
	}
	if rateLimit > 0 {
		cfg.Scraper.RateLimit = rateLimit
	}
	if maxArticles > 0 {
		for i := range cfg.Scraper.Sources {
			cfg.Scraper.Sources[i].MaxArticles = maxArticles
		}
	}

	return cfg
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(cfg *config.Config) error {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbedModel,
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	vectorStore, err := store.NewWithConfig(store.StoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	bar := getSpinner(" Ingesting articles...")

	s := scraper.NewWithConfig(scraper.ScraperConfig{
		ContentSelectors: cfg.Scraper.ContentSelectors,
		RateLimit:        cfg.Scraper.RateLimit,
		Timeout:          time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
	})

	chunker := splitter.NewWithConfig(splitter.SplitterConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})

	pipeline := ingest.New(ingest.PipelineConfig{
		BatchSize: cfg.Database.BatchSize,
		OnArticle: func(article models.Article) {
			bar.Add(1)
			bar.Describe(color.CyanString(" Ingesting: %s", article.Title))
		},
	}, s, chunker, emb, vectorStore)

	sources := make([]scraper.Source, 0, len(cfg.Scraper.Sources))
	for _, src := range cfg.Scraper.Sources {
		sources = append(sources, scraper.Source{
			Name:          src.Name,
			URL:           src.URL,
			LinkSelectors: src.LinkSelectors,
			Include:       src.Include,
			Exclude:       src.Exclude,
			MaxArticles:   src.MaxArticles,
		})
	}

	color.Blue("\nStarting ingestion for %d source(s)\n", len(sources))

	stats, err := pipeline.Run(context.Background(), sources)
	bar.Finish()
	if err != nil {
		return err
	}

	fmt.Println()
	for _, st := range stats {
		color.Green("✓ %s: %d articles, %d chunks, %d skipped",
			st.Source, st.Articles, st.Chunks, st.Skipped)
	}

	total, err := vectorStore.Count(context.Background())
	if err == nil {
		color.Cyan("\nIndex now holds %d chunks\n", total)
	}

	return nil
}
