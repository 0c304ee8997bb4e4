package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Source describes one provider listing page to scrape: where it
// lives, how to find article links on it, and which URLs to keep.
type Source struct {
	Name          string   `yaml:"name"`
	URL           string   `yaml:"url"`
	LinkSelectors []string `yaml:"link_selectors"`
	Include       []string `yaml:"include"`
	Exclude       []string `yaml:"exclude"`
	MaxArticles   int      `yaml:"max_articles"`
}

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"-"`
		ChatModel   string  `yaml:"chat_model"`
		EmbedModel  string  `yaml:"embedding_model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Database struct {
		URL         string `yaml:"url"`
		TableName   string `yaml:"table_name"`
		VectorDim   int    `yaml:"vector_dim"`
		BatchSize   int    `yaml:"batch_size"`
		SearchLimit int    `yaml:"search_limit"`
	} `yaml:"database"`

	Scraper struct {
		RateLimit        float64  `yaml:"rate_limit"`
		TimeoutSeconds   int      `yaml:"timeout_seconds"`
		ContentSelectors []string `yaml:"content_selectors"`
		Sources          []Source `yaml:"sources"`
	} `yaml:"scraper"`

	Processor struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"processor"`

	UI struct {
		Streaming bool   `yaml:"streaming"`
		Theme     string `yaml:"theme"`
	} `yaml:"ui"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/insurebot/config.yaml"),
			"/etc/insurebot/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.ChatModel == "" {
		config.LLM.ChatModel = "gpt-4-1106-preview"
	}
	if config.LLM.EmbedModel == "" {
		config.LLM.EmbedModel = "text-embedding-ada-002"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "articles"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 1536
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}
	if config.Database.SearchLimit == 0 {
		config.Database.SearchLimit = 3
	}

	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 2.0
	}
	if config.Scraper.TimeoutSeconds == 0 {
		config.Scraper.TimeoutSeconds = 30
	}
	if len(config.Scraper.ContentSelectors) == 0 {
		config.Scraper.ContentSelectors = []string{
			"main",
			"article",
			"#main-content",
			".content",
			"#content",
		}
	}
	if len(config.Scraper.Sources) == 0 {
		config.Scraper.Sources = []Source{defaultSource()}
	}
	for i := range config.Scraper.Sources {
		if config.Scraper.Sources[i].MaxArticles == 0 {
			config.Scraper.Sources[i].MaxArticles = 10
		}
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 500
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 50
	}

	if config.UI.Theme == "" {
		config.UI.Theme = "default"
	}
}

// defaultSource is the provider the project started with.
func defaultSource() Source {
	return Source{
		Name: "allstate",
		URL:  "https://www.allstate.com/resources/car-insurance",
		LinkSelectors: []string{
			"a[href*='/resources/']",
			"a[href*='/articles/']",
			"a[href*='/blog/']",
			"div[class*='article'] a",
			"div[class*='resource'] a",
		},
		Include: []string{"/resources/car-insurance/"},
		Exclude: []string{
			"quote", "bundle", "calculator",
			"español", "moving", "disaster", "flood",
		},
		MaxArticles: 10,
	}
}

func mergeWithEnv(config *Config) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
}
