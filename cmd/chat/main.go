package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/mkh/insurebot/pkg/config"
	"github.com/mkh/insurebot/pkg/llm"
	"github.com/mkh/insurebot/pkg/qa"
	"github.com/mkh/insurebot/pkg/store"
	"github.com/schollz/progressbar/v3"
)

func main() {
	godotenv.Load()

	var configPath string
	var topK int
	var streaming bool

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.IntVar(&topK, "top-k", 0, "Number of chunks to retrieve per question")
	flag.BoolVar(&streaming, "stream", true, "Enable streaming responses")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		color.Red("failed to load config: %v", err)
		os.Exit(1)
	}
	if topK > 0 {
		cfg.Database.SearchLimit = topK
	}
	cfg.UI.Streaming = streaming

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

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.ChatModel,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	vectorStore, err := store.NewWithConfig(store.StoreConfig{
		ConnString:  cfg.Database.URL,
		TableName:   cfg.Database.TableName,
		VectorDim:   cfg.Database.VectorDim,
		SearchLimit: cfg.Database.SearchLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	session := qa.New(qa.EngineConfig{TopK: cfg.Database.SearchLimit}, emb, vectorStore, chatEngine)

	// Interactive chat loop with colored output
	color.Cyan("\nAsk me anything about insurance (type 'exit' to quit, 'reset' to clear history)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(question) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "reset":
			session.Reset()
			color.Blue("History cleared")
			continue
		}

		ctx := context.Background()

		if cfg.UI.Streaming {
			spinner := getSpinner(" Searching knowledge base...")
			result, err := session.AskStream(ctx, question)
			spinner.Finish()
			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}

			fmt.Print("\n")
			assistantPrompt("Assistant: ")
			for chunk := range result.Chunks {
				fmt.Print(chunk)
			}
			fmt.Print("\n")
			printSources(result.Sources)
		} else {
			spinner := getSpinner(" Generating response...")
			exchange, err := session.Ask(ctx, question)
			spinner.Finish()
			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}

			assistantPrompt("\nAssistant: %s\n", exchange.Answer)
			printSources(exchange.Sources)
		}
	}

	return nil
}

func printSources(sources []string) {
	if len(sources) == 0 {
		return
	}
	color.Blue("\nSources:")
	for _, src := range sources {
		color.Blue("  - %s", src)
	}
}
