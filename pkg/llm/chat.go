package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkh/insurebot/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

const defaultSystemTemplate = "You are an expert insurance advisor " +
	"chatbot trained on an insurance provider's knowledge base. Your " +
	"goal is to provide accurate, helpful information about insurance " +
	"topics. Answer based on the context provided. If you're unsure " +
	"about something, say so rather than making assumptions. Always " +
	"cite specific information from the context when possible."

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	SystemTemplate string
	BaseURL        string
	APIKey         string
}

// ChatEngine generates answers from the hosted chat-completion API.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "gpt-4-1106-preview"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = defaultSystemTemplate
	}

	opts := []openai.Option{
		openai.WithModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// Chat generates an answer for the question using the retrieved
// context chunks and the prior turns of the session.
func (ce *ChatEngine) Chat(ctx context.Context, question string, contexts []models.RetrievedChunk, history []models.Exchange) (string, error) {
	response, err := ce.llm.GenerateContent(ctx, ce.buildMessages(question, contexts, history),
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return response.Choices[0].Content, nil
}

// ChatStream generates the same answer as Chat but yields it in chunks
// as the model produces them.
func (ce *ChatEngine) ChatStream(ctx context.Context, question string, contexts []models.RetrievedChunk, history []models.Exchange) (<-chan string, error) {
	messages := ce.buildMessages(question, contexts, history)
	resultChan := make(chan string)

	go func() {
		defer close(resultChan)

		_, err := ce.llm.GenerateContent(ctx, messages,
			llms.WithTemperature(ce.config.Temperature),
			llms.WithMaxTokens(ce.config.MaxTokens),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				resultChan <- string(chunk)
				return nil
			}),
		)
		if err != nil {
			resultChan <- fmt.Sprintf("Error: %v", err)
		}
	}()

	return resultChan, nil
}

func (ce *ChatEngine) buildMessages(question string, contexts []models.RetrievedChunk, history []models.Exchange) []llms.MessageContent {
	prompt := fmt.Sprintf(
		"Context:\n%s\nCurrent conversation:\n%s\nHuman Question: %s",
		renderContext(contexts), renderHistory(history), question)

	return []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}
}

func renderContext(contexts []models.RetrievedChunk) string {
	if len(contexts) == 0 {
		return "(no relevant articles found)\n"
	}

	var b strings.Builder
	for _, chunk := range contexts {
		fmt.Fprintf(&b, "Source: %s\nTitle: %s\n%s\n\n", chunk.URL, chunk.Title, chunk.Text)
	}
	return b.String()
}

func renderHistory(history []models.Exchange) string {
	if len(history) == 0 {
		return "(none)\n"
	}

	var b strings.Builder
	for _, ex := range history {
		fmt.Fprintf(&b, "Human: %s\nAssistant: %s\n", ex.Question, ex.Answer)
	}
	return b.String()
}

// FormatSources returns the unique source URLs cited by the retrieved
// chunks, preserving retrieval order.
func FormatSources(contexts []models.RetrievedChunk) []string {
	var sources []string
	seen := make(map[string]bool)

	for _, chunk := range contexts {
		if chunk.URL != "" && !seen[chunk.URL] {
			sources = append(sources, chunk.URL)
			seen[chunk.URL] = true
		}
	}

	return sources
}
