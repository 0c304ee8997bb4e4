package llm

import (
	"testing"

	"github.com/mkh/insurebot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

func testChunks() []models.RetrievedChunk {
	return []models.RetrievedChunk{
		{
			URL:   "https://example.com/resources/car-insurance/liability",
			Title: "What is liability coverage?",
			Text:  "Liability coverage pays for damage you cause to others.",
		},
		{
			URL:   "https://example.com/resources/car-insurance/deductibles",
			Title: "Deductibles explained",
			Text:  "A deductible is what you pay before insurance kicks in.",
		},
		{
			URL:   "https://example.com/resources/car-insurance/liability",
			Title: "What is liability coverage?",
			Text:  "Bodily injury liability covers medical bills.",
		},
	}
}

func TestNewWithConfig(t *testing.T) {
	engine, err := NewWithConfig(ChatConfig{
		Model:       "gpt-4-1106-preview",
		Temperature: 0.5,
		MaxTokens:   1000,
		APIKey:      "sk-test",
	})
	require.NoError(t, err)
	assert.NotNil(t, engine)
	assert.Equal(t, defaultSystemTemplate, engine.config.SystemTemplate)
}

func TestNewWithConfigRejectsBadValues(t *testing.T) {
	_, err := NewWithConfig(ChatConfig{Temperature: 3.0, APIKey: "sk-test"})
	assert.Error(t, err)

	_, err = NewWithConfig(ChatConfig{MaxTokens: -1, APIKey: "sk-test"})
	assert.Error(t, err)
}

func TestBuildMessages(t *testing.T) {
	engine, err := NewWithConfig(ChatConfig{APIKey: "sk-test"})
	require.NoError(t, err)

	history := []models.Exchange{
		{Question: "What is a premium?", Answer: "The amount you pay for coverage."},
	}

	messages := engine.buildMessages("What does liability cover?", testChunks(), history)
	require.Len(t, messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, messages[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, messages[1].Role)

	part, ok := messages[1].Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.Contains(t, part.Text, "Human Question: What does liability cover?")
	assert.Contains(t, part.Text, "Current conversation:")

	text := renderContext(testChunks())
	assert.Contains(t, text, "Source: https://example.com/resources/car-insurance/liability")
	assert.Contains(t, text, "Title: Deductibles explained")
	assert.Contains(t, text, "A deductible is what you pay")

	hist := renderHistory(history)
	assert.Contains(t, hist, "Human: What is a premium?")
	assert.Contains(t, hist, "Assistant: The amount you pay for coverage.")
}

func TestRenderContextEmpty(t *testing.T) {
	assert.Contains(t, renderContext(nil), "no relevant articles found")
	assert.Contains(t, renderHistory(nil), "(none)")
}

func TestFormatSources(t *testing.T) {
	sources := FormatSources(testChunks())

	// Deduped, order preserved
	assert.Equal(t, []string{
		"https://example.com/resources/car-insurance/liability",
		"https://example.com/resources/car-insurance/deductibles",
	}, sources)
}

func TestFormatSourcesEmpty(t *testing.T) {
	assert.Empty(t, FormatSources(nil))
	assert.Empty(t, FormatSources([]models.RetrievedChunk{{Text: "no url"}}))
}
