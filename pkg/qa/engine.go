package qa

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mkh/insurebot/internal/models"
	"github.com/mkh/insurebot/internal/types"
	"github.com/mkh/insurebot/pkg/llm"
)

type EngineConfig struct {
	TopK int
}

// Engine answers questions against the vector index: embed the
// question, pull the nearest chunks, and hand them to the chat model
// along with the session history. History lives only in memory for the
// lifetime of the engine.
type Engine struct {
	config   EngineConfig
	embedder types.Embedder
	store    types.VectorStore
	chat     types.Chatter

	mu      sync.Mutex
	history []models.Exchange
}

func New(config EngineConfig, embedder types.Embedder, store types.VectorStore, chat types.Chatter) *Engine {
	if config.TopK == 0 {
		config.TopK = 3
	}

	return &Engine{
		config:   config,
		embedder: embedder,
		store:    store,
		chat:     chat,
	}
}

// Ask runs the full retrieval-augmented flow and records the exchange.
func (e *Engine) Ask(ctx context.Context, question string) (models.Exchange, error) {
	contexts, err := e.retrieve(ctx, question)
	if err != nil {
		return models.Exchange{}, err
	}

	answer, err := e.chat.Chat(ctx, question, contexts, e.History())
	if err != nil {
		return models.Exchange{}, fmt.Errorf("generating answer: %w", err)
	}

	exchange := models.Exchange{
		Question: question,
		Answer:   answer,
		Sources:  llm.FormatSources(contexts),
		AskedAt:  time.Now(),
	}
	e.append(exchange)

	return exchange, nil
}

// StreamResult carries a streamed answer. Sources are known before the
// first chunk arrives; Done yields the recorded exchange after the
// channel closes.
type StreamResult struct {
	Chunks  <-chan string
	Sources []string
	Done    <-chan models.Exchange
}

// AskStream is Ask with a streamed answer. The exchange is appended to
// history once the stream completes.
func (e *Engine) AskStream(ctx context.Context, question string) (*StreamResult, error) {
	contexts, err := e.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	inner, err := e.chat.ChatStream(ctx, question, contexts, e.History())
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	sources := llm.FormatSources(contexts)
	out := make(chan string)
	done := make(chan models.Exchange, 1)

	go func() {
		defer close(out)
		defer close(done)

		var answer []byte
		for chunk := range inner {
			answer = append(answer, chunk...)
			out <- chunk
		}

		exchange := models.Exchange{
			Question: question,
			Answer:   string(answer),
			Sources:  sources,
			AskedAt:  time.Now(),
		}
		e.append(exchange)
		done <- exchange
	}()

	return &StreamResult{
		Chunks:  out,
		Sources: sources,
		Done:    done,
	}, nil
}

func (e *Engine) retrieve(ctx context.Context, question string) ([]models.RetrievedChunk, error) {
	vector, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	contexts, err := e.store.Search(ctx, vector, e.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	return contexts, nil
}

// History returns the session's exchanges in order.
func (e *Engine) History() []models.Exchange {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Exchange, len(e.history))
	copy(out, e.history)
	return out
}

// Reset clears the session history.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
}

func (e *Engine) append(exchange models.Exchange) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, exchange)
}
