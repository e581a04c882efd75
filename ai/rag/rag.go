// Package rag provides retrieval-augmented grounding: user context
// snapshots are embedded and indexed, then the most relevant slices are
// retrieved per query. Every failure here is non-fatal; callers degrade to
// raw-context injection.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/doitpm/assist/store"
)

// Retriever indexes context documents per user and retrieves the top-k
// matches for a query.
type Retriever interface {
	Index(ctx context.Context, userID int32, documents []string) error
	Retrieve(ctx context.Context, userID int32, query string, topK int) ([]string, error)
}

// VectorStore is the store slice backing the retriever.
type VectorStore interface {
	UpsertContextEmbedding(ctx context.Context, upsert *store.ContextEmbedding) (*store.ContextEmbedding, error)
	SearchContextEmbeddings(ctx context.Context, search *store.SearchContextEmbedding) ([]*store.ContextEmbedding, error)
	DeleteContextEmbeddings(ctx context.Context, userID int32) error
}

// Config configures the embedding client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string // default text-embedding-3-small
}

type retriever struct {
	client *openai.Client
	store  VectorStore
	model  string
}

// NewRetriever creates a pgvector-backed retriever. The embedding endpoint
// speaks the OpenAI-compatible protocol.
func NewRetriever(cfg *Config, vectorStore VectorStore) Retriever {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &retriever{
		client: openai.NewClientWithConfig(clientConfig),
		store:  vectorStore,
		model:  model,
	}
}

// Index replaces the user's indexed context with fresh documents. Called
// before each message so the index always has current data.
func (r *retriever) Index(ctx context.Context, userID int32, documents []string) error {
	if len(documents) == 0 {
		return nil
	}

	vectors, err := r.embed(ctx, documents)
	if err != nil {
		return err
	}

	if err := r.store.DeleteContextEmbeddings(ctx, userID); err != nil {
		if errors.Is(err, store.ErrVectorSearchUnsupported) {
			return err
		}
		return fmt.Errorf("failed to clear context index: %w", err)
	}

	now := time.Now().Unix()
	for i, document := range documents {
		if _, err := r.store.UpsertContextEmbedding(ctx, &store.ContextEmbedding{
			UserID:    userID,
			Content:   document,
			Embedding: vectors[i],
			Model:     r.model,
			CreatedTs: now,
		}); err != nil {
			return fmt.Errorf("failed to index document: %w", err)
		}
	}
	return nil
}

// Retrieve returns the user's top-k context slices nearest to the query.
func (r *retriever) Retrieve(ctx context.Context, userID int32, query string, topK int) ([]string, error) {
	vectors, err := r.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	results, err := r.store.SearchContextEmbeddings(ctx, &store.SearchContextEmbedding{
		UserID:    userID,
		Embedding: vectors[0],
		TopK:      topK,
	})
	if err != nil {
		return nil, err
	}

	documents := make([]string, 0, len(results))
	for _, result := range results {
		documents = append(documents, result.Content)
	}
	return documents, nil
}

func (r *retriever) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	resp, err := r.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(r.model),
		Input: inputs,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding response mismatch: got %d for %d inputs", len(resp.Data), len(inputs))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// Unavailable is a retriever that always reports vector search unsupported.
// Used when the driver has no vector extension.
type Unavailable struct{}

func (Unavailable) Index(context.Context, int32, []string) error {
	return store.ErrVectorSearchUnsupported
}

func (Unavailable) Retrieve(context.Context, int32, string, int) ([]string, error) {
	return nil, store.ErrVectorSearchUnsupported
}

// LogDegradation records a retrieval failure at the right level. Vector
// support being absent is expected on SQLite and only logged once per call
// site at debug level.
func LogDegradation(operation string, err error) {
	if errors.Is(err, store.ErrVectorSearchUnsupported) {
		slog.Debug("rag unavailable, using raw context", "operation", operation)
		return
	}
	slog.Warn("rag degraded to raw context", "operation", operation, "error", err)
}
