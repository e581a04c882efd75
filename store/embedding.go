package store

import "errors"

// ErrVectorSearchUnsupported is returned by drivers without vector support.
// Callers treat it as a signal to degrade, not as a failure.
var ErrVectorSearchUnsupported = errors.New("vector search is not supported by this driver")

// ContextEmbedding is an embedded slice of a user's activity context used
// for retrieval-augmented chat grounding.
type ContextEmbedding struct {
	Content   string
	Embedding []float32
	Model     string
	CreatedTs int64
	ID        int64
	UserID    int32
}

// SearchContextEmbedding selects the TopK embeddings for a user nearest to
// the query vector by cosine distance.
type SearchContextEmbedding struct {
	Embedding []float32
	UserID    int32
	TopK      int
}
