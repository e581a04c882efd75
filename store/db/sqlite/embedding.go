package sqlite

import (
	"context"

	"github.com/doitpm/assist/store"
)

// SQLite has no vector extension in this deployment, so retrieval callers
// degrade to raw-context injection.

func (d *DB) UpsertContextEmbedding(_ context.Context, _ *store.ContextEmbedding) (*store.ContextEmbedding, error) {
	return nil, store.ErrVectorSearchUnsupported
}

func (d *DB) SearchContextEmbeddings(_ context.Context, _ *store.SearchContextEmbedding) ([]*store.ContextEmbedding, error) {
	return nil, store.ErrVectorSearchUnsupported
}

func (d *DB) DeleteContextEmbeddings(_ context.Context, _ int32) error {
	return store.ErrVectorSearchUnsupported
}
