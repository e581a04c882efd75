package postgres

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/doitpm/assist/store"
)

// UpsertContextEmbedding inserts an embedded context slice for a user.
func (d *DB) UpsertContextEmbedding(ctx context.Context, upsert *store.ContextEmbedding) (*store.ContextEmbedding, error) {
	stmt := `INSERT INTO context_embedding (user_id, content, embedding, model, created_ts)
		VALUES (` + placeholders(5) + `)
		RETURNING id`
	vector := pgvector.NewVector(upsert.Embedding)
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.UserID, upsert.Content, vector, upsert.Model, upsert.CreatedTs,
	).Scan(&upsert.ID); err != nil {
		return nil, errors.Wrap(err, "failed to upsert context embedding")
	}
	return upsert, nil
}

// SearchContextEmbeddings returns the user's nearest embeddings to the query
// vector ordered by cosine distance.
func (d *DB) SearchContextEmbeddings(ctx context.Context, search *store.SearchContextEmbedding) ([]*store.ContextEmbedding, error) {
	topK := search.TopK
	if topK <= 0 {
		topK = 5
	}

	query := `SELECT id, user_id, content, embedding, model, created_ts
		FROM context_embedding
		WHERE user_id = $1
		ORDER BY embedding <=> $2
		LIMIT $3`
	rows, err := d.db.QueryContext(ctx, query, search.UserID, pgvector.NewVector(search.Embedding), topK)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search context embeddings")
	}
	defer rows.Close()

	list := make([]*store.ContextEmbedding, 0)
	for rows.Next() {
		e := &store.ContextEmbedding{}
		var vector pgvector.Vector
		if err := rows.Scan(&e.ID, &e.UserID, &e.Content, &vector, &e.Model, &e.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan context embedding")
		}
		e.Embedding = vector.Slice()
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate context embeddings")
	}
	return list, nil
}

// DeleteContextEmbeddings removes all embedded context for a user, typically
// before re-indexing a fresh snapshot.
func (d *DB) DeleteContextEmbeddings(ctx context.Context, userID int32) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM context_embedding WHERE user_id = $1`, userID); err != nil {
		return errors.Wrap(err, "failed to delete context embeddings")
	}
	return nil
}
