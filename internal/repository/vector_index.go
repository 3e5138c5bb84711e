package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/voicerag/internal/domain"
)

// VectorIndex stores embeddings in Postgres with pgvector. Records are
// namespaced by index name so several deployments can share one table.
type VectorIndex struct {
	db        dbtx
	indexName string
}

func NewVectorIndex(pool *pgxpool.Pool, indexName string) *VectorIndex {
	return &VectorIndex{db: pool, indexName: indexName}
}

// Upsert inserts the record or overwrites the one with the same id.
func (r *VectorIndex) Upsert(ctx context.Context, rec domain.VectorRecord) error {
	if err := domain.ValidateVectorRecord(&rec, 0); err != nil {
		return domain.NewIndexError("invalid vector record", err)
	}

	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return domain.NewIndexError("encode metadata", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO vector_records (index_name, id, embedding, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 ON CONFLICT (index_name, id) DO UPDATE
		 SET embedding = EXCLUDED.embedding,
		     metadata = EXCLUDED.metadata,
		     updated_at = NOW()`,
		r.indexName, rec.ID, pgvector.NewVector(rec.Vector), metadata,
	)
	if err != nil {
		return domain.NewIndexError("upsert vector", err)
	}
	return nil
}

// Query returns up to topK records whose metadata contains every filter
// pair, by cosine similarity descending and id ascending on ties.
func (r *VectorIndex) Query(ctx context.Context, vector []float32, topK int, filter domain.VectorFilter) ([]domain.VectorMatch, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if topK <= 0 || len(vector) == 0 {
		return []domain.VectorMatch{}, nil
	}

	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, domain.NewIndexError("encode filter", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, metadata, 1 - (embedding <=> $1) AS score
		 FROM vector_records
		 WHERE index_name = $2 AND metadata @> $3::jsonb
		 ORDER BY embedding <=> $1 ASC, id ASC
		 LIMIT $4`,
		pgvector.NewVector(vector), r.indexName, filterJSON, topK,
	)
	if err != nil {
		return nil, domain.NewIndexError("query vectors", err)
	}
	defer rows.Close()

	matches := make([]domain.VectorMatch, 0, topK)
	for rows.Next() {
		var (
			m     domain.VectorMatch
			raw   []byte
			score float64
		)
		if err := rows.Scan(&m.ID, &raw, &score); err != nil {
			return nil, domain.NewIndexError("scan vector match", err)
		}
		if err := json.Unmarshal(raw, &m.Metadata); err != nil {
			return nil, domain.NewIndexError("decode metadata", fmt.Errorf("record %s: %w", m.ID, err))
		}
		m.Score = float32(score)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewIndexError("query vectors", err)
	}
	return matches, nil
}

// DeleteMany removes every record matching filter.
func (r *VectorIndex) DeleteMany(ctx context.Context, filter domain.VectorFilter) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return 0, domain.NewIndexError("encode filter", err)
	}

	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM vector_records WHERE index_name = $1 AND metadata @> $2::jsonb`,
		r.indexName, filterJSON,
	)
	if err != nil {
		return 0, domain.NewIndexError("delete vectors", err)
	}
	return int(cmdTag.RowsAffected()), nil
}
