// Package vectorstore provides an embedded vector index on chromem-go for
// single-node deployments and tests.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	chromem "github.com/philippgille/chromem-go"

	"github.com/cloo-solutions/voicerag/internal/domain"
)

// metadataKey holds the JSON of the full, typed metadata. The flattened
// string copies next to it exist only for chromem's where filter.
const metadataKey = "_metadata"

var errPrecomputedOnly = errors.New("chromem index only accepts precomputed embeddings")

// ChromemIndex is a vector index backed by one chromem collection.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemIndex opens the collection named indexName. An empty
// persistDir keeps everything in memory.
func NewChromemIndex(indexName, persistDir string) (*ChromemIndex, error) {
	var (
		db  *chromem.DB
		err error
	)
	if persistDir == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(persistDir, true)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w", err)
		}
	}

	col, err := db.GetOrCreateCollection(indexName, nil, func(context.Context, string) ([]float32, error) {
		return nil, errPrecomputedOnly
	})
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &ChromemIndex{db: db, collection: col}, nil
}

// Upsert stores or overwrites a record by id.
func (s *ChromemIndex) Upsert(ctx context.Context, rec domain.VectorRecord) error {
	if err := domain.ValidateVectorRecord(&rec, 0); err != nil {
		return domain.NewIndexError("invalid vector record", err)
	}

	metadata, err := flattenMetadata(rec.Metadata)
	if err != nil {
		return domain.NewIndexError("encode metadata", err)
	}

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   domain.MetadataString(rec.Metadata, domain.MetaContent),
		Embedding: rec.Vector,
		Metadata:  metadata,
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return domain.NewIndexError("add document", err)
	}
	return nil
}

// Query returns up to topK matches ordered by score descending, ties by id.
func (s *ChromemIndex) Query(ctx context.Context, vector []float32, topK int, filter domain.VectorFilter) ([]domain.VectorMatch, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if topK <= 0 || len(vector) == 0 {
		return []domain.VectorMatch{}, nil
	}

	// chromem rejects nResults larger than the whole collection.
	n := topK
	if count := s.collection.Count(); count < n {
		n = count
	}
	if n == 0 {
		return []domain.VectorMatch{}, nil
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, n, map[string]string(filter), nil)
	if err != nil {
		return nil, domain.NewIndexError("query embedding", err)
	}

	matches := make([]domain.VectorMatch, 0, len(results))
	for _, r := range results {
		md, err := restoreMetadata(r.Metadata)
		if err != nil {
			return nil, domain.NewIndexError("decode metadata", err)
		}
		matches = append(matches, domain.VectorMatch{ID: r.ID, Score: r.Similarity, Metadata: md})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}

// DeleteMany removes every record matching filter and reports how many
// were removed. The count is derived from the collection size, so it is
// approximate under concurrent writes.
func (s *ChromemIndex) DeleteMany(ctx context.Context, filter domain.VectorFilter) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	before := s.collection.Count()
	if before == 0 {
		return 0, nil
	}
	if err := s.collection.Delete(ctx, map[string]string(filter), nil); err != nil {
		return 0, domain.NewIndexError("delete documents", err)
	}
	deleted := before - s.collection.Count()
	if deleted < 0 {
		deleted = 0
	}
	return deleted, nil
}

// Count returns the number of stored records.
func (s *ChromemIndex) Count() int {
	return s.collection.Count()
}

func flattenMetadata(md map[string]any) (map[string]string, error) {
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(md)+1)
	for k, v := range md {
		out[k] = domain.MetadataValueString(v)
	}
	out[metadataKey] = string(raw)
	return out, nil
}

func restoreMetadata(flat map[string]string) (map[string]any, error) {
	raw, ok := flat[metadataKey]
	if !ok {
		out := make(map[string]any, len(flat))
		for k, v := range flat {
			out[k] = v
		}
		return out, nil
	}
	var md map[string]any
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil, err
	}
	return md, nil
}
