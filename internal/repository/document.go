package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/pagination"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

const documentColumns = `id, knowledge_base_id, user_id, filename, content_type, storage_key,
	size_bytes, status, chunk_count, error, created_at, updated_at`

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var errMsg *string
	if err := row.Scan(&d.ID, &d.KnowledgeBaseID, &d.UserID, &d.Filename, &d.ContentType, &d.StorageKey,
		&d.SizeBytes, &d.Status, &d.ChunkCount, &errMsg, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Error = stringOrEmpty(errMsg)
	return &d, nil
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, knowledge_base_id, user_id, filename, content_type, storage_key,
		                        size_bytes, status, chunk_count, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.KnowledgeBaseID, d.UserID, d.Filename, d.ContentType, d.StorageKey,
		d.SizeBytes, d.Status, d.ChunkCount, nullableString(d.Error), d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	d, err := scanDocument(r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	return d, err
}

func (r *DocumentRepository) ListByKnowledgeBase(ctx context.Context, knowledgeBaseID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error) {
	limit = pagination.NormalizeLimit(limit)

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+` FROM documents
			 WHERE knowledge_base_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			knowledgeBaseID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+` FROM documents
			 WHERE knowledge_base_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			knowledgeBaseID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pagination.Paginate(docs, limit,
		func(d *domain.Document) string { return d.ID },
		func(d *domain.Document) time.Time { return d.CreatedAt },
	), nil
}

// UpdateStatus records an ingestion outcome. chunkCount is only meaningful
// for DocumentStatusReady.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, errMsg string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, chunk_count = $2, error = $3, updated_at = $4 WHERE id = $5`,
		status, chunkCount, nullableString(errMsg), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
