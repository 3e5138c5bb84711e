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

type KnowledgeBaseRepository struct {
	db dbtx
}

func NewKnowledgeBaseRepository(pool *pgxpool.Pool) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: pool}
}

const knowledgeBaseColumns = `id, user_id, name, description, created_at, updated_at`

func scanKnowledgeBase(row pgx.Row) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	if err := row.Scan(&kb.ID, &kb.UserID, &kb.Name, &kb.Description, &kb.CreatedAt, &kb.UpdatedAt); err != nil {
		return nil, err
	}
	return &kb, nil
}

func (r *KnowledgeBaseRepository) Create(ctx context.Context, kb *domain.KnowledgeBase) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_bases (id, user_id, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		kb.ID, kb.UserID, kb.Name, kb.Description, kb.CreatedAt, kb.UpdatedAt,
	)
	return err
}

func (r *KnowledgeBaseRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	kb, err := scanKnowledgeBase(r.db.QueryRow(ctx,
		`SELECT `+knowledgeBaseColumns+` FROM knowledge_bases WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrKnowledgeBaseNotFound
	}
	return kb, err
}

func (r *KnowledgeBaseRepository) ListByUser(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.KnowledgeBase], error) {
	limit = pagination.NormalizeLimit(limit)

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+knowledgeBaseColumns+` FROM knowledge_bases
			 WHERE user_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			userID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+knowledgeBaseColumns+` FROM knowledge_bases
			 WHERE user_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			userID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kbs []*domain.KnowledgeBase
	for rows.Next() {
		kb, err := scanKnowledgeBase(rows)
		if err != nil {
			return nil, err
		}
		kbs = append(kbs, kb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pagination.Paginate(kbs, limit,
		func(kb *domain.KnowledgeBase) string { return kb.ID },
		func(kb *domain.KnowledgeBase) time.Time { return kb.CreatedAt },
	), nil
}
