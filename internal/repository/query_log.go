package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/pagination"
)

// QueryLogRepository stores grounded generation calls for analytics.
type QueryLogRepository struct {
	db dbtx
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{db: pool}
}

const queryLogColumns = `id, user_id, knowledge_base_id, query, response, sources, duration_ms, created_at`

func scanQueryLog(row pgx.Row) (*domain.RAGQueryLog, error) {
	var l domain.RAGQueryLog
	var sourcesJSON []byte
	if err := row.Scan(&l.ID, &l.UserID, &l.KnowledgeBaseID, &l.Query, &l.Response, &sourcesJSON, &l.DurationMs, &l.CreatedAt); err != nil {
		return nil, err
	}
	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &l.Sources); err != nil {
			return nil, fmt.Errorf("decode sources: %w", err)
		}
	}
	return &l, nil
}

func (r *QueryLogRepository) Create(ctx context.Context, l *domain.RAGQueryLog) error {
	sources := l.Sources
	if sources == nil {
		sources = []domain.SourceRef{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("encode sources: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO rag_query_logs (id, user_id, knowledge_base_id, query, response, sources, source_count, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.UserID, l.KnowledgeBaseID, l.Query, l.Response, sourcesJSON, len(sources), l.DurationMs, l.CreatedAt,
	)
	return err
}

func (r *QueryLogRepository) ListByKnowledgeBase(ctx context.Context, knowledgeBaseID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.RAGQueryLog], error) {
	limit = pagination.NormalizeLimit(limit)

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+queryLogColumns+` FROM rag_query_logs
			 WHERE knowledge_base_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			knowledgeBaseID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+queryLogColumns+` FROM rag_query_logs
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

	var logs []*domain.RAGQueryLog
	for rows.Next() {
		l, err := scanQueryLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pagination.Paginate(logs, limit,
		func(l *domain.RAGQueryLog) string { return l.ID },
		func(l *domain.RAGQueryLog) time.Time { return l.CreatedAt },
	), nil
}
