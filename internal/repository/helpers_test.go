//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/testutil"
)

func setupPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pc.Terminate(context.Background()) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)
	return pool
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func createUser(ctx context.Context, t *testing.T, pool *pgxpool.Pool) *domain.User {
	t.Helper()
	u := domain.NewUser(uuid.NewString(), uuid.NewString()+"@example.com", "Test User", now())
	require.NoError(t, NewUserRepository(pool).Create(ctx, u))
	return u
}

func createKnowledgeBase(ctx context.Context, t *testing.T, pool *pgxpool.Pool, userID string) *domain.KnowledgeBase {
	t.Helper()
	kb := domain.NewKnowledgeBase(uuid.NewString(), userID, "Clinic FAQ", "", now())
	require.NoError(t, NewKnowledgeBaseRepository(pool).Create(ctx, kb))
	return kb
}

func createDocument(ctx context.Context, t *testing.T, pool *pgxpool.Pool, kb *domain.KnowledgeBase, createdAt time.Time) *domain.Document {
	t.Helper()
	doc := domain.NewDocument(uuid.NewString(), kb.ID, kb.UserID, "faq.md", "text/markdown", 12, createdAt)
	require.NoError(t, NewDocumentRepository(pool).Create(ctx, doc))
	return doc
}
