//go:build integration

package corpus

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
)

func TestPostgresSource(t *testing.T) {
	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("faq"),
		tcpostgres.WithUsername("faq"),
		tcpostgres.WithPassword("faq"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		CREATE TABLE faq_entries (id BIGSERIAL PRIMARY KEY, question TEXT NOT NULL, answer TEXT NOT NULL);
		INSERT INTO faq_entries (question, answer) VALUES
			('How can I improve my sleep?', 'Keep a regular schedule.'),
			('What can I do about anxiety?', 'Try slow breathing.');
	`)
	require.NoError(t, err)

	entries, err := NewPostgresSource(pool, "").Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []faq.Entry{
		{ID: "1", Question: "How can I improve my sleep?", Answer: "Keep a regular schedule."},
		{ID: "2", Question: "What can I do about anxiety?", Answer: "Try slow breathing."},
	}, entries)
}
