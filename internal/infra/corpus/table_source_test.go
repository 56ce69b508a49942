package corpus

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
	apperrors "github.com/yanqian/faq-matcher/pkg/errors"
)

func TestSelectEntriesSQL(t *testing.T) {
	query, err := selectEntriesSQL("")
	require.NoError(t, err)
	require.Equal(t, "SELECT CAST(id AS TEXT), question, answer FROM faq_entries ORDER BY id", query)

	query, err = selectEntriesSQL("support.faq")
	require.NoError(t, err)
	require.Contains(t, query, "FROM support.faq ")

	_, err = selectEntriesSQL("faq; DROP TABLE users")
	require.True(t, apperrors.IsCode(err, faq.CodeCorpusLoad))
}

func TestSQLiteSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.db")
	seedSQLite(t, path, `
		CREATE TABLE faq_entries (id INTEGER PRIMARY KEY, question TEXT, answer TEXT);
		INSERT INTO faq_entries (id, question, answer) VALUES
			(2, 'What can I do about anxiety?', 'Try slow breathing.'),
			(1, '  How can I improve my sleep?  ', 'Keep a regular schedule.');
	`)

	entries, err := NewSQLiteSource(path, "").Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []faq.Entry{
		{ID: "1", Question: "How can I improve my sleep?", Answer: "Keep a regular schedule."},
		{ID: "2", Question: "What can I do about anxiety?", Answer: "Try slow breathing."},
	}, entries)
}

func TestSQLiteSource_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.db")
	seedSQLite(t, path, `
		CREATE TABLE faq_entries (id INTEGER PRIMARY KEY, question TEXT, answer TEXT);
		INSERT INTO faq_entries (id, question, answer) VALUES (1, 'Orphan question', NULL);
	`)

	_, err := NewSQLiteSource(path, "").Load(context.Background())
	require.True(t, apperrors.IsCode(err, faq.CodeCorpusLoad))
	require.ErrorContains(t, err, "id=1")

	_, err = NewSQLiteSource(path, "missing_table").Load(context.Background())
	require.True(t, apperrors.IsCode(err, faq.CodeCorpusLoad))

	_, err = NewSQLiteSource("", "").Load(context.Background())
	require.True(t, apperrors.IsCode(err, faq.CodeCorpusLoad))
}

func seedSQLite(t *testing.T, path, script string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(script)
	require.NoError(t, err)
}
