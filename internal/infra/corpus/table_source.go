package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/yanqian/faq-matcher/internal/domain/faq"
	apperrors "github.com/yanqian/faq-matcher/pkg/errors"
)

const defaultTable = "faq_entries"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// selectEntriesSQL builds the corpus query for table; rows come back in id order.
func selectEntriesSQL(table string) (string, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		table = defaultTable
	}
	if !identifierPattern.MatchString(table) {
		return "", apperrors.Wrap(faq.CodeCorpusLoad, fmt.Sprintf("invalid corpus table name %q", table), nil)
	}
	return fmt.Sprintf(`SELECT CAST(id AS TEXT), question, answer FROM %s ORDER BY id`, table), nil
}

func scanEntries(rows rowScanner) ([]faq.Entry, error) {
	var entries []faq.Entry
	for rows.Next() {
		var (
			entry            faq.Entry
			question, answer sql.NullString
		)
		if err := rows.Scan(&entry.ID, &question, &answer); err != nil {
			return nil, apperrors.Wrap(faq.CodeCorpusLoad, "scan corpus row", err)
		}
		entry.Question = strings.TrimSpace(question.String)
		entry.Answer = strings.TrimSpace(answer.String)
		if err := validateEntry(entry); err != nil {
			return nil, apperrors.Wrap(faq.CodeCorpusLoad, fmt.Sprintf("corpus row id=%s", entry.ID), err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(faq.CodeCorpusLoad, "read corpus rows", err)
	}
	return entries, nil
}

// PostgresSource reads the corpus from a Postgres table with id, question and answer columns.
type PostgresSource struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresSource constructs the source; an empty table selects faq_entries.
func NewPostgresSource(pool *pgxpool.Pool, table string) *PostgresSource {
	return &PostgresSource{pool: pool, table: table}
}

// Load implements faq.CorpusSource.
func (s *PostgresSource) Load(ctx context.Context) ([]faq.Entry, error) {
	query, err := selectEntriesSQL(s.table)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(faq.CodeCorpusLoad, "query corpus table", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// SQLiteSource reads the corpus from a SQLite database file.
type SQLiteSource struct {
	path  string
	table string
}

// NewSQLiteSource constructs the source for the database at path.
func NewSQLiteSource(path, table string) *SQLiteSource {
	return &SQLiteSource{path: path, table: table}
}

// Load implements faq.CorpusSource.
func (s *SQLiteSource) Load(ctx context.Context) ([]faq.Entry, error) {
	if strings.TrimSpace(s.path) == "" {
		return nil, apperrors.Wrap(faq.CodeCorpusLoad, "sqlite corpus path not configured", nil)
	}
	query, err := selectEntriesSQL(s.table)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", "file:"+s.path+"?mode=ro")
	if err != nil {
		return nil, apperrors.Wrap(faq.CodeCorpusLoad, "open sqlite corpus", err)
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(faq.CodeCorpusLoad, "query sqlite corpus", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

var (
	_ faq.CorpusSource = (*PostgresSource)(nil)
	_ faq.CorpusSource = (*SQLiteSource)(nil)
)
