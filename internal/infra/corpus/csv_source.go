package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
	apperrors "github.com/yanqian/faq-matcher/pkg/errors"
)

var (
	idColumns       = []string{"question_id", "id"}
	questionColumns = []string{"question"}
	answerColumns   = []string{"answer"}
)

// FileSource reads the corpus from a CSV file with a header row.
type FileSource struct {
	path string
}

// NewFileSource constructs a source for the CSV file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load implements faq.CorpusSource.
func (s *FileSource) Load(_ context.Context) ([]faq.Entry, error) {
	if strings.TrimSpace(s.path) == "" {
		return nil, apperrors.Wrap(faq.CodeCorpusLoad, "corpus path not configured", nil)
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, apperrors.Wrap(faq.CodeCorpusLoad, "open corpus file", err)
	}
	defer f.Close()
	return ParseCSV(f)
}

// ParseCSV reads entries from CSV data. The header must contain question and
// answer columns (case-insensitive); Question_ID or id is optional and
// defaults to the 1-based row number.
func ParseCSV(r io.Reader) ([]faq.Entry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.Wrap(faq.CodeCorpusLoad, "corpus csv has no header row", nil)
		}
		return nil, apperrors.Wrap(faq.CodeCorpusLoad, "read corpus header", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var entries []faq.Entry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(faq.CodeCorpusLoad, "malformed corpus csv", err)
		}
		line, _ := reader.FieldPos(0)
		entry := faq.Entry{
			Question: strings.TrimSpace(record[cols.question]),
			Answer:   strings.TrimSpace(record[cols.answer]),
		}
		if cols.id >= 0 {
			entry.ID = strings.TrimSpace(record[cols.id])
		}
		if entry.ID == "" {
			entry.ID = strconv.Itoa(len(entries) + 1)
		}
		if err := validateEntry(entry); err != nil {
			return nil, apperrors.Wrap(faq.CodeCorpusLoad, fmt.Sprintf("corpus csv line %d", line), err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type columnIndex struct {
	id       int
	question int
	answer   int
}

func resolveColumns(header []string) (columnIndex, error) {
	cols := columnIndex{id: -1, question: -1, answer: -1}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		switch {
		case cols.id < 0 && contains(idColumns, name):
			cols.id = i
		case cols.question < 0 && contains(questionColumns, name):
			cols.question = i
		case cols.answer < 0 && contains(answerColumns, name):
			cols.answer = i
		}
	}
	var missing []string
	if cols.question < 0 {
		missing = append(missing, "question")
	}
	if cols.answer < 0 {
		missing = append(missing, "answer")
	}
	if len(missing) > 0 {
		return cols, apperrors.Wrap(faq.CodeCorpusLoad, "corpus csv missing columns: "+strings.Join(missing, ", "), nil)
	}
	return cols, nil
}

func contains(list []string, value string) bool {
	for _, candidate := range list {
		if candidate == value {
			return true
		}
	}
	return false
}

func validateEntry(entry faq.Entry) error {
	if entry.Question == "" {
		return errors.New("question is empty")
	}
	if entry.Answer == "" {
		return errors.New("answer is empty")
	}
	return nil
}

var _ faq.CorpusSource = (*FileSource)(nil)
