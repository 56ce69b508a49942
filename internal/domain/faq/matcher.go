package faq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	apperrors "github.com/yanqian/faq-matcher/pkg/errors"
)

// Matcher owns the corpus and its precomputed embeddings. It is immutable once
// built and safe for concurrent FindBestMatch calls as long as the encoder is.
type Matcher struct {
	cfg        Config
	entries    []Entry
	embeddings [][]float32
	dims       int
	encoder    Encoder
	logger     *slog.Logger
}

// Option customises matcher construction.
type Option func(*options)

type options struct {
	corpusEncoder Encoder
}

// WithCorpusEncoder encodes the corpus with enc instead of the query encoder.
// enc must produce vectors in the same space, e.g. a cached wrapper of it.
func WithCorpusEncoder(enc Encoder) Option {
	return func(o *options) {
		o.corpusEncoder = enc
	}
}

// NewMatcher loads the corpus, encodes every question in a single batch and
// returns a ready matcher. No partially built matcher is ever returned.
func NewMatcher(ctx context.Context, cfg Config, source CorpusSource, encoder Encoder, logger *slog.Logger, opts ...Option) (*Matcher, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "faq.matcher")
	if source == nil {
		return nil, apperrors.Wrap(CodeCorpusLoad, "corpus source not configured", nil)
	}
	if encoder == nil {
		return nil, apperrors.Wrap(CodeEncoderUnavailable, "encoder not configured", nil)
	}

	entries, err := source.Load(ctx)
	if err != nil {
		if apperrors.IsCode(err, CodeCorpusLoad) {
			return nil, err
		}
		return nil, apperrors.Wrap(CodeCorpusLoad, "load corpus", err)
	}
	if len(entries) == 0 {
		return nil, apperrors.Wrap(CodeCorpusLoad, "corpus is empty", nil)
	}
	entries = append([]Entry(nil), entries...)
	logger.Info("faq corpus loaded", "entries", len(entries))

	questions := make([]string, len(entries))
	for i, entry := range entries {
		questions[i] = entry.Question
	}
	corpusEncoder := encoder
	if o.corpusEncoder != nil {
		corpusEncoder = o.corpusEncoder
	}
	embeddings, err := corpusEncoder.Encode(ctx, questions)
	if err != nil {
		if apperrors.IsCode(err, CodeEncoderUnavailable) {
			return nil, err
		}
		return nil, apperrors.Wrap(CodeEncoderUnavailable, "encode corpus", err)
	}
	dims, err := checkVectors(embeddings, len(questions))
	if err != nil {
		return nil, apperrors.Wrap(CodeEncoderUnavailable, "encode corpus", err)
	}
	logger.Info("faq corpus encoded", "entries", len(entries), "dimensions", dims)

	return &Matcher{
		cfg:        cfg.withDefaults(),
		entries:    entries,
		embeddings: embeddings,
		dims:       dims,
		encoder:    encoder,
		logger:     logger,
	}, nil
}

// Match runs FindBestMatch with the configured threshold.
func (m *Matcher) Match(ctx context.Context, query string) MatchResult {
	return m.FindBestMatch(ctx, query, *m.cfg.Threshold)
}

// FindBestMatch returns the closest corpus entry for query, or a fallback when
// the best score is below threshold. It never fails: encoder errors surface as
// an OutcomeFailed result with score 0.
func (m *Matcher) FindBestMatch(ctx context.Context, query string, threshold float64) (result MatchResult) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("faq match panicked", "panic", r)
			result = m.failure()
		}
	}()

	vectors, err := m.encoder.Encode(ctx, []string{query})
	if err != nil {
		m.logger.Error("faq query encoding failed", "error", err)
		return m.failure()
	}
	if len(vectors) != 1 {
		m.logger.Error("faq query encoding failed", "error", fmt.Errorf("expected 1 vector, got %d", len(vectors)))
		return m.failure()
	}
	if len(vectors[0]) != m.dims {
		m.logger.Error("faq query encoding failed", "error", fmt.Errorf("dimension mismatch: corpus=%d query=%d", m.dims, len(vectors[0])))
		return m.failure()
	}

	idx, score := bestIndex(vectors[0], m.embeddings)
	if idx < 0 || math.IsNaN(score) {
		m.logger.Error("faq similarity search failed", "error", errors.New("no comparable corpus vector"))
		return m.failure()
	}

	if score < threshold {
		return MatchResult{
			Answer:  m.cfg.FallbackMessage,
			Score:   score,
			Outcome: OutcomeNoMatch,
			Index:   idx,
		}
	}

	entry := m.entries[idx]
	question := entry.Question
	return MatchResult{
		Answer:          entry.Answer,
		Score:           score,
		MatchedQuestion: &question,
		Outcome:         OutcomeMatched,
		Index:           idx,
	}
}

// Size is the number of corpus entries.
func (m *Matcher) Size() int {
	return len(m.entries)
}

// Dimension is the embedding length shared by the corpus vectors.
func (m *Matcher) Dimension() int {
	return m.dims
}

// Entries returns a copy of the corpus in load order.
func (m *Matcher) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}

func (m *Matcher) failure() MatchResult {
	return MatchResult{
		Answer:  m.cfg.ErrorMessage,
		Score:   0,
		Outcome: OutcomeFailed,
		Index:   -1,
	}
}

func checkVectors(vectors [][]float32, want int) (int, error) {
	if len(vectors) != want {
		return 0, fmt.Errorf("expected %d vectors, got %d", want, len(vectors))
	}
	dims := len(vectors[0])
	if dims == 0 {
		return 0, errors.New("encoder returned empty vector")
	}
	for i, vec := range vectors {
		if len(vec) != dims {
			return 0, fmt.Errorf("vector %d has %d dimensions, want %d", i, len(vec), dims)
		}
	}
	return dims, nil
}
