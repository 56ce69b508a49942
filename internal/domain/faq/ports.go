package faq

import "context"

// Error codes surfaced by the FAQ domain.
const (
	CodeCorpusLoad         = "corpus_load_error"
	CodeEncoderUnavailable = "encoder_unavailable"
	CodeInvalidInput       = "invalid_input"
	CodeServiceUnavailable = "service_unavailable"
)

// Encoder maps texts to fixed-length embedding vectors, one per input and in input order.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// CorpusSource yields the curated entries in corpus order.
type CorpusSource interface {
	Load(ctx context.Context) ([]Entry, error)
}

// EmbeddingCache persists vectors keyed by an opaque string.
type EmbeddingCache interface {
	GetMany(ctx context.Context, keys []string) (map[string][]float32, error)
	PutMany(ctx context.Context, vectors map[string][]float32) error
}
