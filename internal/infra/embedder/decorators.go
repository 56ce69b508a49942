package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
	apperrors "github.com/yanqian/faq-matcher/pkg/errors"
)

// SerializedEncoder allows one Encode call at a time on an encoder that is not
// safe for concurrent use.
type SerializedEncoder struct {
	mu   sync.Mutex
	next faq.Encoder
}

// NewSerializedEncoder wraps next.
func NewSerializedEncoder(next faq.Encoder) *SerializedEncoder {
	return &SerializedEncoder{next: next}
}

// Encode implements faq.Encoder.
func (e *SerializedEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.next.Encode(ctx, texts)
}

// CachedEncoder serves vectors from an EmbeddingCache and only sends misses to
// the wrapped encoder, in a single call. Cache failures degrade to misses.
type CachedEncoder struct {
	next      faq.Encoder
	cache     faq.EmbeddingCache
	namespace string
	logger    *slog.Logger
}

// NewCachedEncoder wraps next. namespace should identify the model so vectors
// from different models never mix.
func NewCachedEncoder(next faq.Encoder, cache faq.EmbeddingCache, namespace string, logger *slog.Logger) *CachedEncoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEncoder{
		next:      next,
		cache:     cache,
		namespace: namespace,
		logger:    logger.With("component", "embedder.cache"),
	}
}

// Encode implements faq.Encoder.
func (e *CachedEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = e.key(text)
	}

	cached, err := e.cache.GetMany(ctx, keys)
	if err != nil {
		e.logger.Warn("embedding cache lookup failed", "error", err)
		cached = nil
	}

	var (
		missTexts []string
		missKeys  []string
		seen      = make(map[string]struct{})
	)
	for i, key := range keys {
		if _, ok := cached[key]; ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		missTexts = append(missTexts, texts[i])
		missKeys = append(missKeys, key)
	}

	fresh := make(map[string][]float32, len(missKeys))
	if len(missTexts) > 0 {
		vectors, err := e.next.Encode(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(missTexts) {
			return nil, apperrors.Wrap(faq.CodeEncoderUnavailable, fmt.Sprintf("embedding result count mismatch: expected %d got %d", len(missTexts), len(vectors)), nil)
		}
		for i, key := range missKeys {
			fresh[key] = vectors[i]
		}
		if err := e.cache.PutMany(ctx, fresh); err != nil {
			e.logger.Warn("embedding cache save failed", "error", err)
		}
	}
	e.logger.Debug("embedding cache lookup", "requested", len(texts), "misses", len(missTexts))

	out := make([][]float32, len(texts))
	for i, key := range keys {
		if vec, ok := fresh[key]; ok {
			out[i] = vec
			continue
		}
		out[i] = cached[key]
	}
	return out, nil
}

func (e *CachedEncoder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return e.namespace + ":" + hex.EncodeToString(sum[:])
}

var (
	_ faq.Encoder = (*SerializedEncoder)(nil)
	_ faq.Encoder = (*CachedEncoder)(nil)
)
