package embedder

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
)

const (
	defaultHashingDimensions = 384
	wordWeight               = 1.0
	trigramWeight            = 0.5
)

// HashingEncoder embeds text locally with signed feature hashing over content
// words and character trigrams. It needs no model files or network and is safe
// for concurrent use. Similarity is lexical only: paraphrases that share no
// words score low, so it suits tests and offline runs rather than production.
type HashingEncoder struct {
	dim int
}

// NewHashingEncoder constructs the encoder. Non-positive dim selects 384.
func NewHashingEncoder(dim int) *HashingEncoder {
	if dim <= 0 {
		dim = defaultHashingDimensions
	}
	return &HashingEncoder{dim: dim}
}

// Dimension reports the vector length.
func (e *HashingEncoder) Dimension() int {
	return e.dim
}

// Encode converts each text into an L2-normalized vector. Text without any
// letters or digits maps to the zero vector.
func (e *HashingEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *HashingEncoder) embed(text string) []float32 {
	vector := make([]float32, e.dim)
	for _, word := range tokenize(text) {
		e.add(vector, "w:"+word, wordWeight)
		padded := []rune(" " + word + " ")
		for j := 0; j+3 <= len(padded); j++ {
			e.add(vector, "t:"+string(padded[j:j+3]), trigramWeight)
		}
	}
	normalizeL2(vector)
	return vector
}

func (e *HashingEncoder) add(vector []float32, feature string, weight float32) {
	hash := fnv.New64a()
	_, _ = hash.Write([]byte(feature))
	sum := hash.Sum64()
	idx := int(sum % uint64(e.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vector[idx] += weight
}

func normalizeL2(vector []float32) {
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return
	}
	magnitude := math.Sqrt(sumSquares)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}

var _ faq.Encoder = (*HashingEncoder)(nil)
