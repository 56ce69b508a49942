package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/pkoukk/tiktoken-go"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
	apperrors "github.com/yanqian/faq-matcher/pkg/errors"
)

const (
	DefaultOpenAIModel      = "text-embedding-3-small"
	defaultMaxBatchTokens   = 200_000 // stay well below the provider's 300k cap
	maxInputsPerRequest     = 2048
	tokenEncodingName       = "cl100k_base"
	defaultOpenAIMaxRetries = 2
)

// OpenAIConfig configures the OpenAI embeddings encoder.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Dimensions     int
	MaxBatchTokens int
	MaxRetries     int
	// TokenCounter overrides the tiktoken based counter.
	TokenCounter func(string) int
}

// OpenAIEncoder calls the OpenAI embeddings API. The underlying client is safe
// for concurrent use.
type OpenAIEncoder struct {
	client         openai.Client
	model          string
	dimensions     int
	maxBatchTokens int
	countTokens    func(string) int
	logger         *slog.Logger
}

// NewOpenAIEncoder constructs the encoder. A missing API key is reported as encoder_unavailable.
func NewOpenAIEncoder(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIEncoder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "embedder.openai")
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperrors.Wrap(faq.CodeEncoderUnavailable, "openai api key cannot be empty", nil)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	maxTokens := cfg.MaxBatchTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxBatchTokens
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = defaultOpenAIMaxRetries
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(retries),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	counter := cfg.TokenCounter
	if counter == nil {
		counter = newTokenCounter(logger)
	}

	return &OpenAIEncoder{
		client:         openai.NewClient(opts...),
		model:          model,
		dimensions:     cfg.Dimensions,
		maxBatchTokens: maxTokens,
		countTokens:    counter,
		logger:         logger,
	}, nil
}

// ModelName identifies the embedding model, used to namespace cached vectors.
func (e *OpenAIEncoder) ModelName() string {
	return e.model
}

// Encode requests embeddings for texts, splitting into token-bounded batches.
func (e *OpenAIEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	var (
		batch       []string
		batchStart  int
		batchTokens int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := e.embedBatch(ctx, batch, out[batchStart:batchStart+len(batch)]); err != nil {
			return err
		}
		batchStart += len(batch)
		batch = batch[:0]
		batchTokens = 0
		return nil
	}

	for _, text := range texts {
		// the API rejects empty input
		if strings.TrimSpace(text) == "" {
			text = " "
		}
		tokens := e.countTokens(text)
		if tokens > e.maxBatchTokens {
			return nil, apperrors.Wrap(faq.CodeEncoderUnavailable, fmt.Sprintf("text too large for embedding request: tokens=%d", tokens), nil)
		}
		if len(batch) > 0 && (batchTokens+tokens > e.maxBatchTokens || len(batch) == maxInputsPerRequest) {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		batch = append(batch, text)
		batchTokens += tokens
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *OpenAIEncoder) embedBatch(ctx context.Context, batch []string, dst [][]float32) error {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}
	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return apperrors.Wrap(faq.CodeEncoderUnavailable, "create embeddings", err)
	}
	if len(resp.Data) != len(batch) {
		return apperrors.Wrap(faq.CodeEncoderUnavailable, fmt.Sprintf("embedding result count mismatch: expected %d got %d", len(batch), len(resp.Data)), nil)
	}
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(dst) || dst[idx] != nil {
			return apperrors.Wrap(faq.CodeEncoderUnavailable, fmt.Sprintf("unexpected embedding index %d", idx), nil)
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		dst[idx] = vec
	}
	e.logger.Debug("embedding batch complete", "inputs", len(batch), "total_tokens", resp.Usage.TotalTokens)
	return nil
}

func newTokenCounter(logger *slog.Logger) func(string) int {
	enc, err := tiktoken.GetEncoding(tokenEncodingName)
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, estimating tokens", "error", err)
		return estimateTokens
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}
}

// estimateTokens provides a rough, upper-biased token count.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	runes := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))
	byRunes := (runes + 1) / 2
	if byRunes < words {
		return words
	}
	return byRunes
}

var _ faq.Encoder = (*OpenAIEncoder)(nil)
