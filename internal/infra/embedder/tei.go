package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
	apperrors "github.com/yanqian/faq-matcher/pkg/errors"
)

const (
	DefaultTEIModel       = "sentence-transformers/all-MiniLM-L6-v2"
	defaultTEIBatchSize   = 32
	defaultTEIHTTPTimeout = 30 * time.Second
)

type teiRequest struct {
	Inputs    []string `json:"inputs"`
	Normalize bool     `json:"normalize"`
	Truncate  bool     `json:"truncate"`
}

// TEIEncoder calls a text-embeddings-inference server serving a sentence-transformers model.
type TEIEncoder struct {
	baseURL    string
	model      string
	batchSize  int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTEIEncoder constructs the encoder for the server at baseURL.
func NewTEIEncoder(baseURL, model string, batchSize int, logger *slog.Logger) (*TEIEncoder, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, apperrors.Wrap(faq.CodeEncoderUnavailable, "tei base url cannot be empty", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultTEIModel
	}
	if batchSize <= 0 {
		batchSize = defaultTEIBatchSize
	}
	return &TEIEncoder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		batchSize: batchSize,
		httpClient: &http.Client{
			Timeout: defaultTEIHTTPTimeout,
		},
		logger: logger.With("component", "embedder.tei"),
	}, nil
}

// ModelName identifies the served model.
func (e *TEIEncoder) ModelName() string {
	return e.model
}

// Encode embeds texts in server-sized batches.
func (e *TEIEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, apperrors.Wrap(faq.CodeEncoderUnavailable, "tei embed", err)
		}
		if len(vectors) != end-start {
			return nil, apperrors.Wrap(faq.CodeEncoderUnavailable, fmt.Sprintf("embedding result count mismatch: expected %d got %d", end-start, len(vectors)), nil)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *TEIEncoder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	payload, err := json.Marshal(teiRequest{Inputs: batch, Normalize: true, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("encode embed request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("tei request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	return vectors, nil
}

var _ faq.Encoder = (*TEIEncoder)(nil)
