package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
	apperrors "github.com/yanqian/faq-matcher/pkg/errors"
)

// ObjectConfig locates a corpus CSV in an S3-compatible bucket (S3, R2, MinIO).
type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	Key       string
}

// ObjectSource downloads the corpus CSV from object storage on Load.
type ObjectSource struct {
	client *minio.Client
	bucket string
	key    string
	logger *slog.Logger
}

// NewObjectSource constructs the source. Endpoints with an https scheme use TLS.
func NewObjectSource(cfg ObjectConfig, logger *slog.Logger) (*ObjectSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.Bucket) == "" || strings.TrimSpace(cfg.Key) == "" {
		return nil, apperrors.Wrap(faq.CodeCorpusLoad, "corpus object bucket and key are required", nil)
	}
	useSSL := !strings.HasPrefix(strings.ToLower(cfg.Endpoint), "http://")
	client, err := minio.New(sanitizeEndpoint(cfg.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       useSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, apperrors.Wrap(faq.CodeCorpusLoad, "init object storage client", err)
	}
	return &ObjectSource{
		client: client,
		bucket: cfg.Bucket,
		key:    cfg.Key,
		logger: logger.With("component", "corpus.object"),
	}, nil
}

// Load implements faq.CorpusSource.
func (s *ObjectSource) Load(ctx context.Context) ([]faq.Entry, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperrors.Wrap(faq.CodeCorpusLoad, fmt.Sprintf("get corpus object %s/%s", s.bucket, s.key), err)
	}
	defer obj.Close()
	// GetObject is lazy; Stat surfaces missing objects before parsing.
	info, err := obj.Stat()
	if err != nil {
		return nil, apperrors.Wrap(faq.CodeCorpusLoad, fmt.Sprintf("stat corpus object %s/%s", s.bucket, s.key), err)
	}
	s.logger.Info("downloading faq corpus", "bucket", s.bucket, "key", s.key, "size", info.Size, "etag", info.ETag)
	return ParseCSV(obj)
}

func sanitizeEndpoint(endpoint string) string {
	trimmed := strings.TrimSpace(endpoint)
	trimmed = strings.TrimPrefix(trimmed, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")
	return strings.TrimRight(trimmed, "/")
}

var _ faq.CorpusSource = (*ObjectSource)(nil)
