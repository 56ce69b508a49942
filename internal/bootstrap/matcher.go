package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
	"github.com/yanqian/faq-matcher/internal/infra/config"
	"github.com/yanqian/faq-matcher/internal/infra/corpus"
	"github.com/yanqian/faq-matcher/internal/infra/embedcache"
	"github.com/yanqian/faq-matcher/internal/infra/embedder"
	apperrors "github.com/yanqian/faq-matcher/pkg/errors"
)

const startupTimeout = 2 * time.Minute

// cleanups collects release hooks for pools and clients opened during startup.
type cleanups []func()

func (c *cleanups) add(fn func()) {
	*c = append(*c, fn)
}

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// BuildMatcher assembles the corpus source, encoder and optional embedding
// cache described by cfg and builds the matcher. The returned cleanup closes
// every connection opened on the way and is safe to call on error.
func BuildMatcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*faq.Matcher, func(), error) {
	var closers cleanups
	cleanup := func() { closers.run() }

	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	source, err := buildCorpusSource(ctx, cfg, logger, &closers)
	if err != nil {
		return nil, cleanup, apperrors.Wrap(faq.CodeCorpusLoad, "build corpus source", err)
	}
	encoder, namespace, err := buildEncoder(cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}

	var opts []faq.Option
	cache, err := buildEmbeddingCache(ctx, cfg, logger, &closers)
	if err != nil {
		logger.Error("embedding cache unavailable, encoding corpus without cache", "kind", cfg.EmbeddingCache.Kind, "error", err)
	} else if cache != nil {
		opts = append(opts, faq.WithCorpusEncoder(embedder.NewCachedEncoder(encoder, cache, namespace, logger)))
		logger.Info("embedding cache enabled", "kind", cfg.EmbeddingCache.Kind, "namespace", namespace)
	}

	matcher, err := faq.NewMatcher(ctx, cfg.MatcherConfig(), source, encoder, logger, opts...)
	if err != nil {
		return nil, cleanup, err
	}
	return matcher, cleanup, nil
}

// buildCorpusSource returns the configured corpus source.
func buildCorpusSource(ctx context.Context, cfg *config.Config, logger *slog.Logger, closers *cleanups) (faq.CorpusSource, error) {
	switch cfg.Corpus.Kind {
	case config.CorpusCSV:
		return corpus.NewFileSource(cfg.Corpus.Path), nil
	case config.CorpusSQLite:
		return corpus.NewSQLiteSource(cfg.Corpus.Path, cfg.Corpus.Table), nil
	case config.CorpusObject:
		obj := cfg.Corpus.Object
		source, err := corpus.NewObjectSource(corpus.ObjectConfig{
			Endpoint:  obj.Endpoint,
			AccessKey: obj.AccessKey,
			SecretKey: obj.SecretKey,
			Region:    obj.Region,
			Bucket:    obj.Bucket,
			Key:       obj.Key,
		}, logger)
		if err != nil {
			return nil, err
		}
		return source, nil
	case config.CorpusPostgres:
		pool, err := newPostgresPool(ctx, cfg.Corpus.DB)
		if err != nil {
			return nil, err
		}
		closers.add(pool.Close)
		return corpus.NewPostgresSource(pool, cfg.Corpus.Table), nil
	default:
		return nil, fmt.Errorf("unsupported corpus kind %q", cfg.Corpus.Kind)
	}
}

// buildEncoder returns the query encoder and the cache namespace that keeps
// vectors from different models apart.
func buildEncoder(cfg *config.Config, logger *slog.Logger) (faq.Encoder, string, error) {
	var (
		encoder   faq.Encoder
		namespace string
	)
	switch cfg.Encoder.Kind {
	case config.EncoderHashing:
		enc := embedder.NewHashingEncoder(cfg.Encoder.Dimensions)
		encoder = enc
		namespace = fmt.Sprintf("hashing:%d", enc.Dimension())
	case config.EncoderOpenAI:
		enc, err := embedder.NewOpenAIEncoder(embedder.OpenAIConfig{
			APIKey:         cfg.Encoder.APIKey,
			BaseURL:        cfg.Encoder.BaseURL,
			Model:          cfg.Encoder.Model,
			Dimensions:     cfg.Encoder.Dimensions,
			MaxBatchTokens: cfg.Encoder.MaxBatchTokens,
			MaxRetries:     cfg.Encoder.MaxRetries,
		}, logger)
		if err != nil {
			return nil, "", err
		}
		encoder = enc
		namespace = fmt.Sprintf("openai:%s:%d", enc.ModelName(), cfg.Encoder.Dimensions)
	case config.EncoderTEI:
		enc, err := embedder.NewTEIEncoder(cfg.Encoder.BaseURL, cfg.Encoder.Model, cfg.Encoder.BatchSize, logger)
		if err != nil {
			return nil, "", err
		}
		encoder = enc
		namespace = "tei:" + enc.ModelName()
	default:
		return nil, "", apperrors.Wrap(faq.CodeEncoderUnavailable, "unsupported encoder kind "+cfg.Encoder.Kind, nil)
	}
	if cfg.Encoder.Serialize {
		encoder = embedder.NewSerializedEncoder(encoder)
	}
	return encoder, namespace, nil
}

// buildEmbeddingCache returns nil when caching is disabled.
func buildEmbeddingCache(ctx context.Context, cfg *config.Config, logger *slog.Logger, closers *cleanups) (faq.EmbeddingCache, error) {
	switch cfg.EmbeddingCache.Kind {
	case config.CacheNone, "":
		return nil, nil
	case config.CacheMemory:
		return embedcache.NewMemoryStore(), nil
	case config.CacheValkey:
		opt, err := buildValkeyOptions(cfg.EmbeddingCache.Addr)
		if err != nil {
			return nil, fmt.Errorf("invalid valkey configuration: %w", err)
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			return nil, fmt.Errorf("create valkey client: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
			client.Close()
			return nil, fmt.Errorf("valkey ping: %w", err)
		}
		closers.add(client.Close)
		logger.Info("valkey embedding cache connected", "addr", cfg.EmbeddingCache.Addr)
		return embedcache.NewValkeyStore(client, cfg.EmbeddingCache.Prefix, cfg.EmbeddingCache.TTL), nil
	case config.CachePostgres:
		pool, err := newPostgresPool(ctx, cfg.EmbeddingCache.DB)
		if err != nil {
			return nil, err
		}
		store := embedcache.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("prepare embedding table: %w", err)
		}
		closers.add(pool.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported embedding cache kind %q", cfg.EmbeddingCache.Kind)
	}
}

func newPostgresPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(strings.TrimSpace(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
