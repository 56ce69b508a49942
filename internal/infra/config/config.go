package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
)

// Corpus source kinds.
const (
	CorpusCSV      = "csv"
	CorpusObject   = "object"
	CorpusPostgres = "postgres"
	CorpusSQLite   = "sqlite"
)

// DefaultTEIBaseURL is where a local text-embeddings-inference sidecar listens.
const DefaultTEIBaseURL = "http://localhost:8080"

// Encoder kinds.
const (
	EncoderHashing = "hashing"
	EncoderOpenAI  = "openai"
	EncoderTEI     = "tei"
)

// Embedding cache kinds.
const (
	CacheNone     = "none"
	CacheMemory   = "memory"
	CacheValkey   = "valkey"
	CachePostgres = "postgres"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP           HTTPConfig           `yaml:"http"`
	FAQ            FAQConfig            `yaml:"faq"`
	Corpus         CorpusConfig         `yaml:"corpus"`
	Encoder        EncoderConfig        `yaml:"encoder"`
	EmbeddingCache EmbeddingCacheConfig `yaml:"embeddingCache"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address         string          `yaml:"address"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	AllowOrigins    []string        `yaml:"allowOrigins"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
	Retry           RetryConfig     `yaml:"retry"`
	Auth            AuthConfig      `yaml:"auth"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// AuthConfig enables HS256 bearer token checks on the ask routes.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwtSecret"`
	Issuer    string `yaml:"issuer"`
}

// FAQConfig controls matching and the user facing messages.
type FAQConfig struct {
	Threshold          float64 `yaml:"threshold"`
	FallbackMessage    string  `yaml:"fallbackMessage"`
	ErrorMessage       string  `yaml:"errorMessage"`
	UnavailableMessage string  `yaml:"unavailableMessage"`
	Disclaimer         string  `yaml:"disclaimer"`
}

// CorpusConfig selects where the curated entries come from.
type CorpusConfig struct {
	Kind   string         `yaml:"kind"`
	Path   string         `yaml:"path"`
	Table  string         `yaml:"table"`
	Object ObjectConfig   `yaml:"object"`
	DB     PostgresConfig `yaml:"postgres"`
}

// ObjectConfig locates a CSV object in S3-compatible storage.
type ObjectConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// EncoderConfig selects and configures the embedding model.
type EncoderConfig struct {
	Kind           string `yaml:"kind"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	APIKey         string `yaml:"apiKey"`
	BaseURL        string `yaml:"baseUrl"`
	MaxBatchTokens int    `yaml:"maxBatchTokens"`
	BatchSize      int    `yaml:"batchSize"`
	MaxRetries     int    `yaml:"maxRetries"`
	Serialize      bool   `yaml:"serialize"`
}

// EmbeddingCacheConfig configures persistence of corpus vectors across restarts.
type EmbeddingCacheConfig struct {
	Kind   string         `yaml:"kind"`
	Addr   string         `yaml:"addr"`
	Prefix string         `yaml:"prefix"`
	TTL    time.Duration  `yaml:"ttl"`
	DB     PostgresConfig `yaml:"postgres"`
}

// Load reads configuration from a YAML file and environment variables.
// A .env file in the working directory (or ENV_FILE) is loaded first.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	cfg.resolveEncoderDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("HTTP_ALLOW_ORIGINS"); v != "" {
		cfg.HTTP.AllowOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_AUTH_ENABLED"); v != "" {
		cfg.HTTP.Auth.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_AUTH_JWT_SECRET"); v != "" {
		cfg.HTTP.Auth.JWTSecret = v
	}
	if v := os.Getenv("FAQ_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.FAQ.Threshold = parsed
		}
	}
	if v := os.Getenv("FAQ_FALLBACK_MESSAGE"); v != "" {
		cfg.FAQ.FallbackMessage = v
	}
	if v := os.Getenv("FAQ_DISCLAIMER"); v != "" {
		cfg.FAQ.Disclaimer = v
	}
	if v := os.Getenv("CORPUS_KIND"); v != "" {
		cfg.Corpus.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("CORPUS_PATH"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("CORPUS_TABLE"); v != "" {
		cfg.Corpus.Table = v
	}
	if v := os.Getenv("CORPUS_POSTGRES_DSN"); v != "" {
		cfg.Corpus.DB.DSN = v
	}
	if v := os.Getenv("CORPUS_OBJECT_ENDPOINT"); v != "" {
		cfg.Corpus.Object.Endpoint = v
	}
	if v := os.Getenv("CORPUS_OBJECT_BUCKET"); v != "" {
		cfg.Corpus.Object.Bucket = v
	}
	if v := os.Getenv("CORPUS_OBJECT_KEY"); v != "" {
		cfg.Corpus.Object.Key = v
	}
	if v := os.Getenv("CORPUS_OBJECT_ACCESS_KEY"); v != "" {
		cfg.Corpus.Object.AccessKey = v
	}
	if v := os.Getenv("CORPUS_OBJECT_SECRET_KEY"); v != "" {
		cfg.Corpus.Object.SecretKey = v
	}
	if v := os.Getenv("ENCODER_KIND"); v != "" {
		cfg.Encoder.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("ENCODER_MODEL"); v != "" {
		cfg.Encoder.Model = v
	}
	if v := os.Getenv("ENCODER_BASE_URL"); v != "" {
		cfg.Encoder.BaseURL = v
	}
	if v := os.Getenv("ENCODER_DIMENSIONS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Encoder.Dimensions = parsed
		}
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Encoder.APIKey = v
	}
	if v := os.Getenv("EMBEDDING_CACHE_KIND"); v != "" {
		cfg.EmbeddingCache.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("EMBEDDING_CACHE_ADDR"); v != "" {
		cfg.EmbeddingCache.Addr = v
	}
	if v := os.Getenv("EMBEDDING_CACHE_POSTGRES_DSN"); v != "" {
		cfg.EmbeddingCache.DB.DSN = v
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:         ":5000",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     false,
				MaxAttempts: 2,
				BaseBackoff: 150 * time.Millisecond,
			},
		},
		FAQ: FAQConfig{
			Threshold:          faq.DefaultThreshold,
			FallbackMessage:    faq.DefaultFallbackMessage,
			ErrorMessage:       faq.DefaultErrorMessage,
			UnavailableMessage: "The service is currently unavailable. Please try again later.",
			Disclaimer:         "Note: This is not medical advice. If you're struggling, please reach out to a licensed mental health professional or helpline.",
		},
		Corpus: CorpusConfig{
			Kind:  CorpusCSV,
			Path:  "data/faq.csv",
			Table: "faq_entries",
			DB:    PostgresConfig{MaxConns: 4},
		},
		Encoder: EncoderConfig{
			Kind:       EncoderTEI,
			MaxRetries: 2,
		},
		EmbeddingCache: EmbeddingCacheConfig{
			Kind:   CacheNone,
			Prefix: "faq:emb",
			DB:     PostgresConfig{MaxConns: 2},
		},
	}
}

// resolveEncoderDefaults fills settings that only apply to the selected encoder kind.
func (c *Config) resolveEncoderDefaults() {
	if c.Encoder.Kind == EncoderTEI && strings.TrimSpace(c.Encoder.BaseURL) == "" {
		c.Encoder.BaseURL = DefaultTEIBaseURL
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.FAQ.Threshold < -1 || c.FAQ.Threshold > 1 {
		return errors.New("faq.threshold must be within [-1, 1]")
	}
	if strings.TrimSpace(c.FAQ.FallbackMessage) == "" {
		return errors.New("faq.fallbackMessage cannot be empty")
	}
	if strings.TrimSpace(c.FAQ.ErrorMessage) == "" {
		return errors.New("faq.errorMessage cannot be empty")
	}
	switch c.Corpus.Kind {
	case CorpusCSV, CorpusSQLite:
		if strings.TrimSpace(c.Corpus.Path) == "" {
			return errors.New("corpus.path cannot be empty")
		}
	case CorpusObject:
		if c.Corpus.Object.Bucket == "" || c.Corpus.Object.Key == "" {
			return errors.New("corpus.object.bucket and corpus.object.key are required")
		}
	case CorpusPostgres:
		if strings.TrimSpace(c.Corpus.DB.DSN) == "" {
			return errors.New("corpus.postgres.dsn cannot be empty")
		}
	default:
		return fmt.Errorf("corpus.kind %q is not supported", c.Corpus.Kind)
	}
	switch c.Encoder.Kind {
	case EncoderHashing:
	case EncoderOpenAI:
		if strings.TrimSpace(c.Encoder.APIKey) == "" {
			return errors.New("encoder.apiKey cannot be empty for the openai encoder")
		}
	case EncoderTEI:
		if strings.TrimSpace(c.Encoder.BaseURL) == "" {
			return errors.New("encoder.baseUrl cannot be empty for the tei encoder")
		}
	default:
		return fmt.Errorf("encoder.kind %q is not supported", c.Encoder.Kind)
	}
	if c.Encoder.Dimensions < 0 {
		return errors.New("encoder.dimensions cannot be negative")
	}
	switch c.EmbeddingCache.Kind {
	case CacheNone, CacheMemory:
	case CacheValkey:
		if strings.TrimSpace(c.EmbeddingCache.Addr) == "" {
			return errors.New("embeddingCache.addr cannot be empty when the valkey cache is enabled")
		}
	case CachePostgres:
		if strings.TrimSpace(c.EmbeddingCache.DB.DSN) == "" {
			return errors.New("embeddingCache.postgres.dsn cannot be empty when the postgres cache is enabled")
		}
	default:
		return fmt.Errorf("embeddingCache.kind %q is not supported", c.EmbeddingCache.Kind)
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	if c.HTTP.Auth.Enabled && len(c.HTTP.Auth.JWTSecret) < 16 {
		return errors.New("http.auth.jwtSecret must be at least 16 characters when auth is enabled")
	}
	return nil
}

// MatcherConfig projects the FAQ section onto the domain config.
func (c *Config) MatcherConfig() faq.Config {
	return faq.Config{
		Threshold:       faq.Threshold(c.FAQ.Threshold),
		FallbackMessage: c.FAQ.FallbackMessage,
		ErrorMessage:    c.FAQ.ErrorMessage,
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
