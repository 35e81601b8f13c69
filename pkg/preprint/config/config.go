package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-preprint/pkg/preprint"
	"github.com/tendant/simple-preprint/pkg/preprint/metrics"
	"github.com/tendant/simple-preprint/pkg/preprint/objectkey"
	"github.com/tendant/simple-preprint/pkg/preprint/repo/cache"
	"github.com/tendant/simple-preprint/pkg/preprint/repo/memory"
	repopg "github.com/tendant/simple-preprint/pkg/preprint/repo/postgres"
	fsstorage "github.com/tendant/simple-preprint/pkg/preprint/storage/fs"
	memorystorage "github.com/tendant/simple-preprint/pkg/preprint/storage/memory"
	s3storage "github.com/tendant/simple-preprint/pkg/preprint/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// defaults mirrors the env-default tags on ServerConfig
func defaults() ServerConfig {
	return ServerConfig{
		Port:           "5001",
		Environment:    "development",
		LogLevel:       "info",
		LogFormat:      "text",
		DatabaseType:   "memory",
		RunMigrations:  true,
		StorageBackend: "fs",
		UploadDir:      "./uploads",
		S3: S3Config{
			Region: "us-east-1",
		},
		MaxUploadBytes: 32 << 20,
		CacheSize:      0,
		CacheTTL:       5 * time.Minute,
	}
}

// ServerConfig represents server configuration for the preprint registry
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"5001"`
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`          // debug, info, warn, error
	LogFormat   string `env:"LOG_FORMAT" env-default:"text"`         // text, json

	// Database configuration
	DatabaseType  string `env:"DATABASE_TYPE" env-default:"memory"` // "memory", "postgres"
	DatabaseURL   string `env:"DATABASE_URL"`
	RunMigrations bool   `env:"DB_RUN_MIGRATIONS" env-default:"true"`

	// Storage configuration
	StorageBackend string `env:"STORAGE_BACKEND" env-default:"fs"` // "fs", "s3", "memory"
	UploadDir      string `env:"UPLOAD_DIR" env-default:"./uploads"`
	FSURLPrefix    string `env:"FS_URL_PREFIX"`
	S3             S3Config

	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" env-default:"33554432"`
	CacheSize      int           `env:"CACHE_SIZE" env-default:"0"` // 0 disables the record cache
	CacheTTL       time.Duration `env:"CACHE_TTL" env-default:"5m"`
}

// S3Config holds the remote blob store settings
type S3Config struct {
	Endpoint        string `env:"S3_ENDPOINT"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	Bucket          string `env:"S3_BUCKET"`
	Region          string `env:"S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	PublicBaseURL   string `env:"S3_PUBLIC_BASE_URL"`
	VerifyBucket    bool   `env:"S3_VERIFY_BUCKET" env-default:"false"`
	KeyPrefix       string `env:"S3_KEY_PREFIX"`     // e.g. "preprints/", prepended to every object key
	SSEAlgorithm    string `env:"S3_SSE_ALGORITHM"`  // "", "AES256" or "aws:kms"
	SSEKMSKeyID     string `env:"S3_SSE_KMS_KEY_ID"` // only with aws:kms
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be 'text' or 'json', got: %s", c.LogFormat)
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.StorageBackend {
	case "memory":
	case "fs":
		if c.UploadDir == "" {
			return errors.New("upload_dir is required for the fs storage backend")
		}
	case "s3":
		var missing []string
		if c.S3.Endpoint == "" {
			missing = append(missing, "S3_ENDPOINT")
		}
		if c.S3.AccessKeyID == "" {
			missing = append(missing, "S3_ACCESS_KEY_ID")
		}
		if c.S3.SecretAccessKey == "" {
			missing = append(missing, "S3_SECRET_ACCESS_KEY")
		}
		if c.S3.Bucket == "" {
			missing = append(missing, "S3_BUCKET")
		}
		if len(missing) > 0 {
			return fmt.Errorf("s3 storage backend requires %v", missing)
		}
		switch c.S3.SSEAlgorithm {
		case "", s3storage.SSEAlgorithmAES256, s3storage.SSEAlgorithmKMS:
		default:
			return fmt.Errorf("s3_sse_algorithm must be '%s' or '%s', got: %s",
				s3storage.SSEAlgorithmAES256, s3storage.SSEAlgorithmKMS, c.S3.SSEAlgorithm)
		}
		if c.S3.SSEKMSKeyID != "" && c.S3.SSEAlgorithm != s3storage.SSEAlgorithmKMS {
			return errors.New("s3_sse_kms_key_id requires s3_sse_algorithm 'aws:kms'")
		}
	default:
		return fmt.Errorf("storage_backend must be 'fs', 's3' or 'memory', got: %s", c.StorageBackend)
	}

	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if c.CacheSize < 0 {
		return errors.New("cache_size cannot be negative")
	}
	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		return errors.New("cache_ttl must be positive when the cache is enabled")
	}

	return nil
}

// ServeFiles reports whether locators are bare keys that the API must serve
func (c *ServerConfig) ServeFiles() bool {
	return c.StorageBackend == "fs" && c.FSURLPrefix == ""
}

// BuildService creates a Service instance from the server configuration. The
// returned cleanup releases database connections.
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (preprint.Service, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	repo, cleanup, err := c.buildRepository(ctx, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build repository: %w", err)
	}

	store, err := c.buildBlobStore()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to build storage backend %s: %w", c.StorageBackend, err)
	}

	svc, err := preprint.New(
		preprint.WithRepository(repo),
		preprint.WithBlobStore(store),
		preprint.WithKeyGenerator(c.keyGenerator()),
		preprint.WithEventSink(preprint.MultiEventSink{
			preprint.NewLoggingEventSink(logger),
			metrics.NewEventSink(),
		}),
		preprint.WithLogger(logger),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return svc, cleanup, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context, logger *slog.Logger) (preprint.Repository, func(), error) {
	var (
		repo    preprint.Repository
		cleanup = func() {}
	)

	switch c.DatabaseType {
	case "memory":
		repo = memory.New()
	case "postgres":
		if c.RunMigrations {
			if err := repopg.Migrate(c.DatabaseURL, logger); err != nil {
				return nil, nil, err
			}
		}
		pool, err := repopg.Connect(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		repo = repopg.NewWithPool(pool)
		cleanup = pool.Close
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}

	if c.CacheSize > 0 {
		repo = cache.New(repo, c.CacheSize, c.CacheTTL)
	}
	return repo, cleanup, nil
}

// keyGenerator places object keys under S3_KEY_PREFIX for the s3 backend
func (c *ServerConfig) keyGenerator() objectkey.Generator {
	if c.StorageBackend == "s3" && c.S3.KeyPrefix != "" {
		return objectkey.NewPrefixedGenerator(c.S3.KeyPrefix, nil)
	}
	return objectkey.NewDefaultGenerator()
}

// buildBlobStore creates a BlobStore based on the storage configuration
func (c *ServerConfig) buildBlobStore() (preprint.BlobStore, error) {
	switch c.StorageBackend {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   c.UploadDir,
			URLPrefix: c.FSURLPrefix,
		})
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			Endpoint:        c.S3.Endpoint,
			UsePathStyle:    c.S3.UsePathStyle,
			PublicBaseURL:   c.S3.PublicBaseURL,
			VerifyBucket:    c.S3.VerifyBucket,
			SSEAlgorithm:    c.S3.SSEAlgorithm,
			SSEKMSKeyID:     c.S3.SSEKMSKeyID,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.StorageBackend)
	}
}
