package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv reads configuration from the environment using the env tags on
// ServerConfig. Unset variables fall back to their env-default values, so
// WithEnv should come before options that override individual fields.
//
//	PORT, ENVIRONMENT, LOG_LEVEL, LOG_FORMAT
//	DATABASE_TYPE (memory|postgres), DATABASE_URL, DB_RUN_MIGRATIONS
//	STORAGE_BACKEND (fs|s3|memory), UPLOAD_DIR, FS_URL_PREFIX
//	S3_ENDPOINT, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY, S3_BUCKET, S3_REGION,
//	S3_USE_PATH_STYLE, S3_PUBLIC_BASE_URL, S3_VERIFY_BUCKET
//	MAX_UPLOAD_BYTES, CACHE_SIZE, CACHE_TTL
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// EnvUsage describes every environment variable the server reads
func EnvUsage() string {
	var cfg ServerConfig
	usage, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return usage
}
