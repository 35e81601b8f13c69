package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithLogging sets the log level and handler format
func WithLogging(level, format string) Option {
	return func(c *ServerConfig) error {
		c.LogLevel = level
		c.LogFormat = format
		return nil
	}
}

// WithDatabase configures the catalog store
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithMigrations toggles applying schema migrations at startup
func WithMigrations(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.RunMigrations = enabled
		return nil
	}
}

// WithMemoryStorage keeps uploads in process memory
func WithMemoryStorage() Option {
	return func(c *ServerConfig) error {
		c.StorageBackend = "memory"
		return nil
	}
}

// WithFilesystemStorage stores uploads under dir
func WithFilesystemStorage(dir, urlPrefix string) Option {
	return func(c *ServerConfig) error {
		if dir == "" {
			return fmt.Errorf("upload directory cannot be empty")
		}
		c.StorageBackend = "fs"
		c.UploadDir = dir
		c.FSURLPrefix = urlPrefix
		return nil
	}
}

// WithS3Storage stores uploads in an S3-compatible bucket
func WithS3Storage(s3 S3Config) Option {
	return func(c *ServerConfig) error {
		if s3.Region == "" {
			s3.Region = c.S3.Region
		}
		c.StorageBackend = "s3"
		c.S3 = s3
		return nil
	}
}

// WithMaxUploadBytes bounds the size of a submission body
func WithMaxUploadBytes(n int64) Option {
	return func(c *ServerConfig) error {
		if n <= 0 {
			return fmt.Errorf("max upload bytes must be positive, got: %d", n)
		}
		c.MaxUploadBytes = n
		return nil
	}
}

// WithCache enables the record cache
func WithCache(size int, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		c.CacheSize = size
		c.CacheTTL = ttl
		return nil
	}
}
