package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/simple-preprint/pkg/preprint"
	"github.com/tendant/simple-preprint/pkg/preprint/objectkey"
)

// Backend is a filesystem implementation of the preprint.BlobStore interface
type Backend struct {
	baseDir   string
	urlPrefix string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir   string // Directory receiving uploads, created when missing
	URLPrefix string // Optional absolute prefix for locators; empty stores the bare key
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	abs, err := filepath.Abs(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	return &Backend{
		baseDir:   abs,
		urlPrefix: strings.TrimRight(config.URLPrefix, "/"),
	}, nil
}

func (b *Backend) Name() string {
	return "fs"
}

// Store writes the reader to baseDir/key. The locator is the bare key unless
// a URL prefix is configured.
func (b *Backend) Store(ctx context.Context, key string, reader io.Reader) (string, error) {
	filePath, err := b.resolve(key)
	if err != nil {
		return "", preprint.NewStorageError(b.Name(), key, "store", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", preprint.NewStorageError(b.Name(), key, "store", fmt.Errorf("failed to create directory: %w", err))
	}

	file, err := os.Create(filePath)
	if err != nil {
		return "", preprint.NewStorageError(b.Name(), key, "store", fmt.Errorf("failed to create file: %w", err))
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(filePath)
		return "", preprint.NewStorageError(b.Name(), key, "store", fmt.Errorf("failed to write file: %w", err))
	}
	if err := file.Close(); err != nil {
		return "", preprint.NewStorageError(b.Name(), key, "store", fmt.Errorf("failed to close file: %w", err))
	}

	return b.Locator(key), nil
}

// Locator returns the value recorded for key
func (b *Backend) Locator(key string) string {
	if b.urlPrefix == "" {
		return key
	}
	return b.urlPrefix + "/" + objectkey.EscapePath(key)
}

func (b *Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	filePath, err := b.resolve(key)
	if err != nil {
		return nil, preprint.NewStorageError(b.Name(), key, "open", preprint.ErrObjectNotFound)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) || (err == nil && info.IsDir()) {
		return nil, preprint.NewStorageError(b.Name(), key, "open", preprint.ErrObjectNotFound)
	} else if err != nil {
		return nil, preprint.NewStorageError(b.Name(), key, "open", err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, preprint.NewStorageError(b.Name(), key, "open", fmt.Errorf("failed to open file: %w", err))
	}
	return file, nil
}

// resolve maps key below baseDir, rejecting anything that escapes it
func (b *Backend) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty key")
	}
	filePath := filepath.Join(b.baseDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(b.baseDir, filePath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes base directory", key)
	}
	return filePath, nil
}
