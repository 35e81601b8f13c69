package objectkey

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// TimestampLayout is the UTC, second-resolution stamp prefixed to every key
const TimestampLayout = "20060102150405"

// DefaultFileName replaces a client file name that sanitizes to nothing
const DefaultFileName = "upload.pdf"

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates an object key for a file uploaded at now
	GenerateKey(now time.Time, filename string) string
}

// TimestampGenerator produces flat keys of the form 20251105143000_My_Paper.pdf
type TimestampGenerator struct{}

func NewTimestampGenerator() *TimestampGenerator {
	return &TimestampGenerator{}
}

func (g *TimestampGenerator) GenerateKey(now time.Time, filename string) string {
	return fmt.Sprintf("%s_%s", now.UTC().Format(TimestampLayout), SanitizeFilename(filename))
}

// PrefixedGenerator places keys from Base under a fixed prefix, e.g. "preprints/"
type PrefixedGenerator struct {
	Prefix string
	Base   Generator
}

func NewPrefixedGenerator(prefix string, base Generator) *PrefixedGenerator {
	if base == nil {
		base = NewTimestampGenerator()
	}
	return &PrefixedGenerator{Prefix: strings.Trim(prefix, "/"), Base: base}
}

func (g *PrefixedGenerator) GenerateKey(now time.Time, filename string) string {
	key := g.Base.GenerateKey(now, filename)
	if g.Prefix == "" {
		return key
	}
	return g.Prefix + "/" + key
}

// EscapePath escapes each "/"-separated segment of key for use in a URL
// path. The stored key itself is never altered.
func EscapePath(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// SanitizeFilename drops any directory part of a client supplied name and
// replaces whitespace with underscores.
func SanitizeFilename(filename string) string {
	if i := strings.LastIndexAny(filename, `/\`); i >= 0 {
		filename = filename[i+1:]
	}
	filename = strings.TrimSpace(filename)
	if filename == "" || filename == "." || filename == ".." {
		return DefaultFileName
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, filename)
}

// NewDefaultGenerator returns the generator used when none is configured
func NewDefaultGenerator() Generator {
	return NewTimestampGenerator()
}
