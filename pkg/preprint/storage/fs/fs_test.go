package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/simple-preprint/pkg/preprint"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	key := "preprints/20251105143000_paper.pdf"

	// Store
	data := []byte("%PDF-1.4 hello fs")
	locator, err := backend.Store(ctx, key, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if locator != key {
		t.Fatalf("expected bare key locator, got %q", locator)
	}
	if _, err := os.Stat(filepath.Join(tmp, "preprints", "20251105143000_paper.pdf")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	// Open
	rc, err := backend.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(got) != string(data) {
		t.Fatalf("open mismatch: %q", string(got))
	}

	// Open missing
	_, err = backend.Open(ctx, "preprints/missing.pdf")
	if !errors.Is(err, preprint.ErrObjectNotFound) {
		t.Fatalf("expected not found for missing key, got %v", err)
	}
}

func TestFSBackend_URLPrefix(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir(), URLPrefix: "https://files.example.edu/uploads/"})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	locator, err := backend.Store(context.Background(), "a.pdf", bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if locator != "https://files.example.edu/uploads/a.pdf" {
		t.Fatalf("unexpected locator %q", locator)
	}

	locator, err = backend.Store(context.Background(), "20251105143000_draft#2.pdf", bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if locator != "https://files.example.edu/uploads/20251105143000_draft%232.pdf" {
		t.Fatalf("expected escaped locator, got %q", locator)
	}
	if _, err := os.Stat(filepath.Join(backend.baseDir, "20251105143000_draft#2.pdf")); err != nil {
		t.Fatalf("expected file stored under the unescaped key: %v", err)
	}
}

func TestFSBackend_RejectsTraversal(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: filepath.Join(tmp, "uploads")})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "secret.txt"), []byte("secret"), 0644); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	ctx := context.Background()
	for _, key := range []string{"../secret.txt", "..", "", "a/../../secret.txt"} {
		if _, err := backend.Open(ctx, key); !errors.Is(err, preprint.ErrObjectNotFound) {
			t.Errorf("key %q: expected not found, got %v", key, err)
		}
	}

	_, err = backend.Store(ctx, "../escape.pdf", bytes.NewReader([]byte("x")))
	if !errors.Is(err, preprint.ErrStorageFailure) {
		t.Fatalf("expected storage failure, got %v", err)
	}
}

func TestFSBackend_RequiresBaseDir(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for empty base dir")
	}
}
