package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-preprint/pkg/preprint"
)

// fakeS3 answers the handful of path-style calls the backend makes
type fakeS3 struct {
	mu          sync.Mutex
	objects     map[string][]byte
	contentType map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentType: map[string]string{}}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[path] = data
		f.contentType[path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", f.contentType[path])
		w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Backend_BasicConfiguration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1", AccessKeyID: "k", SecretAccessKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		_, err := New(Config{Bucket: "preprints"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key id")
	})

	t.Run("DefaultRegion", func(t *testing.T) {
		backend, err := New(Config{Bucket: "preprints", AccessKeyID: "k", SecretAccessKey: "s"})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.Equal(t, "s3", backend.Name())
	})
}

func TestS3Backend_Locator(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{
			name:     "public base url",
			config:   Config{PublicBaseURL: "https://cdn.example.edu/papers/", Endpoint: "http://minio:9000", UsePathStyle: true},
			expected: "https://cdn.example.edu/papers/a.pdf",
		},
		{
			name:     "path style endpoint",
			config:   Config{Endpoint: "http://minio:9000/", UsePathStyle: true},
			expected: "http://minio:9000/preprints/a.pdf",
		},
		{
			name:     "virtual host endpoint",
			config:   Config{Endpoint: "https://objects.example.edu"},
			expected: "https://preprints.objects.example.edu/a.pdf",
		},
		{
			name:     "aws",
			config:   Config{Region: "eu-west-1"},
			expected: "https://preprints.s3.eu-west-1.amazonaws.com/a.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Bucket = "preprints"
			b := &Backend{bucket: "preprints", config: tt.config}
			assert.Equal(t, tt.expected, b.Locator("a.pdf"))
		})
	}
}

func TestS3Backend_LocatorEscapesKey(t *testing.T) {
	b := &Backend{bucket: "preprints", config: Config{Bucket: "preprints", Region: "us-east-1"}}

	assert.Equal(t,
		"https://preprints.s3.us-east-1.amazonaws.com/papers/20251105143000_50%25off%3F%23.pdf",
		b.Locator("papers/20251105143000_50%off?#.pdf"))
}

func TestS3Backend_RoundTrip(t *testing.T) {
	fake := newFakeS3()
	server := httptest.NewServer(fake)
	defer server.Close()

	backend, err := New(Config{
		Bucket:          "preprints",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Endpoint:        server.URL,
		UsePathStyle:    true,
		VerifyBucket:    true,
	})
	require.NoError(t, err)

	ctx := context.Background()
	key := "20251105143000_paper.pdf"
	data := []byte("%PDF-1.4 s3 round trip")

	locator, err := backend.Store(ctx, key, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/preprints/"+key, locator)

	fake.mu.Lock()
	assert.Equal(t, data, fake.objects["preprints/"+key])
	assert.Equal(t, ContentType, fake.contentType["preprints/"+key])
	fake.mu.Unlock()

	rc, err := backend.Open(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = backend.Open(ctx, "missing.pdf")
	assert.ErrorIs(t, err, preprint.ErrObjectNotFound)
}

func TestS3Backend_StoreFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
	}))
	defer server.Close()

	backend, err := New(Config{
		Bucket:          "preprints",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Endpoint:        server.URL,
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	_, err = backend.Store(context.Background(), "a.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, preprint.ErrStorageFailure)
	assert.NotErrorIs(t, err, preprint.ErrObjectNotFound)
}

func TestS3Backend_ServerSideEncryption(t *testing.T) {
	tests := []struct {
		name        string
		algorithm   string
		kmsKeyID    string
		expectedSSE string
		expectedKMS string
	}{
		{name: "disabled"},
		{name: "aes256", algorithm: SSEAlgorithmAES256, expectedSSE: "AES256"},
		{name: "kms with key", algorithm: SSEAlgorithmKMS, kmsKeyID: "alias/preprints", expectedSSE: "aws:kms", expectedKMS: "alias/preprints"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sse, kms string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				sse = r.Header.Get("X-Amz-Server-Side-Encryption")
				kms = r.Header.Get("X-Amz-Server-Side-Encryption-Aws-Kms-Key-Id")
				w.Header().Set("ETag", `"etag"`)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			backend, err := New(Config{
				Bucket:          "preprints",
				AccessKeyID:     "test-key",
				SecretAccessKey: "test-secret",
				Endpoint:        server.URL,
				UsePathStyle:    true,
				SSEAlgorithm:    tt.algorithm,
				SSEKMSKeyID:     tt.kmsKeyID,
			})
			require.NoError(t, err)

			_, err = backend.Store(context.Background(), "a.pdf", strings.NewReader("%PDF-1.4"))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedSSE, sse)
			assert.Equal(t, tt.expectedKMS, kms)
		})
	}
}

func TestS3Backend_RejectsUnknownSSEAlgorithm(t *testing.T) {
	_, err := New(Config{
		Bucket:          "preprints",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		SSEAlgorithm:    "rot13",
	})
	assert.Error(t, err)
}
