package api

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/simple-preprint/pkg/preprint"
)

// FilesHandler streams blobs held by the configured store
type FilesHandler struct {
	service preprint.Service
}

func NewFilesHandler(service preprint.Service) *FilesHandler {
	return &FilesHandler{service: service}
}

// Routes returns the router for file endpoints
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/*", h.ServeFile)
	return r
}

// ServeFile writes the blob stored under the wildcard key
func (h *FilesHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	// chi matches on RawPath when the request path carries escapes
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(key)
		if err != nil {
			writeErrorMessage(w, r, http.StatusNotFound, "not found")
			return
		}
		key = unescaped
	}
	if key == "" {
		writeErrorMessage(w, r, http.StatusNotFound, "not found")
		return
	}

	rc, err := h.service.OpenFile(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": path.Base(key)}))

	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("Failed to stream file", "key", key, "error", err)
	}
}
