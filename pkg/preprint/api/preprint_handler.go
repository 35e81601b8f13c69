package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-preprint/pkg/preprint"
	"github.com/tendant/simple-preprint/pkg/preprint/objectkey"
)

// DefaultMaxUploadBytes bounds the multipart body of a submission
const DefaultMaxUploadBytes int64 = 32 << 20

// FilesPath is where legacy bare-filename locators are served from
const FilesPath = "/api/files/"

// PreprintHandler handles the preprint catalog endpoints
type PreprintHandler struct {
	service        preprint.Service
	maxUploadBytes int64
}

func NewPreprintHandler(service preprint.Service, maxUploadBytes int64) *PreprintHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &PreprintHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the router for preprint endpoints
func (h *PreprintHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListPreprints)
	r.Post("/", h.SubmitPreprint)
	r.Get("/{id}", h.GetPreprint)
	r.Post("/{id}/mint-doi", h.MintDOI)
	return r
}

// PreprintResponse is the JSON shape of a record
type PreprintResponse struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Abstract   string    `json:"abstract"`
	Category   string    `json:"category"`
	CourseCode string    `json:"course_code"`
	Authors    string    `json:"authors"`
	Faculty    string    `json:"faculty"`
	PDFFile    string    `json:"pdf_file"`
	UploadedAt time.Time `json:"uploaded_at"`
	Version    int       `json:"version"`
	DOI        *string   `json:"doi"`
	Status     string    `json:"status"`
}

// MintDOIResponse is returned by the mint endpoint
type MintDOIResponse struct {
	DOI string `json:"doi"`
}

func toPreprintResponse(r *http.Request, p *preprint.Preprint) PreprintResponse {
	return PreprintResponse{
		ID:         p.ID,
		Title:      p.Title,
		Abstract:   p.Abstract,
		Category:   p.Category,
		CourseCode: p.CourseCode,
		Authors:    p.Authors,
		Faculty:    p.Faculty,
		PDFFile:    FileURL(r, p.FileLocator),
		UploadedAt: p.UploadedAt,
		Version:    p.Version,
		DOI:        p.DOI,
		Status:     p.Status,
	}
}

// FileURL renders a locator for clients. Absolute locators from a remote
// store pass through; bare keys from the local store are served by this API.
func FileURL(r *http.Request, locator string) string {
	if locator == "" || strings.Contains(locator, "://") {
		return locator
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + FilesPath + objectkey.EscapePath(strings.TrimPrefix(locator, "/"))
}

// ListPreprints returns every record matching q and category
func (h *PreprintHandler) ListPreprints(w http.ResponseWriter, r *http.Request) {
	preprints, err := h.service.List(r.Context(), preprint.ListRequest{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]PreprintResponse, 0, len(preprints))
	for _, p := range preprints {
		resp = append(resp, toPreprintResponse(r, p))
	}
	render.JSON(w, r, resp)
}

// SubmitPreprint accepts a multipart submission with a pdf_file part
func (h *PreprintHandler) SubmitPreprint(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeErrorMessage(w, r, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		slog.Warn("Failed to parse multipart form", "error", err)
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := preprint.SubmitRequest{
		Title:      r.FormValue("title"),
		Abstract:   r.FormValue("abstract"),
		Category:   r.FormValue("category"),
		CourseCode: r.FormValue("course_code"),
		Authors:    r.FormValue("authors"),
		Faculty:    r.FormValue("faculty"),
		MintDOI:    strings.EqualFold(strings.TrimSpace(r.FormValue("mint_doi")), "true"),
	}

	file, header, err := r.FormFile("pdf_file")
	switch {
	case err == nil:
		defer file.Close()
		req.File = file
		req.OriginalFilename = header.Filename
	case errors.Is(err, http.ErrMissingFile):
		// Reported by the service together with any other missing field
	default:
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid pdf_file")
		return
	}

	p, err := h.service.Submit(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toPreprintResponse(r, p))
}

// GetPreprint returns a record by numeric id
func (h *PreprintHandler) GetPreprint(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeErrorMessage(w, r, http.StatusNotFound, "not found")
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toPreprintResponse(r, p))
}

// MintDOI assigns an identifier: 201 when new, 200 when already present
func (h *PreprintHandler) MintDOI(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeErrorMessage(w, r, http.StatusNotFound, "not found")
		return
	}

	doi, created, err := h.service.MintDOI(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if created {
		render.Status(r, http.StatusCreated)
	} else {
		render.Status(r, http.StatusOK)
	}
	render.JSON(w, r, MintDOIResponse{DOI: doi})
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
