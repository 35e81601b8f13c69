package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/simple-preprint/pkg/preprint"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps the service error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, preprint.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, preprint.ErrPreprintNotFound), errors.Is(err, preprint.ErrObjectNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	switch status {
	case http.StatusNotFound:
		message = "not found"
	case http.StatusInternalServerError:
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		switch {
		case errors.Is(err, preprint.ErrStorageFailure):
			message = "failed to store file"
		default:
			message = "internal server error"
		}
	}
	writeErrorMessage(w, r, status, message)
}

func writeErrorMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}
