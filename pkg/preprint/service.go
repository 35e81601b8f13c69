package preprint

import (
	"context"
	"io"
)

// Service defines the main interface for the preprint registry
type Service interface {
	// Submit validates the request, stores the file, inserts the record and
	// optionally mints a DOI for it
	Submit(ctx context.Context, req SubmitRequest) (*Preprint, error)

	// List returns every record matching req, most recent first
	List(ctx context.Context, req ListRequest) ([]*Preprint, error)

	Get(ctx context.Context, id int64) (*Preprint, error)

	// MintDOI assigns an identifier to the record. created is false when the
	// record already had one, which is returned unchanged.
	MintDOI(ctx context.Context, id int64) (doi string, created bool, err error)

	// OpenFile streams a stored blob by key (legacy local file serving)
	OpenFile(ctx context.Context, key string) (io.ReadCloser, error)

	// Health checks the catalog store is reachable
	Health(ctx context.Context) error
}
