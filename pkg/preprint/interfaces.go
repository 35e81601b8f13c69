package preprint

import (
	"context"
	"io"
)

// BlobStore defines the interface for storage backends holding PDF bytes
type BlobStore interface {
	// Name identifies the backend in logs and errors
	Name() string

	// Store writes the bytes under key and returns a locator a client can
	// dereference without another round trip to the service
	Store(ctx context.Context, key string, reader io.Reader) (string, error)

	// Open returns the bytes stored under key
	Open(ctx context.Context, key string) (io.ReadCloser, error)

}

// Repository defines the interface for preprint record persistence
type Repository interface {
	// CreatePreprint inserts the record and assigns its ID
	CreatePreprint(ctx context.Context, p *Preprint) error
	GetPreprint(ctx context.Context, id int64) (*Preprint, error)
	ListPreprints(ctx context.Context, filter ListFilter) ([]*Preprint, error)

	// SetDOI assigns doi to a record that has none. It returns
	// ErrDOIAlreadyAssigned when the record already holds one and
	// ErrDuplicateDOI when another record owns the same value.
	SetDOI(ctx context.Context, id int64, doi string) error

	DOICounter

	// Ping checks the store is reachable
	Ping(ctx context.Context) error
}

// DOICounter is the slice of the catalog the minter needs.
type DOICounter interface {
	// CountDOIsWithPrefix counts records whose doi starts with prefix
	CountDOIsWithPrefix(ctx context.Context, prefix string) (int, error)
}

// EventSink defines the interface for lifecycle notifications
type EventSink interface {
	// PreprintSubmitted is fired after a record is persisted
	PreprintSubmitted(ctx context.Context, p *Preprint) error

	// DOIMinted is fired after a new identifier is persisted
	DOIMinted(ctx context.Context, p *Preprint) error
}
