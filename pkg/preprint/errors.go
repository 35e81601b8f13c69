package preprint

import (
	"errors"
	"fmt"
	"strings"
)

// Error types
var (
	// ErrValidation indicates a submission is missing required input
	ErrValidation = errors.New("validation failed")

	// ErrPreprintNotFound indicates no record exists for an id
	ErrPreprintNotFound = errors.New("preprint not found")

	// ErrObjectNotFound indicates a blob does not exist in a storage backend
	ErrObjectNotFound = errors.New("object not found")

	// ErrStorageFailure indicates the blob medium is unreachable or rejected a write
	ErrStorageFailure = errors.New("storage failure")

	// ErrPersistenceFailure indicates the catalog store is unreachable or rejected a write
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrDuplicateDOI indicates the unique constraint on doi rejected a write
	ErrDuplicateDOI = fmt.Errorf("%w: doi already exists", ErrPersistenceFailure)

	// ErrDOIAlreadyAssigned indicates SetDOI was called on a record that has one
	ErrDOIAlreadyAssigned = errors.New("doi already assigned")
)

// ValidationError lists the fields of a submission that are missing, or
// present but unusable when Err is set.
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %v", strings.Join(e.Fields, ", "), e.Err)
	}
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateStatus rejects a status outside the known set
func ValidateStatus(status string) error {
	if Status(status).IsValid() {
		return nil
	}
	return &ValidationError{Fields: []string{"status"}, Err: fmt.Errorf("unknown status %q", status)}
}

// PreprintError represents an error related to a catalog operation
type PreprintError struct {
	ID  int64
	Op  string
	Err error
}

func (e *PreprintError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("preprint operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("preprint operation %s failed for preprint %d: %v", e.Op, e.ID, e.Err)
}

func (e *PreprintError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError builds a StorageError that always matches ErrStorageFailure
// in addition to the underlying cause.
func NewStorageError(backend, key, op string, err error) *StorageError {
	if !errors.Is(err, ErrStorageFailure) && !errors.Is(err, ErrObjectNotFound) {
		err = fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return &StorageError{Backend: backend, Key: key, Op: op, Err: err}
}
