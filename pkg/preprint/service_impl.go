package preprint

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tendant/simple-preprint/pkg/preprint/objectkey"
)

// service implements the Service interface
type service struct {
	repository Repository
	blobStore  BlobStore
	eventSink  EventSink
	keys       objectkey.Generator
	minter     *Minter
	now        func() time.Time
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the catalog store for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the storage backend receiving uploaded files
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithKeyGenerator overrides how object keys are derived from file names
func WithKeyGenerator(gen objectkey.Generator) Option {
	return func(s *service) {
		s.keys = gen
	}
}

// WithClock overrides the time source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithLogger sets the logger used for failures that do not abort an operation
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		keys: objectkey.NewDefaultGenerator(),
		now:  time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.minter = NewMinter(s.repository)

	return s, nil
}

func (s *service) Submit(ctx context.Context, req SubmitRequest) (*Preprint, error) {
	title := strings.TrimSpace(req.Title)
	abstract := strings.TrimSpace(req.Abstract)

	var missing []string
	if title == "" {
		missing = append(missing, "title")
	}
	if abstract == "" {
		missing = append(missing, "abstract")
	}

	var body *bufio.Reader
	if req.File != nil {
		body = bufio.NewReader(req.File)
		if _, err := body.Peek(1); err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, &ValidationError{Fields: []string{"pdf_file"}, Err: fmt.Errorf("read uploaded file: %w", err)}
			}
			body = nil
		}
	}
	if body == nil {
		missing = append(missing, "pdf_file")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	now := s.now().UTC()
	key := s.keys.GenerateKey(now, req.OriginalFilename)

	locator, err := s.blobStore.Store(ctx, key, body)
	if err != nil {
		var storageErr *StorageError
		if errors.As(err, &storageErr) {
			return nil, err
		}
		return nil, NewStorageError(s.blobStore.Name(), key, "store", err)
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = DefaultCategory
	}

	p := &Preprint{
		Title:       title,
		Abstract:    abstract,
		Category:    category,
		CourseCode:  strings.TrimSpace(req.CourseCode),
		Authors:     strings.TrimSpace(req.Authors),
		Faculty:     strings.TrimSpace(req.Faculty),
		FileLocator: locator,
		UploadedAt:  now,
		Version:     InitialVersion,
		Status:      string(StatusSubmitted),
	}

	if err := s.repository.CreatePreprint(ctx, p); err != nil {
		// The blob stays behind; there is no compensating delete.
		s.logger.WarnContext(ctx, "Preprint insert failed after file upload, blob orphaned",
			"backend", s.blobStore.Name(), "key", key, "error", err)
		return nil, &PreprintError{Op: "create", Err: persistenceError(err)}
	}

	if err := s.eventSink.PreprintSubmitted(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "Event sink failed", "event", "preprint_submitted", "preprint_id", p.ID, "error", err)
	}

	if req.MintDOI {
		if _, _, err := s.assignDOI(ctx, p, now); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (s *service) List(ctx context.Context, req ListRequest) ([]*Preprint, error) {
	filter := ListFilter{
		Query:    strings.TrimSpace(req.Query),
		Category: strings.TrimSpace(req.Category),
	}

	preprints, err := s.repository.ListPreprints(ctx, filter)
	if err != nil {
		return nil, &PreprintError{Op: "list", Err: persistenceError(err)}
	}
	if preprints == nil {
		preprints = []*Preprint{}
	}
	return preprints, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Preprint, error) {
	p, err := s.repository.GetPreprint(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPreprintNotFound) {
			return nil, &PreprintError{ID: id, Op: "get", Err: ErrPreprintNotFound}
		}
		return nil, &PreprintError{ID: id, Op: "get", Err: persistenceError(err)}
	}
	return p, nil
}

func (s *service) MintDOI(ctx context.Context, id int64) (string, bool, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return "", false, err
	}
	if p.HasDOI() {
		return *p.DOI, false, nil
	}
	return s.assignDOI(ctx, p, s.now().UTC())
}

// assignDOI mints an identifier for the month of now and persists it on p.
func (s *service) assignDOI(ctx context.Context, p *Preprint, now time.Time) (string, bool, error) {
	doi, err := s.minter.Mint(ctx, now)
	if err != nil {
		return "", false, &PreprintError{ID: p.ID, Op: "mint_doi", Err: persistenceError(err)}
	}

	if err := s.repository.SetDOI(ctx, p.ID, doi); err != nil {
		switch {
		case errors.Is(err, ErrDOIAlreadyAssigned):
			// Assigned by someone else since we read the record.
			current, getErr := s.Get(ctx, p.ID)
			if getErr != nil {
				return "", false, getErr
			}
			if current.HasDOI() {
				p.DOI = current.DOI
				return *current.DOI, false, nil
			}
			return "", false, &PreprintError{ID: p.ID, Op: "mint_doi", Err: persistenceError(err)}
		case errors.Is(err, ErrPreprintNotFound):
			return "", false, &PreprintError{ID: p.ID, Op: "mint_doi", Err: ErrPreprintNotFound}
		default:
			return "", false, &PreprintError{ID: p.ID, Op: "mint_doi", Err: persistenceError(err)}
		}
	}

	p.DOI = &doi
	if err := s.eventSink.DOIMinted(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "Event sink failed", "event", "doi_minted", "preprint_id", p.ID, "error", err)
	}
	return doi, true, nil
}

func (s *service) OpenFile(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.blobStore.Open(ctx, key)
	if err != nil {
		var storageErr *StorageError
		if errors.As(err, &storageErr) {
			return nil, err
		}
		return nil, NewStorageError(s.blobStore.Name(), key, "open", err)
	}
	return rc, nil
}

func (s *service) Health(ctx context.Context) error {
	if err := s.repository.Ping(ctx); err != nil {
		return persistenceError(err)
	}
	return nil
}

func persistenceError(err error) error {
	if errors.Is(err, ErrPersistenceFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
}
