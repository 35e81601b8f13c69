package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/tendant/simple-preprint/pkg/preprint"
)

// Repository implements preprint.Repository using in-memory storage
type Repository struct {
	mu        sync.RWMutex
	nextID    int64
	preprints map[int64]*preprint.Preprint
	dois      map[string]int64 // doi -> preprint id
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		preprints: make(map[int64]*preprint.Preprint),
		dois:      make(map[string]int64),
	}
}

func (r *Repository) CreatePreprint(ctx context.Context, p *preprint.Preprint) error {
	if err := preprint.ValidateStatus(p.Status); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.DOI != nil {
		if _, taken := r.dois[*p.DOI]; taken {
			return preprint.ErrDuplicateDOI
		}
	}

	r.nextID++
	p.ID = r.nextID

	stored := copyPreprint(p)
	r.preprints[p.ID] = stored
	if stored.DOI != nil {
		r.dois[*stored.DOI] = stored.ID
	}
	return nil
}

func (r *Repository) GetPreprint(ctx context.Context, id int64) (*preprint.Preprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.preprints[id]
	if !exists {
		return nil, preprint.ErrPreprintNotFound
	}
	return copyPreprint(p), nil
}

func (r *Repository) ListPreprints(ctx context.Context, filter preprint.ListFilter) ([]*preprint.Preprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := strings.ToLower(filter.Query)
	result := []*preprint.Preprint{}
	for _, p := range r.preprints {
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Title), query) &&
			!strings.Contains(strings.ToLower(p.Abstract), query) {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		result = append(result, copyPreprint(p))
	}

	// Most recent first, newest id breaks ties
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UploadedAt.Equal(result[j].UploadedAt) {
			return result[i].UploadedAt.After(result[j].UploadedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

func (r *Repository) SetDOI(ctx context.Context, id int64, doi string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.preprints[id]
	if !exists {
		return preprint.ErrPreprintNotFound
	}
	if p.DOI != nil {
		return preprint.ErrDOIAlreadyAssigned
	}
	if _, taken := r.dois[doi]; taken {
		return preprint.ErrDuplicateDOI
	}

	p.DOI = &doi
	r.dois[doi] = id
	return nil
}

func (r *Repository) CountDOIsWithPrefix(ctx context.Context, prefix string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for doi := range r.dois {
		if strings.HasPrefix(doi, prefix) {
			count++
		}
	}
	return count, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func copyPreprint(p *preprint.Preprint) *preprint.Preprint {
	c := *p
	if p.DOI != nil {
		doi := *p.DOI
		c.DOI = &doi
	}
	return &c
}
