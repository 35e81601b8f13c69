package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-preprint/pkg/preprint"
	"github.com/tendant/simple-preprint/pkg/preprint/repo/memory"
)

func newPreprint(title, abstract, category string, uploadedAt time.Time) *preprint.Preprint {
	return &preprint.Preprint{
		Title:       title,
		Abstract:    abstract,
		Category:    category,
		FileLocator: "20250101000000_a.pdf",
		UploadedAt:  uploadedAt,
		Version:     preprint.InitialVersion,
		Status:      string(preprint.StatusSubmitted),
	}
}

func TestMemoryRepository_PreprintOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	now := time.Date(2025, time.November, 5, 12, 0, 0, 0, time.UTC)

	t.Run("CreatePreprint_AssignsIDs", func(t *testing.T) {
		first := newPreprint("First", "one", "cs", now)
		second := newPreprint("Second", "two", "cs", now)
		require.NoError(t, repo.CreatePreprint(ctx, first))
		require.NoError(t, repo.CreatePreprint(ctx, second))
		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, int64(2), second.ID)
	})

	t.Run("CreatePreprint_RejectsUnknownStatus", func(t *testing.T) {
		for _, status := range []string{"", "published"} {
			p := newPreprint("Bad", "status", "cs", now)
			p.Status = status
			err := repo.CreatePreprint(ctx, p)
			assert.ErrorIs(t, err, preprint.ErrValidation, status)

			var validationErr *preprint.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, []string{"status"}, validationErr.Fields)
		}
		_, err := repo.GetPreprint(ctx, 3)
		assert.ErrorIs(t, err, preprint.ErrPreprintNotFound, "rejected records must not consume ids")
	})

	t.Run("GetPreprint", func(t *testing.T) {
		p, err := repo.GetPreprint(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "First", p.Title)

		// Mutating the copy must not leak into the store
		p.Title = "changed"
		again, err := repo.GetPreprint(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "First", again.Title)
	})

	t.Run("GetPreprint_NotFound", func(t *testing.T) {
		p, err := repo.GetPreprint(ctx, 999)
		assert.Nil(t, p)
		assert.Equal(t, preprint.ErrPreprintNotFound, err)
	})

	t.Run("SetDOI", func(t *testing.T) {
		require.NoError(t, repo.SetDOI(ctx, 1, "10.55555/rvu-preprints.202511-0001"))

		p, err := repo.GetPreprint(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, p.DOI)
		assert.Equal(t, "10.55555/rvu-preprints.202511-0001", *p.DOI)
	})

	t.Run("SetDOI_AlreadyAssigned", func(t *testing.T) {
		err := repo.SetDOI(ctx, 1, "10.55555/rvu-preprints.202511-0009")
		assert.ErrorIs(t, err, preprint.ErrDOIAlreadyAssigned)
	})

	t.Run("SetDOI_Duplicate", func(t *testing.T) {
		err := repo.SetDOI(ctx, 2, "10.55555/rvu-preprints.202511-0001")
		assert.ErrorIs(t, err, preprint.ErrDuplicateDOI)
		assert.ErrorIs(t, err, preprint.ErrPersistenceFailure)
	})

	t.Run("SetDOI_NotFound", func(t *testing.T) {
		err := repo.SetDOI(ctx, 999, "10.55555/rvu-preprints.202511-0002")
		assert.ErrorIs(t, err, preprint.ErrPreprintNotFound)
	})

	t.Run("CountDOIsWithPrefix", func(t *testing.T) {
		count, err := repo.CountDOIsWithPrefix(ctx, "10.55555/rvu-preprints.202511-")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		count, err = repo.CountDOIsWithPrefix(ctx, "10.55555/rvu-preprints.202512-")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestMemoryRepository_ListPreprints(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	base := time.Date(2025, time.November, 5, 12, 0, 0, 0, time.UTC)

	fixtures := []*preprint.Preprint{
		newPreprint("Neural Networks Overview", "Deep learning basics", "cs", base),
		newPreprint("Protein Folding", "Applying NEURAL methods", "bio", base.Add(time.Hour)),
		newPreprint("Graph Algorithms Survey", "A survey of graph traversal", "CS", base.Add(2*time.Hour)),
		newPreprint("Same Time Later Insert", "tie", "cs", base.Add(2*time.Hour)),
	}
	for _, p := range fixtures {
		require.NoError(t, repo.CreatePreprint(ctx, p))
	}

	titles := func(ps []*preprint.Preprint) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.Title)
		}
		return out
	}

	t.Run("NoFilter_MostRecentFirst", func(t *testing.T) {
		result, err := repo.ListPreprints(ctx, preprint.ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Same Time Later Insert",
			"Graph Algorithms Survey",
			"Protein Folding",
			"Neural Networks Overview",
		}, titles(result))
	})

	t.Run("Query_TitleOrAbstract", func(t *testing.T) {
		result, err := repo.ListPreprints(ctx, preprint.ListFilter{Query: "neural"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Protein Folding", "Neural Networks Overview"}, titles(result))
	})

	t.Run("Category_CaseInsensitive", func(t *testing.T) {
		result, err := repo.ListPreprints(ctx, preprint.ListFilter{Category: "cs"})
		require.NoError(t, err)
		assert.Len(t, result, 3)
	})

	t.Run("QueryAndCategory_Intersection", func(t *testing.T) {
		result, err := repo.ListPreprints(ctx, preprint.ListFilter{Query: "neural", Category: "cs"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Neural Networks Overview"}, titles(result))
	})

	t.Run("NoMatch_Empty", func(t *testing.T) {
		result, err := repo.ListPreprints(ctx, preprint.ListFilter{Query: "quantum"})
		require.NoError(t, err)
		assert.NotNil(t, result)
		assert.Empty(t, result)
	})
}
