package store_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unihive/apperr"
	"unihive/models"
	"unihive/store"
)

func seed() []models.Listing {
	return []models.Listing{
		{ID: "1", Title: "Python Tutor", Tags: []string{"python"}, Status: models.StatusOpen, Price: models.NumberPrice(500)},
		{ID: "2", Title: "Data Entry", Tags: []string{"excel"}, Status: models.StatusCompleted, Price: models.TextPrice("100-200")},
	}
}

func viewIDs(s *store.Store) []string {
	var out []string
	for _, l := range s.View() {
		out = append(out, l.ID)
	}
	return out
}

func TestStore_LoadAndFilter(t *testing.T) {
	s := store.New()
	assert.Empty(t, s.View())

	s.Load(seed())
	assert.Equal(t, []string{"1", "2"}, viewIDs(s))

	c := models.DefaultCriteria()
	c.Status = []models.Status{models.StatusOpen}
	s.SetFilters(c)
	assert.Equal(t, []string{"1"}, viewIDs(s))

	s.ResetFilters()
	assert.Equal(t, []string{"1", "2"}, viewIDs(s))
}

func TestStore_SearchAndLocation(t *testing.T) {
	s := store.New()
	s.Load(seed())

	s.SetSearchTerm("data")
	assert.Equal(t, []string{"2"}, viewIDs(s))

	s.SetSearchTerm("")
	s.SetLocation("nowhere")
	assert.Empty(t, viewIDs(s))
}

func TestStore_InsertRecomputes(t *testing.T) {
	s := store.New()
	s.Load(seed())
	s.SetSearchTerm("tutor")

	s.Insert(models.Listing{ID: "3", Title: "Math tutor"})
	s.Insert(models.Listing{ID: "4", Title: "Couch"})
	assert.Equal(t, []string{"1", "3"}, viewIDs(s))
	assert.Len(t, s.Snapshot().Listings(), 4)
}

func TestStore_ReplaceMissingIsNotFound(t *testing.T) {
	s := store.New()
	s.Load(seed())

	err := s.Replace(models.Listing{ID: "nope", Title: "ghost"})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	assert.Len(t, s.Snapshot().Listings(), 2)
}

func TestStore_ReplaceRecomputes(t *testing.T) {
	s := store.New()
	s.Load(seed())
	c := models.DefaultCriteria()
	c.Status = []models.Status{models.StatusOpen}
	s.SetFilters(c)

	updated := seed()[1]
	updated.Status = models.StatusOpen
	require.NoError(t, s.Replace(updated))
	assert.Equal(t, []string{"1", "2"}, viewIDs(s))
}

func TestStore_RemoveThenFilter(t *testing.T) {
	s := store.New()
	s.Load(seed())

	s.Remove("2")
	assert.Equal(t, []string{"1"}, viewIDs(s))

	s.Remove("missing")
	assert.Equal(t, []string{"1"}, viewIDs(s))
}

func TestState_CommandsDoNotAlterPreviousSnapshots(t *testing.T) {
	before := store.NewState().Load(seed())
	after := before.Remove("1").SetSearchTerm("entry")

	assert.Len(t, before.Listings(), 2)
	assert.Len(t, before.View(), 2)
	assert.Len(t, after.View(), 1)

	replaced, err := before.Replace(models.Listing{ID: "1", Title: "changed"})
	require.NoError(t, err)
	assert.Equal(t, "Python Tutor", before.Listings()[0].Title)
	assert.Equal(t, "changed", replaced.Listings()[0].Title)
}

func TestState_LoadCopiesInput(t *testing.T) {
	in := seed()
	s := store.NewState().Load(in)
	in[0].Title = "mutated"
	assert.Equal(t, "Python Tutor", s.Listings()[0].Title)
}

func TestStore_ConcurrentWriters(t *testing.T) {
	s := store.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Insert(models.Listing{ID: string(rune('a' + i%26)), Title: "x"})
			_ = s.View()
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Snapshot().Listings(), 50)
}
