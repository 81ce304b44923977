package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmap/mapboard/internal/model"
)

func exchangeAnnotation(id, title, raw string, createdAt time.Time) model.Annotation {
	return model.Annotation{
		ID:          id,
		Category:    model.CategoryExchange,
		Coordinates: model.Coordinate{Lat: 38.95, Lng: -92.33},
		CreatedAt:   createdAt,
		Payload: model.ExchangePayload{
			Type:     model.ExchangeOffer,
			Parsed:   model.ParsedListing{Title: title, Description: "desc", Category: model.ListingPetFood},
			RawInput: raw,
			Author:   "sam",
			Status:   model.ExchangeActive,
		},
	}
}

func shelterAnnotation(id, name string, createdAt time.Time) model.Annotation {
	return model.Annotation{
		ID:          id,
		Category:    model.CategoryShelter,
		Coordinates: model.Coordinate{Lat: 39.0, Lng: -92.0},
		CreatedAt:   createdAt,
		Payload:     model.ShelterPayload{Name: name, AvailableCount: 3},
	}
}

func TestMemoryAdd(t *testing.T) {
	t.Parallel()

	t.Run("duplicate id rejected", func(t *testing.T) {
		t.Parallel()
		s := NewMemory()
		now := time.Now()
		require.NoError(t, s.Add(exchangeAnnotation("a1", "Puppy Food", "puppy food", now)))
		err := s.Add(exchangeAnnotation("a1", "Other", "other", now))
		assert.ErrorIs(t, err, model.ErrDuplicateID)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("invalid annotation rejected", func(t *testing.T) {
		t.Parallel()
		s := NewMemory()
		a := exchangeAnnotation("a1", "Puppy Food", "puppy food", time.Now())
		a.Coordinates.Lat = 120
		assert.Error(t, s.Add(a))
		assert.Equal(t, 0, s.Len())
	})
}

func TestMemoryAll(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	now := time.Now()
	require.NoError(t, s.Add(exchangeAnnotation("e1", "Puppy Food", "puppy food", now)))
	require.NoError(t, s.Add(shelterAnnotation("s1", "Happy Tails", now)))
	require.NoError(t, s.Add(exchangeAnnotation("e2", "Cat Tree", "cat tree", now)))

	t.Run("insertion order preserved", func(t *testing.T) {
		t.Parallel()
		var ids []string
		for a := range s.All() {
			ids = append(ids, a.ID)
		}
		assert.Equal(t, []string{"e1", "s1", "e2"}, ids)
	})

	t.Run("category filter", func(t *testing.T) {
		t.Parallel()
		var ids []string
		for a := range s.All(model.CategoryExchange) {
			ids = append(ids, a.ID)
		}
		assert.Equal(t, []string{"e1", "e2"}, ids)
	})

	t.Run("sequence is restartable", func(t *testing.T) {
		t.Parallel()
		seq := s.All()
		first, second := 0, 0
		for range seq {
			first++
		}
		for range seq {
			second++
		}
		assert.Equal(t, first, second)
	})

	t.Run("early break stops iteration", func(t *testing.T) {
		t.Parallel()
		count := 0
		for range s.All() {
			count++
			break
		}
		assert.Equal(t, 1, count)
	})
}

func TestMemoryNewest(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Add(exchangeAnnotation("old", "Old", "old", base)))
	require.NoError(t, s.Add(exchangeAnnotation("new", "New", "new", base.Add(time.Hour))))
	require.NoError(t, s.Add(exchangeAnnotation("tie-a", "Tie A", "tie", base.Add(2*time.Hour))))
	require.NoError(t, s.Add(exchangeAnnotation("tie-b", "Tie B", "tie", base.Add(2*time.Hour))))

	got := s.Newest(model.CategoryExchange)
	require.Len(t, got, 4)
	// Descending by CreatedAt; equal timestamps keep insertion order (stable).
	assert.Equal(t, "tie-a", got[0].ID)
	assert.Equal(t, "tie-b", got[1].ID)
	assert.Equal(t, "new", got[2].ID)
	assert.Equal(t, "old", got[3].ID)
}

func TestMemoryFilter(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	now := time.Now()
	require.NoError(t, s.Add(exchangeAnnotation("e1", "Puppy Food — 10lb", "Half bag of puppy food", now)))
	require.NoError(t, s.Add(exchangeAnnotation("e2", "Cat Tree", "gently used cat tree", now)))
	require.NoError(t, s.Add(shelterAnnotation("s1", "Puppy Haven Shelter", now)))

	t.Run("case-insensitive substring", func(t *testing.T) {
		t.Parallel()
		got := s.Filter(Query{Text: "PUPPY"})
		ids := idsOf(got)
		assert.Equal(t, []string{"e1", "s1"}, ids)
	})

	t.Run("category and text combined", func(t *testing.T) {
		t.Parallel()
		got := s.Filter(Query{Category: model.CategoryExchange, Text: "puppy"})
		assert.Equal(t, []string{"e1"}, idsOf(got))
	})

	t.Run("matches raw input text", func(t *testing.T) {
		t.Parallel()
		got := s.Filter(Query{Text: "gently used"})
		assert.Equal(t, []string{"e2"}, idsOf(got))
	})

	t.Run("zero query matches everything", func(t *testing.T) {
		t.Parallel()
		assert.Len(t, s.Filter(Query{}), 3)
	})
}

// TestMemoryFilterMonotonic checks the narrowing property: extending the
// search text or adding a category constraint never yields results outside
// the broader query's result set.
func TestMemoryFilterMonotonic(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	now := time.Now()
	require.NoError(t, s.Add(exchangeAnnotation("e1", "Puppy Food — 10lb", "half bag of puppy food", now)))
	require.NoError(t, s.Add(exchangeAnnotation("e2", "Puppy Pads", "unused puppy pads", now)))
	require.NoError(t, s.Add(exchangeAnnotation("e3", "Cat Food", "cat food cans", now)))
	require.NoError(t, s.Add(shelterAnnotation("s1", "Puppy Haven Shelter", now)))

	steps := []Query{
		{Text: ""},
		{Text: "pup"},
		{Text: "puppy"},
		{Text: "puppy foo"},
		{Text: "puppy food"},
		{Category: model.CategoryExchange, Text: "puppy food"},
	}

	prev := toSet(s.Filter(steps[0]))
	for _, q := range steps[1:] {
		cur := toSet(s.Filter(q))
		for id := range cur {
			assert.Contains(t, prev, id, "query %+v returned %s absent from broader result", q, id)
		}
		prev = cur
	}
}

func idsOf(annotations []model.Annotation) []string {
	ids := make([]string, 0, len(annotations))
	for _, a := range annotations {
		ids = append(ids, a.ID)
	}
	return ids
}

func toSet(annotations []model.Annotation) map[string]bool {
	set := make(map[string]bool, len(annotations))
	for _, a := range annotations {
		set[a.ID] = true
	}
	return set
}
