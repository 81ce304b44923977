package petdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmap/mapboard/internal/resilience"
)

func noRetry() resilience.Config {
	return resilience.Config{MaxAttempts: 1, InitialBackoff: time.Millisecond}
}

func TestListShelters(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shelters", r.URL.Path)
		json.NewEncoder(w).Encode([]Shelter{
			{ID: "s1", Name: "Paws of Boone", Latitude: 38.95, Longitude: -92.33, AvailableCount: 4},
			{ID: "s2", Name: "Second Chance", Latitude: 38.91, Longitude: -92.30, AvailableCount: 12},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(noRetry()))
	shelters, err := c.ListShelters(context.Background())
	require.NoError(t, err)
	require.Len(t, shelters, 2)
	assert.Equal(t, "Paws of Boone", shelters[0].Name)
	assert.Equal(t, 38.95, shelters[0].Latitude)
}

func TestListPetsQuery(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pets", r.URL.Path)
		assert.Equal(t, "s1", r.URL.Query().Get("shelter_id"))
		json.NewEncoder(w).Encode([]Pet{
			{ID: "p1", ShelterID: "s1", Name: "Biscuit", Species: "dog", Breed: "beagle mix"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(noRetry()))
	pets, err := c.ListPets(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, pets, 1)
	assert.Equal(t, "Biscuit", pets[0].Name)
}

func TestRetriesServerError(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode([]Shelter{{ID: "s1", Name: "n"}})
	}))
	defer srv.Close()

	cfg := noRetry()
	cfg.MaxAttempts = 2
	c := NewClient(srv.URL, WithRetry(cfg))

	shelters, err := c.ListShelters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, shelters, 1)
}

func TestClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := noRetry()
	cfg.MaxAttempts = 3
	c := NewClient(srv.URL, WithRetry(cfg))

	_, err := c.ListPets(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRateLimiterHonorsContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Shelter{})
	}))
	defer srv.Close()

	// Burst of 1 at a very low rate: the second call must wait, and a
	// cancelled context aborts that wait.
	c := NewClient(srv.URL, WithRateLimit(0.001), WithRetry(noRetry()))

	_, err := c.ListShelters(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.ListShelters(ctx)
	require.Error(t, err)
}
