package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/pawmap/mapboard/internal/model"
	"github.com/pawmap/mapboard/internal/store"
)

func seededStore(t *testing.T) *store.Memory {
	t.Helper()
	st := store.NewMemory()

	require.NoError(t, st.Add(model.Annotation{
		ID:          "sh-1",
		Category:    model.CategoryShelter,
		Coordinates: model.Coordinate{Lat: 38.95, Lng: -92.33},
		CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Payload:     model.ShelterPayload{Name: "Paws of Boone", AvailableCount: 4},
	}))
	require.NoError(t, st.Add(model.Annotation{
		ID:          "ex-1",
		Category:    model.CategoryExchange,
		Coordinates: model.Coordinate{Lat: 38.96, Lng: -92.34},
		CreatedAt:   time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
		Payload: model.ExchangePayload{
			Type:   model.ExchangeOffer,
			Status: model.ExchangeActive,
			Parsed: model.ParsedListing{
				Title:       "Puppy Food — 10lb",
				Category:    model.ListingPetFood,
				Quantity:    "10lbs",
				Description: "Half bag of puppy food",
			},
			RawInput: "Half bag of puppy food, ~10lbs, expires 2027",
			Author:   "casey",
		},
	}))
	require.NoError(t, st.Add(model.Annotation{
		ID:          "ex-2",
		Category:    model.CategoryExchange,
		Coordinates: model.Coordinate{Lat: 38.97, Lng: -92.35},
		CreatedAt:   time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC),
		Payload: model.ExchangePayload{
			Type:   model.ExchangeRequest,
			Status: model.ExchangeActive,
			Parsed: model.ParsedListing{
				Title:       "Dog Crate",
				Category:    model.ListingSuppliesGear,
				Description: "Looking for a medium crate",
			},
			RawInput: "need a medium dog crate",
		},
	}))
	return st
}

func TestShapefileRoundTrip(t *testing.T) {
	t.Parallel()

	st := seededStore(t)
	path := filepath.Join(t.TempDir(), "annotations.shp")

	n, err := Shapefile(st, path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close()

	var ids []string
	var points []*shp.Point
	for r.Next() {
		_, shape := r.Shape()
		pt, ok := shape.(*shp.Point)
		require.True(t, ok)
		points = append(points, pt)
		ids = append(ids, r.Attribute(0))
	}
	require.Len(t, points, 3)
	assert.Equal(t, []string{"sh-1", "ex-1", "ex-2"}, ids, "insertion order")
	assert.Equal(t, -92.33, points[0].X, "X is longitude")
	assert.Equal(t, 38.95, points[0].Y, "Y is latitude")
}

func TestShapefileCategoryFilter(t *testing.T) {
	t.Parallel()

	st := seededStore(t)
	path := filepath.Join(t.TempDir(), "exchange.shp")

	n, err := Shapefile(st, path, model.CategoryExchange)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestShapefilePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "out.shp", ShapefilePath("out"))
	assert.Equal(t, "out.shp", ShapefilePath("out.shp"))
}

func TestListingsXLSX(t *testing.T) {
	t.Parallel()

	st := seededStore(t)
	path := filepath.Join(t.TempDir(), "listings.xlsx")

	n, err := ListingsXLSX(st, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet := f.Sheets[0]
	assert.Equal(t, "Listings", sheet.Name)

	require.Len(t, sheet.Rows, 3, "header plus two listings")
	assert.Equal(t, "ID", sheet.Rows[0].Cells[0].Value)

	// Newest first.
	assert.Equal(t, "ex-2", sheet.Rows[1].Cells[0].Value)
	assert.Equal(t, "Dog Crate", sheet.Rows[1].Cells[3].Value)
	assert.Equal(t, "ex-1", sheet.Rows[2].Cells[0].Value)
	assert.Equal(t, "Puppy Food — 10lb", sheet.Rows[2].Cells[3].Value)
	assert.Equal(t, "38.96", sheet.Rows[2].Cells[13].Value)
}
