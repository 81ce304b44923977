// Package board is the session facade: one board wires the annotation store,
// map surface, layer controller, placement controller, and listing composer
// together and enforces that at most one compose or report flow is open at a
// time.
package board

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pawmap/mapboard/internal/composer"
	"github.com/pawmap/mapboard/internal/layers"
	"github.com/pawmap/mapboard/internal/mapview"
	"github.com/pawmap/mapboard/internal/model"
	"github.com/pawmap/mapboard/internal/placement"
	"github.com/pawmap/mapboard/internal/store"
	"github.com/pawmap/mapboard/pkg/extraction"
	"github.com/pawmap/mapboard/pkg/petdata"
)

// ErrFlowActive is returned when a new listing or report flow is opened
// while one is already in progress.
var ErrFlowActive = eris.New("board: a flow is already open")

// seedConcurrency caps concurrent pet-count lookups while seeding shelters.
const seedConcurrency = 8

// Board owns one user session's state.
type Board struct {
	store     *store.Memory
	surface   *mapview.Surface
	layers    *layers.Controller
	placement *placement.Controller
	composer  *composer.Controller
	pets      petdata.Client

	reportOpen bool
}

// New assembles a board around the given collaborators. pets may be nil when
// shelter seeding is not used.
func New(svc extraction.Service, pets petdata.Client, center model.Coordinate, zoom float64) *Board {
	st := store.NewMemory()
	surface := mapview.New(center, zoom)
	pl := placement.New(surface)
	return &Board{
		store:     st,
		surface:   surface,
		layers:    layers.NewController(st, surface),
		placement: pl,
		composer:  composer.New(svc, st, pl),
		pets:      pets,
	}
}

// Store exposes the annotation store for queries.
func (b *Board) Store() *store.Memory { return b.store }

// Surface exposes the map surface.
func (b *Board) Surface() *mapview.Surface { return b.surface }

// Layers exposes the layer controller.
func (b *Board) Layers() *layers.Controller { return b.layers }

// Placement exposes the placement controller.
func (b *Board) Placement() *placement.Controller { return b.placement }

// Composer exposes the listing composer.
func (b *Board) Composer() *composer.Controller { return b.composer }

// OpenListing starts a new exchange listing flow: the composer enters Input
// and the placement controller arms for a map click.
func (b *Board) OpenListing(postType model.ExchangeType) error {
	if b.reportOpen {
		return ErrFlowActive
	}
	if err := b.composer.Start(postType); err != nil {
		if eris.Is(err, composer.ErrFlowActive) {
			return ErrFlowActive
		}
		return err
	}
	if err := b.placement.Start(); err != nil {
		b.composer.Cancel()
		return eris.Wrap(err, "board: open listing")
	}
	return nil
}

// SubmitListing commits the composed listing and rebuilds the exchange layer.
func (b *Board) SubmitListing() (*model.Annotation, error) {
	ann, err := b.composer.Submit()
	if err != nil {
		return nil, err
	}
	if err := b.layers.Recompute(model.CategoryExchange); err != nil {
		zap.L().Error("board: marker rebuild failed", zap.Error(err))
	}
	b.surface.FlyTo(ann.Coordinates, b.surface.Camera().Zoom)
	return ann, nil
}

// CancelListing aborts the compose flow and removes any temporary marker.
func (b *Board) CancelListing() {
	b.composer.Cancel()
}

// LostPetReport is the form a user fills for a lost or found pet.
type LostPetReport struct {
	PetName     string
	Species     model.Species
	Breed       string
	Color       string
	Description string
	LastSeen    string
	Contact     string
	PhotoRef    string
	Status      model.LostPetStatus
}

// OpenLostPetReport starts a lost/found pet report flow by arming placement.
func (b *Board) OpenLostPetReport() error {
	if b.reportOpen || b.composer.Phase() != composer.Idle {
		return ErrFlowActive
	}
	if err := b.placement.Start(); err != nil {
		return ErrFlowActive
	}
	b.reportOpen = true
	return nil
}

// CanSubmitReport reports whether the report submit action is enabled: the
// required fields are set and a coordinate has been placed.
func (b *Board) CanSubmitReport(r LostPetReport) bool {
	if !b.reportOpen || r.PetName == "" || r.Description == "" || r.Contact == "" {
		return false
	}
	_, placed := b.placement.Coordinate()
	return placed
}

// SubmitLostPetReport commits the report as a lostPet annotation and rebuilds
// its layer.
func (b *Board) SubmitLostPetReport(r LostPetReport) (*model.Annotation, error) {
	if !b.CanSubmitReport(r) {
		return nil, eris.New("board: report submit not available")
	}

	coord, err := b.placement.Consume()
	if err != nil {
		return nil, eris.Wrap(err, "board: submit report")
	}

	ann := model.Annotation{
		ID:          uuid.NewString(),
		Category:    model.CategoryLostPet,
		Coordinates: coord,
		CreatedAt:   time.Now(),
		Payload: model.LostPetPayload{
			PetName:     r.PetName,
			Species:     r.Species,
			Breed:       r.Breed,
			Color:       r.Color,
			Description: r.Description,
			LastSeen:    r.LastSeen,
			Contact:     r.Contact,
			PhotoRef:    r.PhotoRef,
			Status:      r.Status,
		},
	}

	if err := b.store.Add(ann); err != nil {
		return nil, eris.Wrap(err, "board: submit report")
	}

	b.reportOpen = false
	if err := b.layers.Recompute(model.CategoryLostPet); err != nil {
		zap.L().Error("board: marker rebuild failed", zap.Error(err))
	}
	b.surface.FlyTo(coord, b.surface.Camera().Zoom)

	zap.L().Info("board: lost pet report submitted",
		zap.String("id", ann.ID),
		zap.String("pet", r.PetName),
		zap.String("status", string(r.Status)),
	)
	return &ann, nil
}

// CancelLostPetReport aborts the report flow.
func (b *Board) CancelLostPetReport() {
	b.placement.Cancel()
	b.reportOpen = false
}

// SeedShelters loads shelters from the pet data API into the shelter layer.
// Shelters reporting no availability are looked up concurrently for a pet
// count. Individual lookup failures degrade to a zero count.
func (b *Board) SeedShelters(ctx context.Context) (int, error) {
	if b.pets == nil {
		return 0, eris.New("board: no pet data client configured")
	}

	shelters, err := b.pets.ListShelters(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "board: seed shelters")
	}

	counts := make([]int, len(shelters))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)
	for i, sh := range shelters {
		counts[i] = sh.AvailableCount
		if sh.AvailableCount > 0 {
			continue
		}
		g.Go(func() error {
			pets, petsErr := b.pets.ListPets(gCtx, sh.ID)
			if petsErr != nil {
				zap.L().Warn("board: pet count lookup failed",
					zap.String("shelter", sh.ID),
					zap.Error(petsErr),
				)
				return nil
			}
			counts[i] = len(pets)
			return nil
		})
	}
	_ = g.Wait()

	added := 0
	for i, sh := range shelters {
		coord := model.Coordinate{Lat: sh.Latitude, Lng: sh.Longitude}
		if err := coord.Validate(); err != nil {
			zap.L().Warn("board: skipping shelter with bad coordinates",
				zap.String("shelter", sh.ID),
				zap.Error(err),
			)
			continue
		}
		ann := model.Annotation{
			ID:          "shelter-" + sh.ID,
			Category:    model.CategoryShelter,
			Coordinates: coord,
			CreatedAt:   time.Now(),
			Payload: model.ShelterPayload{
				Name:           sh.Name,
				AvailableCount: counts[i],
				Website:        sh.Website,
				LocationLabel:  sh.Address,
			},
		}
		if err := b.store.Add(ann); err != nil {
			if eris.Is(err, model.ErrDuplicateID) {
				continue
			}
			return added, eris.Wrap(err, "board: seed shelters")
		}
		added++
	}

	if err := b.layers.Recompute(model.CategoryShelter); err != nil {
		zap.L().Error("board: marker rebuild failed", zap.Error(err))
	}
	zap.L().Info("board: shelters seeded", zap.Int("count", added))
	return added, nil
}

// Search returns annotations matching a category and free-text query.
func (b *Board) Search(category model.Category, text string) []model.Annotation {
	return b.store.Filter(store.Query{Category: category, Text: text})
}

// FlyTo moves the camera to an annotation.
func (b *Board) FlyTo(id string) error {
	ann, ok := b.store.Get(id)
	if !ok {
		return eris.Errorf("board: no annotation %q", id)
	}
	b.surface.FlyTo(ann.Coordinates, b.surface.Camera().Zoom)
	return nil
}
