// Package layers keeps rendered markers consistent with the annotation store
// and the active-layer filter. Marker sets are always rebuilt whole from the
// store, never patched incrementally: the visible marker set for a category
// is exactly the marker projection of the store's contents, or empty when the
// layer is hidden.
package layers

import (
	"go.uber.org/zap"

	"github.com/pawmap/mapboard/internal/mapview"
	"github.com/pawmap/mapboard/internal/model"
	"github.com/pawmap/mapboard/internal/store"
)

// Controller derives one marker collection per category.
type Controller struct {
	store   *store.Memory
	surface *mapview.Surface
	markers map[model.Category][]Marker
}

// NewController creates a Controller over the given store and surface. All
// layers start empty; call RecomputeAll after seeding.
func NewController(s *store.Memory, surface *mapview.Surface) *Controller {
	return &Controller{
		store:   s,
		surface: surface,
		markers: make(map[model.Category][]Marker),
	}
}

// Recompute rebuilds the marker collection for one category from scratch.
// Called whenever the store's contents for that category change or the
// layer's visibility is toggled.
func (c *Controller) Recompute(category model.Category) error {
	if !c.surface.LayerVisible(category) {
		c.markers[category] = nil
		return nil
	}

	var rebuilt []Marker
	for a := range c.store.All(category) {
		m, err := ToMarker(a)
		if err != nil {
			return err
		}
		rebuilt = append(rebuilt, m)
	}
	c.markers[category] = rebuilt

	zap.L().Debug("layers: recomputed",
		zap.String("category", string(category)),
		zap.Int("markers", len(rebuilt)),
	)
	return nil
}

// RecomputeAll rebuilds every category's markers.
func (c *Controller) RecomputeAll() error {
	for _, category := range model.Categories {
		if err := c.Recompute(category); err != nil {
			return err
		}
	}
	return nil
}

// Markers returns the current marker collection for a category. The returned
// slice is a copy; mutating it does not affect the controller.
func (c *Controller) Markers(category model.Category) []Marker {
	cur := c.markers[category]
	out := make([]Marker, len(cur))
	copy(out, cur)
	return out
}

// SetLayerVisible toggles a layer on the surface and recomputes it.
func (c *Controller) SetLayerVisible(category model.Category, visible bool) error {
	c.surface.SetLayerVisible(category, visible)
	return c.Recompute(category)
}
