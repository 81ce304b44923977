// Package placement captures one map coordinate for a pending annotation.
// It is a three-state machine (Idle, Placing, Placed) wrapped around the map
// surface's explicit arm/disarm click dispatch, so the only click that can
// place a pin is one that happens while this controller is armed.
package placement

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pawmap/mapboard/internal/mapview"
	"github.com/pawmap/mapboard/internal/model"
)

// State is the controller's interaction state.
type State int

const (
	Idle State = iota
	Placing
	Placed
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Placing:
		return "placing"
	case Placed:
		return "placed"
	}
	return "unknown"
}

// ErrNotIdle is returned when Start is called while a placement is underway.
var ErrNotIdle = eris.New("placement: already in progress")

// Controller owns the placement interaction.
type Controller struct {
	surface   *mapview.Surface
	handlerID mapview.HandlerID
	state     State
	coord     model.Coordinate
}

// New registers the controller's click handler on the surface (inert until
// Start arms it) and returns the controller in Idle.
func New(surface *mapview.Surface) *Controller {
	c := &Controller{surface: surface}
	c.handlerID = surface.OnClick(c.handleClick)
	return c
}

// State returns the current interaction state.
func (c *Controller) State() State {
	return c.state
}

// Start begins a placement: Idle → Placing, arming the surface's click
// handler. The caller shows the placement cursor/banner.
func (c *Controller) Start() error {
	if c.state != Idle {
		return ErrNotIdle
	}
	c.surface.Arm(c.handlerID)
	c.state = Placing
	return nil
}

// handleClick records the clicked coordinate: Placing → Placed. The surface
// only dispatches here while armed, and the coordinate is recorded exactly as
// delivered.
func (c *Controller) handleClick(coord model.Coordinate) {
	if c.state != Placing {
		return
	}
	c.surface.Disarm()
	c.coord = coord
	c.state = Placed
	zap.L().Debug("placement: pin placed",
		zap.Float64("lat", coord.Lat),
		zap.Float64("lng", coord.Lng),
	)
}

// Coordinate returns the placed coordinate. The second return is false until
// a click has landed.
func (c *Controller) Coordinate() (model.Coordinate, bool) {
	if c.state != Placed {
		return model.Coordinate{}, false
	}
	return c.coord, true
}

// TempMarker returns the temporary pin shown while Placed, distinct from the
// permanent layers.
func (c *Controller) TempMarker() (model.Coordinate, bool) {
	return c.Coordinate()
}

// Consume hands the placed coordinate to the submitting form and returns to
// Idle, removing the temporary marker.
func (c *Controller) Consume() (model.Coordinate, error) {
	if c.state != Placed {
		return model.Coordinate{}, eris.Errorf("placement: nothing placed (state %s)", c.state)
	}
	coord := c.coord
	c.reset()
	return coord, nil
}

// Cancel aborts the placement from either Placing or Placed, returning to
// Idle. No marker is left behind.
func (c *Controller) Cancel() {
	c.reset()
}

func (c *Controller) reset() {
	if c.state == Placing {
		c.surface.Disarm()
	}
	c.state = Idle
	c.coord = model.Coordinate{}
}
