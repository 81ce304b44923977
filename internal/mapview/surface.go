// Package mapview owns the map camera and the clickable viewport. The tile
// backdrop behind it is opaque imagery served by internal/tiles; nothing here
// inspects tile content.
package mapview

import (
	"go.uber.org/zap"

	"github.com/pawmap/mapboard/internal/model"
)

// ClickHandler receives the coordinate of a map click.
type ClickHandler func(model.Coordinate)

// HandlerID identifies a registered click handler.
type HandlerID int

// noHandler is the zero HandlerID; nothing is armed.
const noHandler HandlerID = 0

// Camera is the viewport state: center coordinate and zoom level.
type Camera struct {
	Center model.Coordinate
	Zoom   float64
}

// Surface owns the camera and click dispatch. Registering a handler does not
// make it act: a handler fires only while explicitly armed, so a handler left
// behind by a closed form can never swallow a click.
//
// Like the rest of the board, a Surface is driven from a single goroutine.
type Surface struct {
	camera   Camera
	handlers map[HandlerID]ClickHandler
	nextID   HandlerID
	armed    HandlerID
	hidden   map[model.Category]bool
}

// New creates a Surface with the given initial camera.
func New(center model.Coordinate, zoom float64) *Surface {
	return &Surface{
		camera:   Camera{Center: center, Zoom: zoom},
		handlers: make(map[HandlerID]ClickHandler),
		hidden:   make(map[model.Category]bool),
	}
}

// Camera returns the current viewport state.
func (s *Surface) Camera() Camera {
	return s.camera
}

// OnClick registers a click handler and returns its ID. The handler stays
// inert until Arm is called with that ID.
func (s *Surface) OnClick(h ClickHandler) HandlerID {
	s.nextID++
	id := s.nextID
	s.handlers[id] = h
	return id
}

// RemoveHandler unregisters a handler, disarming it first if needed.
func (s *Surface) RemoveHandler(id HandlerID) {
	if s.armed == id {
		s.armed = noHandler
	}
	delete(s.handlers, id)
}

// Arm makes the given handler the one that acts on clicks. Only one handler
// is armed at a time; arming replaces any previous arming.
func (s *Surface) Arm(id HandlerID) bool {
	if _, ok := s.handlers[id]; !ok {
		return false
	}
	s.armed = id
	return true
}

// Disarm clears the armed handler. Clicks are ignored until the next Arm.
func (s *Surface) Disarm() {
	s.armed = noHandler
}

// Armed reports whether any handler is currently armed.
func (s *Surface) Armed() bool {
	return s.armed != noHandler
}

// Click dispatches a viewport click to the armed handler, if any. The
// coordinate is passed through untouched.
func (s *Surface) Click(c model.Coordinate) {
	if s.armed == noHandler {
		return
	}
	h, ok := s.handlers[s.armed]
	if !ok {
		return
	}
	h(c)
}

// FlyTo centers the camera on a coordinate at the given zoom. The animation
// itself is a client rendering concern; once FlyTo returns, the camera center
// equals the requested coordinate.
func (s *Surface) FlyTo(c model.Coordinate, zoom float64) {
	s.camera = Camera{Center: c, Zoom: zoom}
	zap.L().Debug("mapview: fly to",
		zap.Float64("lat", c.Lat),
		zap.Float64("lng", c.Lng),
		zap.Float64("zoom", zoom),
	)
}

// SetLayerVisible toggles a category's markers without touching the camera or
// other layers.
func (s *Surface) SetLayerVisible(category model.Category, visible bool) {
	if visible {
		delete(s.hidden, category)
		return
	}
	s.hidden[category] = true
}

// LayerVisible reports whether a category's markers are shown. Layers start
// visible.
func (s *Surface) LayerVisible(category model.Category) bool {
	return !s.hidden[category]
}
