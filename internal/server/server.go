// Package server exposes the board over HTTP for a thin web client. Board
// mutations run under one mutex; flow re-entry surfaces as 409. Extraction
// calls run outside the lock so state polls and cancel stay responsive while
// a parse or refine is in flight.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pawmap/mapboard/internal/board"
	"github.com/pawmap/mapboard/internal/composer"
	"github.com/pawmap/mapboard/internal/model"
	"github.com/pawmap/mapboard/internal/tiles"
)

// Server serves the board API.
type Server struct {
	mu    sync.Mutex
	board *board.Board
	tiles *tiles.Proxy
}

// New creates a server around a board. tileProxy may be nil to disable the
// tile endpoint.
func New(b *board.Board, tileProxy *tiles.Proxy) *Server {
	return &Server{board: b, tiles: tileProxy}
}

// Router builds the HTTP routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/annotations", s.listAnnotations)
		r.Get("/markers/{category}", s.markersGeoJSON)
		r.Post("/layers/{category}/visibility", s.setLayerVisibility)
		r.Post("/map/click", s.mapClick)

		r.Route("/listings", func(r chi.Router) {
			r.Post("/", s.openListing)
			r.Get("/", s.listingState)
			r.Post("/text", s.setListingText)
			r.Post("/parse", s.parseListing)
			r.Post("/answers", s.answerQuestions)
			r.Post("/skip", s.skipQuestions)
			r.Post("/submit", s.submitListing)
			r.Delete("/", s.cancelListing)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Post("/", s.openReport)
			r.Post("/submit", s.submitReport)
			r.Delete("/", s.cancelReport)
		})
	})

	if s.tiles != nil {
		r.Handle("/tiles/*", http.StripPrefix("/tiles", s.tiles))
	}

	return r
}

// --- annotations and layers ---

type annotationView struct {
	ID          string           `json:"id"`
	Category    model.Category   `json:"category"`
	Coordinates model.Coordinate `json:"coordinates"`
	CreatedAt   time.Time        `json:"created_at"`
	Summary     string           `json:"summary"`
}

func (s *Server) listAnnotations(w http.ResponseWriter, r *http.Request) {
	category := model.Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	s.mu.Lock()
	matches := s.board.Search(category, r.URL.Query().Get("q"))
	s.mu.Unlock()

	views := make([]annotationView, 0, len(matches))
	for _, a := range matches {
		views = append(views, annotationView{
			ID:          a.ID,
			Category:    a.Category,
			Coordinates: a.Coordinates,
			CreatedAt:   a.CreatedAt,
			Summary:     a.Payload.SearchText(),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) markersGeoJSON(w http.ResponseWriter, r *http.Request) {
	category := model.Category(chi.URLParam(r, "category"))
	if !category.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	s.mu.Lock()
	data, err := s.board.Layers().GeoJSON(category)
	s.mu.Unlock()
	if err != nil {
		zap.L().Error("server: geojson render failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "marker rendering failed")
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

func (s *Server) setLayerVisibility(w http.ResponseWriter, r *http.Request) {
	category := model.Category(chi.URLParam(r, "category"))
	if !category.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	var req struct {
		Visible bool `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	err := s.board.Layers().SetLayerVisible(category, req.Visible)
	s.mu.Unlock()
	if err != nil {
		zap.L().Error("server: layer toggle failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "layer toggle failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) mapClick(w http.ResponseWriter, r *http.Request) {
	var coord model.Coordinate
	if err := json.NewDecoder(r.Body).Decode(&coord); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := coord.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.board.Surface().Click(coord)
	placed, ok := s.board.Placement().TempMarker()
	s.mu.Unlock()

	resp := map[string]any{"placed": ok}
	if ok {
		resp["coordinates"] = placed
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- listing compose flow ---

func (s *Server) openListing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type model.ExchangeType `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, "type must be offer or request")
		return
	}

	s.mu.Lock()
	err := s.board.OpenListing(req.Type)
	s.mu.Unlock()
	if err != nil {
		if eris.Is(err, board.ErrFlowActive) {
			writeError(w, http.StatusConflict, "a flow is already open")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not open listing")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type listingStateView struct {
	Phase     string                     `json:"phase"`
	RawText   string                     `json:"raw_text"`
	Parsed    model.ParsedListing        `json:"parsed"`
	Questions []model.ClarifyingQuestion `json:"questions,omitempty"`
	Banner    string                     `json:"banner,omitempty"`
	CanParse  bool                       `json:"can_parse"`
	CanSubmit bool                       `json:"can_submit"`
}

func (s *Server) listingState(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	c := s.board.Composer()
	view := listingStateView{
		Phase:     c.Phase().String(),
		RawText:   c.RawText(),
		Parsed:    c.Parsed(),
		Questions: c.Questions(),
		Banner:    c.Banner(),
		CanParse:  c.CanParse(),
		CanSubmit: c.CanSubmit(),
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) setListingText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string `json:"text"`
		Author   string `json:"author"`
		Location string `json:"location"`
		PhotoRef string `json:"photo_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	c := s.board.Composer()
	if c.Phase() != composer.Input {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "no listing being edited")
		return
	}
	c.SetText(req.Text)
	if req.Author != "" {
		c.SetAuthor(req.Author)
	}
	if req.Location != "" {
		c.SetLocationLabel(req.Location)
	}
	if req.PhotoRef != "" {
		c.SetPhotoRef(req.PhotoRef)
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) parseListing(w http.ResponseWriter, r *http.Request) {
	// The composer serializes its own state and drops the lock during the
	// extraction call, so this handler must not hold s.mu across Parse.
	if err := s.board.Composer().Parse(r.Context()); err != nil {
		writeError(w, http.StatusConflict, "parse not available")
		return
	}
	s.listingState(w, r)
}

func (s *Server) answerQuestions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	c := s.board.Composer()
	for field, value := range req.Answers {
		if err := c.Answer(field, value); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := c.Refine(r.Context()); err != nil {
		writeError(w, http.StatusConflict, "no questions pending")
		return
	}
	s.listingState(w, r)
}

func (s *Server) skipQuestions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.board.Composer().Skip()
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusConflict, "no questions to skip")
		return
	}
	s.listingState(w, r)
}

func (s *Server) submitListing(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ann, err := s.board.SubmitListing()
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusConflict, "submit not available")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          ann.ID,
		"coordinates": ann.Coordinates,
	})
}

func (s *Server) cancelListing(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.board.CancelListing()
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// --- lost pet reports ---

func (s *Server) openReport(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	err := s.board.OpenLostPetReport()
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusConflict, "a flow is already open")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) submitReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PetName     string              `json:"pet_name"`
		Species     model.Species       `json:"species"`
		Breed       string              `json:"breed"`
		Color       string              `json:"color"`
		Description string              `json:"description"`
		LastSeen    string              `json:"last_seen"`
		Contact     string              `json:"contact"`
		PhotoRef    string              `json:"photo_ref"`
		Status      model.LostPetStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	report := board.LostPetReport{
		PetName:     req.PetName,
		Species:     req.Species,
		Breed:       req.Breed,
		Color:       req.Color,
		Description: req.Description,
		LastSeen:    req.LastSeen,
		Contact:     req.Contact,
		PhotoRef:    req.PhotoRef,
		Status:      req.Status,
	}

	s.mu.Lock()
	if !s.board.CanSubmitReport(report) {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "report submit not available")
		return
	}
	ann, err := s.board.SubmitLostPetReport(report)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          ann.ID,
		"coordinates": ann.Coordinates,
	})
}

func (s *Server) cancelReport(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.board.CancelLostPetReport()
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
