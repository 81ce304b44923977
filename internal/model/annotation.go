package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Category identifies which map layer an annotation belongs to. The rendering
// layer is a pure function of Category: one annotation, one layer.
type Category string

const (
	CategoryShelter  Category = "shelter"
	CategoryLostPet  Category = "lostPet"
	CategoryExchange Category = "exchange"
)

// Categories lists every valid category. Marker projection and layer
// bookkeeping iterate this closed set; adding a category here without
// extending ToMarker is surfaced as an error, not a silently missing icon.
var Categories = []Category{CategoryShelter, CategoryLostPet, CategoryExchange}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryShelter, CategoryLostPet, CategoryExchange:
		return true
	}
	return false
}

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Validate checks that both components are finite and within range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return &ValidationError{Field: "coordinates", Reason: "latitude and longitude must be finite"}
	}
	if c.Lat < -90 || c.Lat > 90 {
		return &ValidationError{Field: "coordinates", Reason: fmt.Sprintf("latitude %v out of range [-90,90]", c.Lat)}
	}
	if c.Lng < -180 || c.Lng > 180 {
		return &ValidationError{Field: "coordinates", Reason: fmt.Sprintf("longitude %v out of range [-180,180]", c.Lng)}
	}
	return nil
}

// Payload carries the category-specific fields of an annotation. Dispatch is
// over the concrete payload types, never over string keys.
type Payload interface {
	// Category returns the layer this payload renders on.
	Category() Category

	// SearchText returns the text the store's free-text filter matches
	// against.
	SearchText() string

	// Validate checks the payload's own invariants.
	Validate() error
}

// Annotation is a single geotagged record shown on the map.
type Annotation struct {
	ID          string     `json:"id"`
	Category    Category   `json:"category"`
	Coordinates Coordinate `json:"coordinates"`
	CreatedAt   time.Time  `json:"created_at"`
	Payload     Payload    `json:"payload"`
}

// Validate checks the commit-time invariants: valid category, in-range
// coordinates, a payload matching the category.
func (a Annotation) Validate() error {
	if a.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if !a.Category.Valid() {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", a.Category)}
	}
	if err := a.Coordinates.Validate(); err != nil {
		return err
	}
	if a.Payload == nil {
		return &ValidationError{Field: "payload", Reason: "must not be nil"}
	}
	if a.Payload.Category() != a.Category {
		return &ValidationError{
			Field:  "payload",
			Reason: fmt.Sprintf("payload category %q does not match annotation category %q", a.Payload.Category(), a.Category),
		}
	}
	return a.Payload.Validate()
}

// ShelterPayload describes a shelter pin seeded from the pet data API.
type ShelterPayload struct {
	Name           string `json:"name"`
	AvailableCount int    `json:"available_count"`
	Website        string `json:"website,omitempty"`
	LocationLabel  string `json:"location_label,omitempty"`
}

func (p ShelterPayload) Category() Category { return CategoryShelter }

func (p ShelterPayload) SearchText() string {
	return strings.Join([]string{p.Name, p.LocationLabel}, " ")
}

func (p ShelterPayload) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.AvailableCount < 0 {
		return &ValidationError{Field: "available_count", Reason: "must not be negative"}
	}
	return nil
}

// Species is the closed set of lost/found report species.
type Species string

const (
	SpeciesDog   Species = "dog"
	SpeciesCat   Species = "cat"
	SpeciesOther Species = "other"
)

// LostPetStatus distinguishes a missing-pet report from a found-pet report.
type LostPetStatus string

const (
	StatusLost  LostPetStatus = "lost"
	StatusFound LostPetStatus = "found"
)

// LostPetPayload describes a lost or found pet report.
type LostPetPayload struct {
	PetName     string        `json:"pet_name"`
	Species     Species       `json:"species"`
	Breed       string        `json:"breed,omitempty"`
	Color       string        `json:"color"`
	Description string        `json:"description"`
	LastSeen    string        `json:"last_seen"`
	Contact     string        `json:"contact"`
	PhotoRef    string        `json:"photo_ref,omitempty"`
	Status      LostPetStatus `json:"status"`
}

func (p LostPetPayload) Category() Category { return CategoryLostPet }

func (p LostPetPayload) SearchText() string {
	return strings.Join([]string{p.PetName, p.Breed, p.Color, p.Description, p.LastSeen}, " ")
}

func (p LostPetPayload) Validate() error {
	if p.PetName == "" {
		return &ValidationError{Field: "pet_name", Reason: "must not be empty"}
	}
	switch p.Species {
	case SpeciesDog, SpeciesCat, SpeciesOther:
	default:
		return &ValidationError{Field: "species", Reason: fmt.Sprintf("unknown species %q", p.Species)}
	}
	switch p.Status {
	case StatusLost, StatusFound:
	default:
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", p.Status)}
	}
	if p.Description == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if p.Contact == "" {
		return &ValidationError{Field: "contact", Reason: "must not be empty"}
	}
	return nil
}

// ExchangeType says whether a listing gives away or asks for an item.
type ExchangeType string

const (
	ExchangeOffer   ExchangeType = "offer"
	ExchangeRequest ExchangeType = "request"
)

// Valid reports whether t is offer or request.
func (t ExchangeType) Valid() bool {
	return t == ExchangeOffer || t == ExchangeRequest
}

// ExchangeStatus tracks a listing through its visible lifecycle.
type ExchangeStatus string

const (
	ExchangeActive    ExchangeStatus = "active"
	ExchangeClaimed   ExchangeStatus = "claimed"
	ExchangeFulfilled ExchangeStatus = "fulfilled"
)

// ExchangePayload is a give-or-request item listing backed by a parsed
// structured record plus the verbatim text it was extracted from.
type ExchangePayload struct {
	Type          ExchangeType   `json:"type"`
	Parsed        ParsedListing  `json:"parsed"`
	RawInput      string         `json:"raw_input"`
	Author        string         `json:"author"`
	LocationLabel string         `json:"location_label,omitempty"`
	Status        ExchangeStatus `json:"status"`
	PhotoRef      string         `json:"photo_ref,omitempty"`
}

func (p ExchangePayload) Category() Category { return CategoryExchange }

func (p ExchangePayload) SearchText() string {
	return strings.Join([]string{p.Parsed.Title, p.Parsed.Description, p.Parsed.Brand, p.RawInput}, " ")
}

func (p ExchangePayload) Validate() error {
	if !p.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown exchange type %q", p.Type)}
	}
	switch p.Status {
	case ExchangeActive, ExchangeClaimed, ExchangeFulfilled:
	default:
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", p.Status)}
	}
	// Title and description are required before an exchange listing may be
	// committed; the composer's submit guard enforces the same rule up front.
	if p.Parsed.Title == "" {
		return &ValidationError{Field: "parsed.title", Reason: "must not be empty"}
	}
	if p.Parsed.Description == "" {
		return &ValidationError{Field: "parsed.description", Reason: "must not be empty"}
	}
	return p.Parsed.Validate()
}
