package layers

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/pawmap/mapboard/internal/model"
)

// Icon identifies the marker glyph for a category/subtype.
type Icon string

const (
	IconShelter  Icon = "shelter"
	IconLostPet  Icon = "lost-pet"
	IconFoundPet Icon = "found-pet"
	IconOffer    Icon = "offer"
	IconRequest  Icon = "request"
)

// Marker is the renderable projection of one annotation.
type Marker struct {
	AnnotationID string           `json:"annotation_id"`
	Category     model.Category   `json:"category"`
	Coordinates  model.Coordinate `json:"coordinates"`
	Icon         Icon             `json:"icon"`
	Popup        string           `json:"popup"`
}

// ToMarker projects an annotation to its marker. It is total over the closed
// category/subtype set: an unknown payload type is an error, never a default
// icon that would quietly hide a category.
func ToMarker(a model.Annotation) (Marker, error) {
	m := Marker{
		AnnotationID: a.ID,
		Category:     a.Category,
		Coordinates:  a.Coordinates,
	}

	switch p := a.Payload.(type) {
	case model.ShelterPayload:
		m.Icon = IconShelter
		m.Popup = fmt.Sprintf("%s — %d available", p.Name, p.AvailableCount)
		if p.LocationLabel != "" {
			m.Popup += " · " + p.LocationLabel
		}

	case model.LostPetPayload:
		if p.Status == model.StatusFound {
			m.Icon = IconFoundPet
			m.Popup = fmt.Sprintf("Found: %s (%s)", p.PetName, p.Species)
		} else {
			m.Icon = IconLostPet
			m.Popup = fmt.Sprintf("Lost: %s (%s)", p.PetName, p.Species)
		}
		if p.LastSeen != "" {
			m.Popup += " · last seen " + p.LastSeen
		}

	case model.ExchangePayload:
		if p.Type == model.ExchangeRequest {
			m.Icon = IconRequest
			m.Popup = "Wanted: " + p.Parsed.Title
		} else {
			m.Icon = IconOffer
			m.Popup = "Offered: " + p.Parsed.Title
		}
		if p.Parsed.Category != "" {
			m.Popup += fmt.Sprintf(" [%s]", p.Parsed.Category)
		}

	default:
		return Marker{}, eris.Errorf("layers: no marker projection for payload type %T", a.Payload)
	}

	return m, nil
}
