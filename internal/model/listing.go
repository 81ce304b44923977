package model

import (
	"fmt"
	"unicode/utf8"
)

// MaxTitleLen caps ParsedListing titles, counted in runes.
const MaxTitleLen = 60

// ListingCategory is the closed set of exchange listing categories the
// extraction service may assign.
type ListingCategory string

const (
	ListingPetFood         ListingCategory = "Pet Food"
	ListingSuppliesGear    ListingCategory = "Supplies & Gear"
	ListingMedicalItems    ListingCategory = "Medical Items"
	ListingToysAccessories ListingCategory = "Toys & Accessories"
	ListingOther           ListingCategory = "Other"
)

// ListingCategories lists every valid listing category.
var ListingCategories = []ListingCategory{
	ListingPetFood,
	ListingSuppliesGear,
	ListingMedicalItems,
	ListingToysAccessories,
	ListingOther,
}

// Valid reports whether c is a known listing category.
func (c ListingCategory) Valid() bool {
	for _, known := range ListingCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParsedListing is the structured record the extraction service produces from
// a listing's free text.
type ParsedListing struct {
	Title          string          `json:"title"`
	Brand          string          `json:"brand,omitempty"`
	Category       ListingCategory `json:"category"`
	Quantity       string          `json:"quantity,omitempty"`
	Condition      string          `json:"condition,omitempty"`
	Expiration     string          `json:"expiration,omitempty"`
	Description    string          `json:"description"`
	PetType        string          `json:"pet_type,omitempty"`
	EstimatedValue string          `json:"estimated_value,omitempty"`
}

// Validate checks field constraints. Empty title/description are legal on a
// draft; commit-time emptiness is rejected by ExchangePayload.Validate.
func (l ParsedListing) Validate() error {
	if n := utf8.RuneCountInString(l.Title); n > MaxTitleLen {
		return &ValidationError{
			Field:  "title",
			Reason: fmt.Sprintf("must be at most %d characters, got %d", MaxTitleLen, n),
		}
	}
	if l.Category != "" && !l.Category.Valid() {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown listing category %q", l.Category)}
	}
	return nil
}

// ClarifyingQuestion is a targeted follow-up the extraction service asks to
// fill a missing structured field.
type ClarifyingQuestion struct {
	Field     string   `json:"field"`
	Prompt    string   `json:"prompt"`
	Suggested []string `json:"suggested,omitempty"`
}
