// Package extraction talks to the listing extraction service: free text in,
// a structured ParsedListing plus optional clarifying questions out. The
// service is pluggable; HTTPService speaks the JSON wire contract to a remote
// endpoint and LLMService realizes the same contract directly against the
// Anthropic API.
package extraction

import (
	"context"
	"unicode/utf8"

	"github.com/pawmap/mapboard/internal/model"
)

// MaxQuestions caps how many clarifying questions a parse may surface. The
// service orders questions most-impactful first, so the cap keeps the head of
// the list.
const MaxQuestions = 3

// ParseRequest is the initial extraction call: listing type plus the user's
// free text.
type ParseRequest struct {
	PostType model.ExchangeType `json:"postType"`
	RawText  string             `json:"rawText"`
}

// Answer pairs a clarifying question's target field with the user's reply.
// Unanswered questions are omitted, not sent empty.
type Answer struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// RefineRequest is the second-pass call: original text, the current draft,
// and the collected question answers.
type RefineRequest struct {
	RawText string              `json:"rawText"`
	Parsed  model.ParsedListing `json:"parsed"`
	Answers []Answer            `json:"answers"`
}

// Result is what both calls return. Questions may be empty.
type Result struct {
	Parsed    model.ParsedListing        `json:"parsed"`
	Questions []model.ClarifyingQuestion `json:"questions"`
}

// Service converts free text into structured listings.
type Service interface {
	Parse(ctx context.Context, req ParseRequest) (*Result, error)
	Refine(ctx context.Context, req RefineRequest) (*Result, error)
}

// normalize enforces the contract's bounds on a raw service result: title
// clamped to the model limit, questions capped at MaxQuestions in service
// order, and an off-enum category coerced to Other rather than failing the
// whole parse.
func normalize(res *Result) *Result {
	// Clamp on rune boundaries so a multi-byte title never becomes invalid
	// UTF-8.
	if utf8.RuneCountInString(res.Parsed.Title) > model.MaxTitleLen {
		res.Parsed.Title = string([]rune(res.Parsed.Title)[:model.MaxTitleLen])
	}
	if res.Parsed.Category != "" && !res.Parsed.Category.Valid() {
		res.Parsed.Category = model.ListingOther
	}
	if len(res.Questions) > MaxQuestions {
		res.Questions = res.Questions[:MaxQuestions]
	}
	return res
}
