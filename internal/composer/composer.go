// Package composer drives the listing composition workflow: free text goes
// in, a validated exchange annotation comes out. The flow is a state machine,
// Input → Parsing → {ClarifyingQuestions → Refining} → Review → Submit, with
// parse failures returning to Input with the draft intact and refine failures
// silently falling back to the pre-refinement draft.
package composer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pawmap/mapboard/internal/model"
	"github.com/pawmap/mapboard/internal/placement"
	"github.com/pawmap/mapboard/internal/store"
	"github.com/pawmap/mapboard/pkg/extraction"
)

// Phase is the composer's workflow phase.
type Phase int

const (
	Idle Phase = iota
	Input
	Parsing
	ClarifyingQuestions
	Refining
	Review
)

// String returns the phase name for logs.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Input:
		return "input"
	case Parsing:
		return "parsing"
	case ClarifyingQuestions:
		return "clarifying_questions"
	case Refining:
		return "refining"
	case Review:
		return "review"
	}
	return "unknown"
}

// ErrFlowActive is returned when Start is called while a compose flow is
// already open.
var ErrFlowActive = eris.New("composer: flow already active")

// Controller owns one listing composition flow at a time. It is safe for
// concurrent use; the lock is released while an extraction call is in flight
// so state reads and Cancel stay responsive.
type Controller struct {
	svc       extraction.Service
	store     *store.Memory
	placement *placement.Controller

	mu sync.Mutex

	phase    Phase
	postType model.ExchangeType
	rawText  string
	author   string
	location string
	photoRef string

	parsed    model.ParsedListing
	preRefine model.ParsedListing
	questions []model.ClarifyingQuestion
	answers   map[string]string

	banner string

	// generation invalidates in-flight service responses: it is bumped on
	// cancel and restart, and a response whose captured generation no longer
	// matches is dropped on arrival.
	generation uint64
}

// New creates an idle composer.
func New(svc extraction.Service, st *store.Memory, pl *placement.Controller) *Controller {
	return &Controller{svc: svc, store: st, placement: pl, answers: make(map[string]string)}
}

// Phase returns the current workflow phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Banner returns the user-visible error message, empty when none.
func (c *Controller) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// DismissBanner clears the error message.
func (c *Controller) DismissBanner() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banner = ""
}

// RawText returns the free text typed so far.
func (c *Controller) RawText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rawText
}

// Parsed returns the current structured draft.
func (c *Controller) Parsed() model.ParsedListing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parsed
}

// Questions returns the pending clarifying questions.
func (c *Controller) Questions() []model.ClarifyingQuestion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.questions
}

// Start opens a new compose flow for the given listing type: Idle → Input.
func (c *Controller) Start(postType model.ExchangeType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Idle {
		return ErrFlowActive
	}
	if !postType.Valid() {
		return eris.Errorf("composer: invalid listing type %q", postType)
	}
	c.reset()
	c.postType = postType
	c.phase = Input
	return nil
}

// SetText updates the free-text description while in Input.
func (c *Controller) SetText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Input {
		c.rawText = text
	}
}

// SetAuthor sets the author label.
func (c *Controller) SetAuthor(author string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Input {
		c.author = author
	}
}

// SetLocationLabel sets the optional human-readable location.
func (c *Controller) SetLocationLabel(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Input {
		c.location = label
	}
}

// SetPhotoRef sets the optional photo reference.
func (c *Controller) SetPhotoRef(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Input {
		c.photoRef = ref
	}
}

// CanParse reports whether the parse action is enabled: Input phase,
// non-empty text, and a placed coordinate.
func (c *Controller) CanParse() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canParseLocked()
}

func (c *Controller) canParseLocked() bool {
	if c.phase != Input || c.rawText == "" {
		return false
	}
	_, placed := c.placement.Coordinate()
	return placed
}

// Parse sends the free text to the extraction service. Zero questions go
// straight to Review; otherwise the flow moves to ClarifyingQuestions. On
// failure the flow returns to Input with the typed text preserved and a
// banner set. The lock is not held during the service call, so the flow can
// be observed and cancelled while parsing; a response arriving after
// cancellation is discarded.
func (c *Controller) Parse(ctx context.Context) error {
	c.mu.Lock()
	if !c.canParseLocked() {
		phase := c.phase
		c.mu.Unlock()
		return eris.Errorf("composer: parse not available (phase %s)", phase)
	}

	c.phase = Parsing
	gen := c.generation
	req := extraction.ParseRequest{PostType: c.postType, RawText: c.rawText}
	c.mu.Unlock()

	res, err := c.svc.Parse(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		zap.L().Debug("composer: discarding stale parse response")
		return nil
	}

	if err != nil {
		c.phase = Input
		c.banner = "We couldn't process your listing. Please try again."
		zap.L().Warn("composer: parse failed", zap.Error(err))
		return nil
	}

	c.parsed = res.Parsed
	c.preRefine = res.Parsed
	c.banner = ""

	if len(res.Questions) == 0 {
		c.phase = Review
		return nil
	}
	c.questions = res.Questions
	c.phase = ClarifyingQuestions
	return nil
}

// Answer records the user's reply to a clarifying question. Unanswered
// questions stay unanswered; an empty value clears a previous answer.
func (c *Controller) Answer(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != ClarifyingQuestions {
		return eris.Errorf("composer: no questions pending (phase %s)", c.phase)
	}
	for _, q := range c.questions {
		if q.Field == field {
			if value == "" {
				delete(c.answers, field)
			} else {
				c.answers[field] = value
			}
			return nil
		}
	}
	return eris.Errorf("composer: unknown question field %q", field)
}

// Skip abandons the question step entirely: the draft from Parse moves to
// Review unchanged.
func (c *Controller) Skip() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != ClarifyingQuestions {
		return eris.Errorf("composer: nothing to skip (phase %s)", c.phase)
	}
	c.questions = nil
	c.phase = Review
	return nil
}

// Refine sends the collected answers for a second extraction pass. Questions
// left unanswered are omitted. A refine failure is non-fatal: the
// pre-refinement draft moves to Review as-is. The lock is not held during the
// service call; a response arriving after cancellation is discarded.
func (c *Controller) Refine(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != ClarifyingQuestions {
		phase := c.phase
		c.mu.Unlock()
		return eris.Errorf("composer: no questions to refine (phase %s)", phase)
	}

	// Answers are sent in question order, verbatim, whether they came from a
	// suggested option or free text.
	var answers []extraction.Answer
	for _, q := range c.questions {
		if v, ok := c.answers[q.Field]; ok {
			answers = append(answers, extraction.Answer{Field: q.Field, Value: v})
		}
	}

	c.phase = Refining
	gen := c.generation
	req := extraction.RefineRequest{
		RawText: c.rawText,
		Parsed:  c.preRefine,
		Answers: answers,
	}
	c.mu.Unlock()

	res, err := c.svc.Refine(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		zap.L().Debug("composer: discarding stale refine response")
		return nil
	}

	if err != nil {
		zap.L().Warn("composer: refine failed, keeping unrefined draft", zap.Error(err))
		c.parsed = c.preRefine
	} else {
		c.parsed = res.Parsed
	}
	c.questions = nil
	c.phase = Review
	return nil
}

// Restart discards the structured draft and returns to Input. The typed text
// is kept so the user can edit and re-parse. Any in-flight service response
// is invalidated.
func (c *Controller) Restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Review {
		return eris.Errorf("composer: nothing to restart (phase %s)", c.phase)
	}
	c.generation++
	c.parsed = model.ParsedListing{}
	c.preRefine = model.ParsedListing{}
	c.questions = nil
	clear(c.answers)
	c.phase = Input
	return nil
}

// CanSubmit reports whether the submit action is enabled: Review phase,
// non-empty title and description, and a placed coordinate.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmitLocked()
}

func (c *Controller) canSubmitLocked() bool {
	if c.phase != Review || c.parsed.Title == "" || c.parsed.Description == "" {
		return false
	}
	_, placed := c.placement.Coordinate()
	return placed
}

// Submit commits the listing: builds the exchange payload, consumes the
// placed coordinate, adds the annotation to the store, and returns to Idle.
func (c *Controller) Submit() (*model.Annotation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.canSubmitLocked() {
		return nil, eris.Errorf("composer: submit not available (phase %s)", c.phase)
	}

	coord, err := c.placement.Consume()
	if err != nil {
		return nil, eris.Wrap(err, "composer: submit")
	}

	annotation := model.Annotation{
		ID:          uuid.NewString(),
		Category:    model.CategoryExchange,
		Coordinates: coord,
		CreatedAt:   time.Now(),
		Payload: model.ExchangePayload{
			Type:          c.postType,
			Parsed:        c.parsed,
			RawInput:      c.rawText,
			Author:        c.author,
			LocationLabel: c.location,
			Status:        model.ExchangeActive,
			PhotoRef:      c.photoRef,
		},
	}

	if err := c.store.Add(annotation); err != nil {
		return nil, eris.Wrap(err, "composer: submit")
	}

	zap.L().Info("composer: listing submitted",
		zap.String("id", annotation.ID),
		zap.String("type", string(c.postType)),
		zap.String("title", c.parsed.Title),
	)

	c.reset()
	return &annotation, nil
}

// Cancel aborts the flow from any phase, returning to Idle. The placement is
// cancelled too, and any in-flight service response is invalidated.
func (c *Controller) Cancel() {
	c.placement.Cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Controller) reset() {
	c.generation++
	c.phase = Idle
	c.postType = ""
	c.rawText = ""
	c.author = ""
	c.location = ""
	c.photoRef = ""
	c.parsed = model.ParsedListing{}
	c.preRefine = model.ParsedListing{}
	c.questions = nil
	clear(c.answers)
	c.banner = ""
}
