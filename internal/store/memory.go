package store

import (
	"iter"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/pawmap/mapboard/internal/model"
)

// Query describes a combined category + free-text filter. Both parts are
// optional; the zero Query matches everything.
type Query struct {
	Category model.Category
	Text     string
}

// Memory is the single source of truth for all annotations in the current
// session. It is deliberately unsynchronized: the board is single-writer,
// single-reader within one session (events are serialized by the caller).
type Memory struct {
	annotations []model.Annotation
	byID        map[string]int
	folder      cases.Caser
}

// NewMemory creates an empty annotation store.
func NewMemory() *Memory {
	return &Memory{
		byID:   make(map[string]int),
		folder: cases.Fold(),
	}
}

// Add validates and inserts an annotation. Returns model.ErrDuplicateID when
// the ID is already present; that is a caller bug, not a user-facing failure.
func (s *Memory) Add(a model.Annotation) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if _, ok := s.byID[a.ID]; ok {
		return model.ErrDuplicateID
	}
	s.byID[a.ID] = len(s.annotations)
	s.annotations = append(s.annotations, a)
	return nil
}

// Get returns the annotation with the given ID.
func (s *Memory) Get(id string) (model.Annotation, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return model.Annotation{}, false
	}
	return s.annotations[idx], true
}

// Len returns the number of stored annotations.
func (s *Memory) Len() int {
	return len(s.annotations)
}

// All returns a restartable sequence of annotations in insertion order,
// optionally restricted to the given categories.
func (s *Memory) All(categories ...model.Category) iter.Seq[model.Annotation] {
	return func(yield func(model.Annotation) bool) {
		for _, a := range s.annotations {
			if !matchesCategory(a, categories) {
				continue
			}
			if !yield(a) {
				return
			}
		}
	}
}

// Newest returns annotations most-recent-first: a stable sort by CreatedAt
// descending, so same-timestamp annotations keep their insertion order. Used
// by list views.
func (s *Memory) Newest(categories ...model.Category) []model.Annotation {
	var out []model.Annotation
	for a := range s.All(categories...) {
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Filter returns annotations matching the query, in insertion order. Text
// matching is a case-folded substring check per whitespace-separated term
// over the payload's search text; every term must match. Because terms only
// ever constrain, narrowing a query (adding a term or a category) can never
// return a superset of a broader query's results.
func (s *Memory) Filter(q Query) []model.Annotation {
	terms := s.foldTerms(q.Text)

	var out []model.Annotation
	for _, a := range s.annotations {
		if q.Category != "" && a.Category != q.Category {
			continue
		}
		if len(terms) > 0 {
			haystack := s.folder.String(a.Payload.SearchText())
			matched := true
			for _, term := range terms {
				if !strings.Contains(haystack, term) {
					matched = false
					break
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

func (s *Memory) foldTerms(text string) []string {
	fields := strings.Fields(text)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, s.folder.String(f))
	}
	return terms
}

func matchesCategory(a model.Annotation, categories []model.Category) bool {
	if len(categories) == 0 {
		return true
	}
	for _, c := range categories {
		if a.Category == c {
			return true
		}
	}
	return false
}
