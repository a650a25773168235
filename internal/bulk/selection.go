// Package bulk implements the multi-item operation engine behind list
// views: the selection set, the delete/move/download coordinator, and the
// conflict reporter that turns partial-failure results into bounded,
// actionable messages.
package bulk

import (
	"sort"

	"github.com/swdepot/depot-engine/internal/models"
)

// SelectionSet is the set of content-item ids selected in one list view.
// It is single-kind: switching the view to a different content kind clears
// it, and it never outlives the view. Not safe for concurrent use; each
// list view owns its own.
type SelectionSet struct {
	kind models.ItemKind
	ids  map[int]struct{}
}

// NewSelectionSet creates an empty selection scoped to one content kind.
func NewSelectionSet(kind models.ItemKind) *SelectionSet {
	return &SelectionSet{
		kind: kind,
		ids:  make(map[int]struct{}),
	}
}

// Kind returns the content kind the selection is scoped to.
func (s *SelectionSet) Kind() models.ItemKind { return s.kind }

// SetKind switches the identity space. A different kind empties the set.
func (s *SelectionSet) SetKind(kind models.ItemKind) {
	if kind == s.kind {
		return
	}
	s.kind = kind
	s.Clear()
}

// Toggle flips the selection state of one id and reports whether the id is
// selected afterwards.
func (s *SelectionSet) Toggle(id int) bool {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id is selected.
func (s *SelectionSet) Has(id int) bool {
	_, ok := s.ids[id]
	return ok
}

// SelectAll adds every visible item of the selection's kind.
func (s *SelectionSet) SelectAll(visible []models.ContentItem) {
	for _, item := range visible {
		if item.Kind == s.kind {
			s.ids[item.ID] = struct{}{}
		}
	}
}

// Clear empties the selection.
func (s *SelectionSet) Clear() {
	s.ids = make(map[int]struct{})
}

// Len returns the number of selected ids.
func (s *SelectionSet) Len() int { return len(s.ids) }

// IDs returns the selected ids in ascending order.
func (s *SelectionSet) IDs() []int {
	ids := make([]int, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
