package placer

import "github.com/google/uuid"

// Selection is the set of selected item ids.
type Selection struct {
	ids map[uuid.UUID]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: make(map[uuid.UUID]struct{})}
}

func (s *Selection) IsSelected(id uuid.UUID) bool {
	_, ok := s.ids[id]
	return ok
}

// Select reports whether id was newly added.
func (s *Selection) Select(id uuid.UUID) bool {
	if s.IsSelected(id) {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Selection) Deselect(id uuid.UUID) bool {
	if !s.IsSelected(id) {
		return false
	}
	delete(s.ids, id)
	return true
}

// Toggle flips id and returns its new state.
func (s *Selection) Toggle(id uuid.UUID) bool {
	if s.Deselect(id) {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Selection) Clear() {
	clear(s.ids)
}

func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in the order they appear in items.
func (s *Selection) IDs(items []Item) []uuid.UUID {
	if len(s.ids) == 0 {
		return nil
	}
	out := make([]uuid.UUID, 0, len(s.ids))
	for _, it := range items {
		if s.IsSelected(it.ID) {
			out = append(out, it.ID)
		}
	}
	return out
}
