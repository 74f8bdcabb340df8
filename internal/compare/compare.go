// Package compare holds comparison mode state: the two-slot layer
// selection and the last diff result.
package compare

import (
	"errors"

	"github.com/five82/layerscope/internal/backend"
)

// MaxSelected is the number of layers a comparison needs.
const MaxSelected = 2

var (
	// ErrSelectionIncomplete is returned when fewer than two layers are selected.
	ErrSelectionIncomplete = errors.New("select exactly two layers to compare")
	// ErrNotActive is returned when comparison mode is off.
	ErrNotActive = errors.New("comparison mode is not active")
)

// Selection holds at most two layer IDs in selection order. When a third
// layer is added the oldest is evicted.
type Selection struct {
	ids []string
}

// Toggle removes id when selected, otherwise appends it, evicting the
// oldest selection when both slots are taken.
func (s *Selection) Toggle(id string) {
	for i, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			return
		}
	}
	if len(s.ids) >= MaxSelected {
		s.ids = append(s.ids[1:len(s.ids):len(s.ids)], id)
		return
	}
	s.ids = append(s.ids, id)
}

// IDs returns a copy of the selected layer IDs, oldest first.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool {
	for _, existing := range s.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// Len returns the number of selected layers.
func (s *Selection) Len() int { return len(s.ids) }

// Clear empties the selection.
func (s *Selection) Clear() { s.ids = nil }

// Pair returns the two selected layers in selection order.
func (s *Selection) Pair() (string, string, error) {
	if len(s.ids) != MaxSelected {
		return "", "", ErrSelectionIncomplete
	}
	return s.ids[0], s.ids[1], nil
}

// Mode is the comparison subsystem's state.
type Mode struct {
	active    bool
	selection Selection
	result    *backend.LayerDiff
	pair      [2]string
}

// Active reports whether comparison mode is on.
func (m *Mode) Active() bool { return m.active }

// SetActive turns comparison mode on or off. Any change clears the
// selection and result.
func (m *Mode) SetActive(on bool) {
	if m.active == on {
		return
	}
	m.active = on
	m.selection.Clear()
	m.clearResult()
}

// Reset turns comparison mode off and drops all state.
func (m *Mode) Reset() {
	m.active = false
	m.selection.Clear()
	m.clearResult()
}

// Toggle changes the selection of a layer. A new selection invalidates
// the previous result.
func (m *Mode) Toggle(id string) error {
	if !m.active {
		return ErrNotActive
	}
	m.selection.Toggle(id)
	m.clearResult()
	return nil
}

// Pair returns the layers to compare.
func (m *Mode) Pair() (string, string, error) {
	if !m.active {
		return "", "", ErrNotActive
	}
	return m.selection.Pair()
}

// Selected returns the selected layer IDs, oldest first.
func (m *Mode) Selected() []string { return m.selection.IDs() }

// IsSelected reports whether id is part of the selection.
func (m *Mode) IsSelected(id string) bool { return m.selection.Contains(id) }

// SetResult stores the diff for the given pair.
func (m *Mode) SetResult(layer1, layer2 string, diff *backend.LayerDiff) {
	m.result = diff.Clone()
	m.pair = [2]string{layer1, layer2}
}

// Result returns a copy of the last diff and the pair it belongs to.
func (m *Mode) Result() (*backend.LayerDiff, [2]string) {
	return m.result.Clone(), m.pair
}

func (m *Mode) clearResult() {
	m.result = nil
	m.pair = [2]string{}
}
