package browser

import "sort"

// Snapshot maps each browser to the windows last fetched from it. A browser
// is either present with a complete window list or absent. Snapshots are
// values: every change produces a new one, so readers never see a partial
// update.
type Snapshot struct {
	windows map[VariantID][]Window
}

// NewSnapshot builds a snapshot from a map. The map is copied.
func NewSnapshot(m map[VariantID][]Window) Snapshot {
	cp := make(map[VariantID][]Window, len(m))
	for id, ws := range m {
		cp[id] = ws
	}
	return Snapshot{windows: cp}
}

// With returns a copy of s with the windows for id replaced.
func (s Snapshot) With(id VariantID, windows []Window) Snapshot {
	cp := make(map[VariantID][]Window, len(s.windows)+1)
	for k, v := range s.windows {
		cp[k] = v
	}
	if windows == nil {
		windows = []Window{}
	}
	cp[id] = windows
	return Snapshot{windows: cp}
}

// Without returns a copy of s with id removed.
func (s Snapshot) Without(id VariantID) Snapshot {
	cp := make(map[VariantID][]Window, len(s.windows))
	for k, v := range s.windows {
		if k != id {
			cp[k] = v
		}
	}
	return Snapshot{windows: cp}
}

// Only returns a copy of s holding just the named browsers. With no names it
// returns s unchanged.
func (s Snapshot) Only(ids ...VariantID) Snapshot {
	if len(ids) == 0 {
		return s
	}
	cp := make(map[VariantID][]Window, len(ids))
	for _, id := range ids {
		if ws, ok := s.windows[id]; ok {
			cp[id] = ws
		}
	}
	return Snapshot{windows: cp}
}

// Windows returns the windows held for id and whether id is present.
func (s Snapshot) Windows(id VariantID) ([]Window, bool) {
	ws, ok := s.windows[id]
	return ws, ok
}

// Window returns one window by browser and 1-based index.
func (s Snapshot) Window(id VariantID, index int) (Window, bool) {
	for _, w := range s.windows[id] {
		if w.Index == index {
			return w, true
		}
	}
	return Window{}, false
}

// Browsers returns the browsers present, in enumeration order.
func (s Snapshot) Browsers() []VariantID {
	ids := make([]VariantID, 0, len(s.windows))
	for id := range s.windows {
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		oi, oj := Order(ids[i]), Order(ids[j])
		if oi != oj {
			return oi < oj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Tabs returns every tab in overall enumeration order: browser order, then
// window order, then tab order.
func (s Snapshot) Tabs() []Tab {
	var tabs []Tab
	for _, id := range s.Browsers() {
		for _, w := range s.windows[id] {
			tabs = append(tabs, w.Tabs...)
		}
	}
	return tabs
}

// Find looks a tab up by its identity.
func (s Snapshot) Find(key TabKey) (Tab, bool) {
	w, ok := s.Window(key.Browser, key.WindowIndex)
	if !ok {
		return Tab{}, false
	}
	for _, t := range w.Tabs {
		if t.Index == key.TabIndex {
			return t, true
		}
	}
	return Tab{}, false
}

// Len returns the number of browsers present.
func (s Snapshot) Len() int {
	return len(s.windows)
}
