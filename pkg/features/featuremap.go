package features

// FeatureMap records, for each original column, the derived columns its
// transform produced. Originals keep the order in which they were first
// registered so interaction output is reproducible.
type FeatureMap struct {
	order   []string
	derived map[string][]string
}

// Entry is one original column and its derived columns
type Entry struct {
	Original string   `json:"original"`
	Derived  []string `json:"derived"`
}

// NewFeatureMap creates an empty feature map
func NewFeatureMap() *FeatureMap {
	return &FeatureMap{derived: make(map[string][]string)}
}

// Add registers derived under original
func (m *FeatureMap) Add(original, derived string) {
	if _, ok := m.derived[original]; !ok {
		m.order = append(m.order, original)
	}
	m.derived[original] = append(m.derived[original], derived)
}

// Originals returns the original names in registration order
func (m *FeatureMap) Originals() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Derived returns the derived names of original in registration order
func (m *FeatureMap) Derived(original string) []string {
	d := m.derived[original]
	out := make([]string, len(d))
	copy(out, d)
	return out
}

// Len returns the number of originals
func (m *FeatureMap) Len() int { return len(m.order) }

// Entries returns the map as an ordered list
func (m *FeatureMap) Entries() []Entry {
	out := make([]Entry, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, Entry{Original: name, Derived: m.Derived(name)})
	}
	return out
}
