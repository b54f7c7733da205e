package engine

// SymbolIndex is a bijection between symbol names and the dense
// SymbolId integers the rest of the engine dispatches on. Symbols are
// assigned in first-seen order starting at 0.
//
// Address stability: Go strings are immutable header+pointer pairs.
// Growing the names slice with append copies those 16-byte headers,
// never the underlying bytes they point at, so a Trade's SymbolName
// (itself just such a header, handed out by Name) stays valid for the
// index's lifetime even as later symbols are registered - no
// segmented-arena or chunked-vector machinery is needed to satisfy
// the spec's borrow-stability requirement in idiomatic Go.
type SymbolIndex struct {
	toID  map[string]uint32
	names []string
}

// NewSymbolIndex creates an empty index.
func NewSymbolIndex() *SymbolIndex {
	return &SymbolIndex{toID: make(map[string]uint32)}
}

// GetOrCreate returns name's SymbolId, assigning the next integer if
// name has not been seen before.
func (s *SymbolIndex) GetOrCreate(name string) uint32 {
	if id, ok := s.toID[name]; ok {
		return id
	}
	id := uint32(len(s.names))
	s.names = append(s.names, name)
	s.toID[name] = id
	return id
}

// Find looks up name without creating it.
func (s *SymbolIndex) Find(name string) (uint32, bool) {
	id, ok := s.toID[name]
	return id, ok
}

// Name returns the name registered for id. Panics if id is out of
// range, mirroring the source's unchecked array access - callers are
// expected to only ever hold IDs this index itself issued.
func (s *SymbolIndex) Name(id uint32) string {
	return s.names[id]
}

// Size returns the number of registered symbols.
func (s *SymbolIndex) Size() int {
	return len(s.names)
}

// Names returns every registered symbol name in assignment order.
// The returned slice is a copy; mutating it does not affect the
// index.
func (s *SymbolIndex) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
