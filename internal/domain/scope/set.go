package scope

import "encoding/json"

// Set is a duplicate-free collection of scopes. Iteration follows insertion
// order, which callers must not rely on. A Set shares its storage when
// copied by value; use Clone for an independent copy.
type Set struct {
	order []Scope
	index map[Scope]struct{}
}

// NewSet builds a set, dropping duplicates.
func NewSet(scopes ...Scope) Set {
	s := Set{index: make(map[Scope]struct{}, len(scopes))}
	for _, sc := range scopes {
		s.Add(sc)
	}
	return s
}

// FromStrings builds a set from raw identifiers as received over the wire.
func FromStrings(raw []string) Set {
	s := NewSet()
	for _, r := range raw {
		s.Add(Scope(r))
	}
	return s
}

// Add inserts sc. Adding an existing scope is a no-op.
func (s *Set) Add(sc Scope) {
	if s.index == nil {
		s.index = make(map[Scope]struct{})
	}
	if _, ok := s.index[sc]; ok {
		return
	}
	s.index[sc] = struct{}{}
	s.order = append(s.order, sc)
}

// Remove deletes sc if present.
func (s *Set) Remove(sc Scope) {
	if _, ok := s.index[sc]; !ok {
		return
	}
	delete(s.index, sc)
	for i, existing := range s.order {
		if existing == sc {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s Set) Has(sc Scope) bool {
	_, ok := s.index[sc]
	return ok
}

func (s Set) Len() int { return len(s.order) }

// Scopes returns a copy of the members.
func (s Set) Scopes() []Scope {
	out := make([]Scope, len(s.order))
	copy(out, s.order)
	return out
}

// Strings returns the members as wire identifiers.
func (s Set) Strings() []string {
	out := make([]string, len(s.order))
	for i, sc := range s.order {
		out[i] = string(sc)
	}
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	return NewSet(s.order...)
}

// Equal reports whether both sets hold the same members, in any order.
func (s Set) Equal(other Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, sc := range s.order {
		if !other.Has(sc) {
			return false
		}
	}
	return true
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = FromStrings(raw)
	return nil
}
