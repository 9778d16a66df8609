package leadimport

import "strings"

// orderedSet keeps strings in insertion order, comparing them case-insensitively.
// The first spelling added for a key is the one retained.
type orderedSet struct {
	items []string
	index map[string]int
}

func newOrderedSet() *orderedSet {
	return &orderedSet{items: []string{}, index: map[string]int{}}
}

// add inserts v and reports whether it was new.
func (s *orderedSet) add(v string) bool {
	k := strings.ToLower(v)
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, v)
	return true
}

func (s *orderedSet) values() []string {
	return s.items
}
