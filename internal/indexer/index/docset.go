package index

import "sort"

// DocSet is an unordered, duplicate-free set of document ids.
type DocSet map[int]struct{}

// NewDocSet returns a set holding ids.
func NewDocSet(ids ...int) DocSet {
	s := make(DocSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s DocSet) Add(id int) {
	s[id] = struct{}{}
}

func (s DocSet) Contains(id int) bool {
	_, ok := s[id]
	return ok
}

func (s DocSet) Len() int {
	return len(s)
}

// Sorted returns the ids in ascending order for presentation.
func (s DocSet) Sorted() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Intersect returns the documents present in every set. It iterates the
// smallest set and probes the others.
func Intersect(sets ...DocSet) DocSet {
	if len(sets) == 0 {
		return DocSet{}
	}
	smallest := 0
	for i, s := range sets {
		if len(s) < len(sets[smallest]) {
			smallest = i
		}
	}
	result := make(DocSet, len(sets[smallest]))
	for id := range sets[smallest] {
		inAll := true
		for i, s := range sets {
			if i == smallest {
				continue
			}
			if !s.Contains(id) {
				inAll = false
				break
			}
		}
		if inAll {
			result.Add(id)
		}
	}
	return result
}

// Union returns the documents present in any set.
func Union(sets ...DocSet) DocSet {
	result := make(DocSet)
	for _, s := range sets {
		for id := range s {
			result.Add(id)
		}
	}
	return result
}

// Difference returns the documents of a that are not in b.
func Difference(a, b DocSet) DocSet {
	result := make(DocSet, len(a))
	for id := range a {
		if !b.Contains(id) {
			result.Add(id)
		}
	}
	return result
}

// IsSubset reports whether every id of s is also in of.
func (s DocSet) IsSubset(of DocSet) bool {
	for id := range s {
		if !of.Contains(id) {
			return false
		}
	}
	return true
}
