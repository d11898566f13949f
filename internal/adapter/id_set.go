package adapter

import "sort"

// IDSet is a set of order identifiers.
type IDSet map[OrderID]struct{}

func NewIDSet(ids ...OrderID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s IDSet) Add(id OrderID) {
	if id.IsEmpty() {
		return
	}
	s[id] = struct{}{}
}

func (s IDSet) Has(id OrderID) bool {
	_, ok := s[id]
	return ok
}

// Difference returns the ids in s that are not in other.
func (s IDSet) Difference(other IDSet) IDSet {
	out := make(IDSet)
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted returns the ids in lexical order.
func (s IDSet) Sorted() []OrderID {
	out := make([]OrderID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
