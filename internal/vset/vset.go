// Package vset implements the versioned-set container netifd uses to diff
// desired state against applied state: an ordered keyed set that opens an
// "update epoch", accumulates a new generation of entries, and on flush
// emits one add/remove/keep delta per key touched by either generation.
//
// The C source keys this via an intrusive vlist_tree node with a
// caller-supplied comparator. Go generics let the comparator live purely
// at construction time instead of as embedded node linkage: Set[K, V] is
// keyed by K (extracted from V via the Entry interface) and ordered by a
// caller-supplied less function, matching the "generic ordered map/set
// keyed by a comparator" reformulation in the spec's design notes.
package vset

import "sort"

// Entry is implemented by values stored in a Set; Key returns the
// comparator key used for deduplication and ordering.
type Entry[K comparable] interface {
	Key() K
}

// pair tracks, for one key touched during the current epoch, the surviving
// new-generation value and/or the superseded old-generation value.
type pair[V any] struct {
	newer *V
	older *V
}

// Set is a keyed, ordered, epoch-diffing container. It is not safe for
// concurrent use; callers serialize access the way netifd's single event
// loop thread does.
type Set[K comparable, V Entry[K]] struct {
	less func(a, b K) bool
	cb   func(newer, older *V)

	cur   map[K]*V // the set's current, stable generation
	stale map[K]*V // previous generation entries not yet reconfirmed this epoch

	pending    map[K]*pair[V]
	updating   bool
}

// New creates an empty set. less defines the deterministic iteration and
// delta-delivery order; cb is invoked once per touched key during Flush.
func New[K comparable, V Entry[K]](less func(a, b K) bool, cb func(newer, older *V)) *Set[K, V] {
	return &Set[K, V]{
		less: less,
		cb:   cb,
		cur:  make(map[K]*V),
	}
}

// Update opens a new epoch. Every entry currently in the set becomes
// "stale": it will be delivered as a removal at Flush unless Add
// reconfirms its key before then.
func (s *Set[K, V]) Update() {
	s.stale = s.cur
	s.cur = make(map[K]*V, len(s.stale))
	s.pending = make(map[K]*pair[V])
	s.updating = true
}

// Add inserts v into the current epoch. If v's key matches a stale entry,
// the stale entry is retained as the delta's "old" side; otherwise the
// insertion is a pure addition.
func (s *Set[K, V]) Add(v V) {
	k := v.Key()
	nv := new(V)
	*nv = v
	s.cur[k] = nv

	if old, ok := s.stale[k]; ok {
		s.pending[k] = &pair[V]{newer: nv, older: old}
		delete(s.stale, k)
	} else if p, ok := s.pending[k]; ok {
		// a second Add for the same key within one epoch replaces the
		// previously staged "new" side but keeps any old side already found.
		p.newer = nv
	} else {
		s.pending[k] = &pair[V]{newer: nv}
	}
}

// Flush closes the current epoch. Every key touched by either generation
// receives exactly one callback, delivered in ascending key order.
func (s *Set[K, V]) Flush() {
	for k, old := range s.stale {
		s.pending[k] = &pair[V]{older: old}
	}
	s.stale = nil

	keys := make([]K, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return s.less(keys[i], keys[j]) })

	for _, k := range keys {
		p := s.pending[k]
		if s.cb != nil {
			s.cb(p.newer, p.older)
		}
	}
	s.pending = nil
	s.updating = false
}

// FlushAll empties the set unconditionally, synthesizing a removal
// callback for every entry regardless of epoch state. Used on interface
// teardown.
func (s *Set[K, V]) FlushAll() {
	all := make(map[K]*V, len(s.cur)+len(s.stale))
	for k, v := range s.cur {
		all[k] = v
	}
	for k, v := range s.stale {
		all[k] = v
	}

	keys := make([]K, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return s.less(keys[i], keys[j]) })

	for _, k := range keys {
		if s.cb != nil {
			s.cb(nil, all[k])
		}
	}
	s.cur = make(map[K]*V)
	s.stale = nil
	s.pending = nil
	s.updating = false
}

// ForEach traverses the set's current-epoch entries in ascending key order.
func (s *Set[K, V]) ForEach(fn func(*V)) {
	keys := make([]K, 0, len(s.cur))
	for k := range s.cur {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return s.less(keys[i], keys[j]) })
	for _, k := range keys {
		fn(s.cur[k])
	}
}

// Len returns the number of entries in the current epoch.
func (s *Set[K, V]) Len() int {
	return len(s.cur)
}

// Updating reports whether the set is between Update and Flush.
func (s *Set[K, V]) Updating() bool {
	return s.updating
}
