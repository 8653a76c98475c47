// Package linked walks and rebuilds the host's intrusive doubly-linked lists.
package linked

import (
	"fmt"
	"iter"
)

// Links describes where a node type keeps one pair of list pointers. A type
// that sits on several lists (units: active, player, invisible) has one
// Links value per list.
type Links[T any] struct {
	Prev    func(*T) *T
	Next    func(*T) *T
	SetPrev func(*T, *T)
	SetNext func(*T, *T)
}

// Heads is a first/last pair as the host stores it.
type Heads[T any] struct {
	First *T
	Last  *T
}

// Forward yields head, head.next, ... until nil.
func (l Links[T]) Forward(head *T) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for n := head; n != nil; n = l.Next(n) {
			if !yield(n) {
				return
			}
		}
	}
}

// Backward yields tail, tail.prev, ... until nil.
func (l Links[T]) Backward(tail *T) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for n := tail; n != nil; n = l.Prev(n) {
			if !yield(n) {
				return
			}
		}
	}
}

// Count stops early at limit so a cyclic list cannot hang the caller;
// limit <= 0 means no limit.
func Count[T any](seq iter.Seq[*T], limit int) int {
	n := 0
	for range seq {
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	return n
}

// Concat yields every sequence in turn.
func Concat[T any](seqs ...iter.Seq[*T]) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for _, seq := range seqs {
			for p := range seq {
				if !yield(p) {
					return
				}
			}
		}
	}
}

func Collect[T any](seq iter.Seq[*T]) []*T {
	var out []*T
	for p := range seq {
		out = append(out, p)
	}
	return out
}

// PushBack appends n to the list h. n must not be on any list.
func (l Links[T]) PushBack(h *Heads[T], n *T) {
	l.SetPrev(n, h.Last)
	l.SetNext(n, nil)
	if h.Last != nil {
		l.SetNext(h.Last, n)
	} else {
		h.First = n
	}
	h.Last = n
}

// PushFront prepends n to the list h.
func (l Links[T]) PushFront(h *Heads[T], n *T) {
	l.SetPrev(n, nil)
	l.SetNext(n, h.First)
	if h.First != nil {
		l.SetPrev(h.First, n)
	} else {
		h.Last = n
	}
	h.First = n
}

// Unlink removes n from the list h and clears its links.
func (l Links[T]) Unlink(h *Heads[T], n *T) {
	prev, next := l.Prev(n), l.Next(n)
	if prev != nil {
		l.SetNext(prev, next)
	} else if h.First == n {
		h.First = next
	}
	if next != nil {
		l.SetPrev(next, prev)
	} else if h.Last == n {
		h.Last = prev
	}
	l.SetPrev(n, nil)
	l.SetNext(n, nil)
}

// PopFront unlinks and returns the first node, nil if h is empty.
func (l Links[T]) PopFront(h *Heads[T]) *T {
	n := h.First
	if n != nil {
		l.Unlink(h, n)
	}
	return n
}

// Relink wires prev/next across nodes, which hold several logical lists back
// to back with the given lengths. The first node of every sub-range gets a
// nil prev and the last one a nil next. Returns the heads of each sub-range.
func (l Links[T]) Relink(nodes []*T, lens ...int) ([]Heads[T], error) {
	total := 0
	for _, n := range lens {
		if n < 0 {
			return nil, fmt.Errorf("relink: negative range length %d", n)
		}
		total += n
	}
	if total != len(nodes) {
		return nil, fmt.Errorf("relink: ranges cover %d nodes, have %d", total, len(nodes))
	}
	heads := make([]Heads[T], len(lens))
	start := 0
	for r, n := range lens {
		part := nodes[start : start+n]
		for i, node := range part {
			var prev, next *T
			if i > 0 {
				prev = part[i-1]
			}
			if i < n-1 {
				next = part[i+1]
			}
			l.SetPrev(node, prev)
			l.SetNext(node, next)
		}
		if n > 0 {
			heads[r] = Heads[T]{First: part[0], Last: part[n-1]}
		}
		start += n
	}
	return heads, nil
}

// Verify checks that the list from first terminates within limit nodes, that
// prev/next agree on every edge and that the walk ends at last.
func (l Links[T]) Verify(first, last *T, limit int) error {
	if first == nil || last == nil {
		if first != last {
			return fmt.Errorf("list heads disagree: first set %t, last set %t", first != nil, last != nil)
		}
		return nil
	}
	if p := l.Prev(first); p != nil {
		return fmt.Errorf("first node has a prev link")
	}
	n := 0
	var prev *T
	for node := first; node != nil; node = l.Next(node) {
		n++
		if limit > 0 && n > limit {
			return fmt.Errorf("list does not terminate within %d nodes", limit)
		}
		if l.Prev(node) != prev {
			return fmt.Errorf("prev link of node %d does not point back", n)
		}
		prev = node
	}
	if prev != last {
		return fmt.Errorf("walk ends at node %d which is not the recorded last node", n)
	}
	return nil
}
