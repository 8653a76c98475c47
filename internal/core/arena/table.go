package arena

import "iter"

// Table is a fixed host table (orders, paths, AI records, grp handles)
// addressed by index. Entries never move and the table never grows.
type Table[T any] struct {
	items []T
	index map[*T]int
}

func NewTable[T any](size int) *Table[T] {
	t := &Table[T]{
		items: make([]T, size),
		index: make(map[*T]int, size),
	}
	for i := range t.items {
		t.index[&t.items[i]] = i
	}
	return t
}

// TableOf wraps existing entries.
func TableOf[T any](items ...T) *Table[T] {
	t := NewTable[T](len(items))
	copy(t.items, items)
	return t
}

func (t *Table[T]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.items)
}

func (t *Table[T]) At(i int) (*T, bool) {
	if t == nil || i < 0 || i >= len(t.items) {
		return nil, false
	}
	return &t.items[i], true
}

func (t *Table[T]) IndexOf(p *T) (int, bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.index[p]
	return i, ok
}

// All yields every entry in index order.
func (t *Table[T]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		if t == nil {
			return
		}
		for i := range t.items {
			if !yield(&t.items[i]) {
				return
			}
		}
	}
}

// Pointers returns the addresses of every entry in index order.
func (t *Table[T]) Pointers() []*T {
	out := make([]*T, t.Len())
	for i := range out {
		out[i] = &t.items[i]
	}
	return out
}
