package arena

import "iter"

// SlotProvider hands out storage for one entity kind. Pointers returned by
// Alloc stay valid until Release or Reset.
type SlotProvider[T any] interface {
	Alloc() *T
	Release(p *T) bool
	Len() int
	Reset()
}

// Arena is a bump allocator over storage that is allocated once and never
// grown, so every slot keeps its address for the whole session.
type Arena[T any] struct {
	slots []T
	index map[*T]int
	size  int
}

func New[T any](capacity int) *Arena[T] {
	a := &Arena[T]{
		slots: make([]T, capacity),
		index: make(map[*T]int, capacity),
	}
	for i := range a.slots {
		a.index[&a.slots[i]] = i
	}
	return a
}

// Push claims the next slot, or returns nil once the arena is full.
func (a *Arena[T]) Push() *T {
	if a.size == len(a.slots) {
		return nil
	}
	a.size++
	return &a.slots[a.size-1]
}

// Alloc is Push; arenas have no per-slot release.
func (a *Arena[T]) Alloc() *T { return a.Push() }

// Release is a no-op for arenas: freed slots are recycled through the host's
// free lists, and the arena itself only shrinks on Reset.
func (a *Arena[T]) Release(p *T) bool {
	_, ok := a.IndexOf(p)
	return ok
}

// Reset forgets every slot. Contents are left as they are.
func (a *Arena[T]) Reset() { a.size = 0 }

func (a *Arena[T]) Len() int { return a.size }
func (a *Arena[T]) Cap() int { return len(a.slots) }

// Resize sets the number of live slots to n without touching their contents.
// Returns false if n exceeds the capacity.
func (a *Arena[T]) Resize(n int) bool {
	if n < 0 || n > len(a.slots) {
		return false
	}
	a.size = n
	return true
}

// At returns the i-th live slot.
func (a *Arena[T]) At(i int) (*T, bool) {
	if i < 0 || i >= a.size {
		return nil, false
	}
	return &a.slots[i], true
}

// Reserve returns the addresses of the first n slots whether or not they are
// live yet. Loaders decode into these addresses before committing with Resize.
func (a *Arena[T]) Reserve(n int) ([]*T, bool) {
	return a.ReserveFrom(0, n)
}

// ReserveFrom is Reserve for the n slots starting at off.
func (a *Arena[T]) ReserveFrom(off, n int) ([]*T, bool) {
	if off < 0 || n < 0 || off+n > len(a.slots) {
		return nil, false
	}
	out := make([]*T, n)
	for i := range out {
		out[i] = &a.slots[off+i]
	}
	return out, true
}

// IndexOf reports the slot index of p if it points at a live slot.
func (a *Arena[T]) IndexOf(p *T) (int, bool) {
	i, ok := a.SlotIndex(p)
	if !ok || i >= a.size {
		return 0, false
	}
	return i, true
}

// SlotIndex reports the index of p in the backing storage, live or not.
// Loaders use it to map reserved addresses to their staging values.
func (a *Arena[T]) SlotIndex(p *T) (int, bool) {
	i, ok := a.index[p]
	return i, ok
}

// All yields the live slots in index order.
func (a *Arena[T]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for i := 0; i < a.size; i++ {
			if !yield(&a.slots[i]) {
				return
			}
		}
	}
}
