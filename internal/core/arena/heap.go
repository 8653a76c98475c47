package arena

import "iter"

// HeapPool owns individually allocated slots. Addresses are stable for as
// long as the slot is owned; the pool only tracks membership.
type HeapPool[T any] struct {
	owned map[*T]struct{}
	limit int // 0 = unlimited
}

func NewHeapPool[T any](limit int) *HeapPool[T] {
	return &HeapPool[T]{
		owned: make(map[*T]struct{}, 256),
		limit: limit,
	}
}

// Alloc returns a zeroed slot, or nil when the pool limit is reached.
func (p *HeapPool[T]) Alloc() *T {
	if p.limit > 0 && len(p.owned) >= p.limit {
		return nil
	}
	v := new(T)
	p.owned[v] = struct{}{}
	return v
}

// Release drops ownership of v. Returns false if v was not owned.
func (p *HeapPool[T]) Release(v *T) bool {
	if _, ok := p.owned[v]; !ok {
		return false
	}
	delete(p.owned, v)
	return true
}

// Adopt takes ownership of slots allocated elsewhere (load staging).
func (p *HeapPool[T]) Adopt(vs ...*T) {
	for _, v := range vs {
		if v != nil {
			p.owned[v] = struct{}{}
		}
	}
}

func (p *HeapPool[T]) Owns(v *T) bool {
	_, ok := p.owned[v]
	return ok
}

func (p *HeapPool[T]) Len() int   { return len(p.owned) }
func (p *HeapPool[T]) Limit() int { return p.limit }

// Reset releases every owned slot.
func (p *HeapPool[T]) Reset() {
	clear(p.owned)
}

// All yields owned slots in no particular order.
func (p *HeapPool[T]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for v := range p.owned {
			if !yield(v) {
				return
			}
		}
	}
}
