// Package directory maps live pointers to dense ids and back.
//
// Id 0 is always nil. A non-nil pointer gets its 1-based position in the
// sequence the directory was built from, so ids are dense in [1, Len()].
package directory

import (
	"fmt"
	"iter"

	"github.com/l1jgo/entpool/internal/saveerr"
)

// Save resolves pointers to ids while writing a chunk.
type Save[T any] struct {
	kind string
	ids  map[*T]uint32
}

// NewSave numbers every pointer yielded by seq. A pointer seen twice means
// the live structure is broken (a list cycle or a slot linked twice).
func NewSave[T any](kind string, seq iter.Seq[*T]) (*Save[T], error) {
	d := &Save[T]{kind: kind, ids: make(map[*T]uint32, 64)}
	for p := range seq {
		if p == nil {
			continue
		}
		if _, dup := d.ids[p]; dup {
			return nil, fmt.Errorf("%s directory: pointer listed twice at position %d: %w",
				kind, len(d.ids)+1, &saveerr.InvalidPointerError{Kind: kind})
		}
		d.ids[p] = uint32(len(d.ids) + 1)
	}
	return d, nil
}

// ID returns 0 for nil and the pointer's id otherwise. A pointer outside the
// directory is an error, never silently 0.
func (d *Save[T]) ID(p *T) (uint32, error) {
	if p == nil {
		return 0, nil
	}
	if d != nil {
		if id, ok := d.ids[p]; ok {
			return id, nil
		}
	}
	return 0, &saveerr.InvalidPointerError{Kind: d.Kind()}
}

func (d *Save[T]) Len() int {
	if d == nil {
		return 0
	}
	return len(d.ids)
}

func (d *Save[T]) Kind() string {
	if d == nil {
		return "unknown"
	}
	return d.kind
}

// Load resolves ids to pointers while reading a chunk.
type Load[T any] struct {
	kind  string
	slots []*T
}

func NewLoad[T any](kind string, slots []*T) *Load[T] {
	return &Load[T]{kind: kind, slots: slots}
}

// Pointer returns nil for 0 and the slot for ids in [1, Len()].
func (d *Load[T]) Pointer(id uint32) (*T, error) {
	if id == 0 {
		return nil, nil
	}
	if d == nil || uint64(id) > uint64(len(d.slots)) {
		return nil, saveerr.Corrupted("invalid %s id 0x%x", d.Kind(), id)
	}
	return d.slots[id-1], nil
}

func (d *Load[T]) Len() int {
	if d == nil {
		return 0
	}
	return len(d.slots)
}

func (d *Load[T]) Kind() string {
	if d == nil {
		return "unknown"
	}
	return d.kind
}

// Slots exposes the backing slots in id order.
func (d *Load[T]) Slots() []*T {
	if d == nil {
		return nil
	}
	return d.slots
}
