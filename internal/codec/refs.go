// Package codec converts live entities to flat save records and back.
//
// Every reference is written as a dense id: list neighbours and sprites
// through pointer directories, units as their 1-based table slot, and
// pointers into fixed host tables (orders, paths, AI, grp, palettes) as
// 1-based table indices. Id 0 is nil everywhere.
package codec

import (
	"github.com/l1jgo/entpool/internal/core/arena"
	"github.com/l1jgo/entpool/internal/core/directory"
	"github.com/l1jgo/entpool/internal/data"
	"github.com/l1jgo/entpool/internal/entity"
	"github.com/l1jgo/entpool/internal/saveerr"
)

// Tables are the fixed host tables entities point into. They never move
// during a session.
type Tables struct {
	Orders   *arena.Table[entity.Order]
	Paths    *arena.Table[entity.Path]
	AI       *entity.AITables
	Grps     *arena.Table[entity.Grp]
	Palettes *arena.Table[entity.RemapPalette]
	Caps     *data.Capabilities
}

// SaveRefs resolves live pointers while writing.
type SaveRefs struct {
	*Tables
	Units   *directory.Save[entity.Unit]
	Sprites *directory.Save[entity.Sprite]
	Lone    *directory.Save[entity.LoneSprite]
}

// LoadRefs resolves ids while reading.
type LoadRefs struct {
	*Tables
	Units   *directory.Load[entity.Unit]
	Sprites *directory.Load[entity.Sprite]
	Lone    *directory.Load[entity.LoneSprite]
}

func (s *SaveRefs) unit(u *entity.Unit) (uint16, error) {
	id, err := s.Units.ID(u)
	return uint16(id), err
}

func (l *LoadRefs) unit(id uint16) (*entity.Unit, error) {
	return l.Units.Pointer(uint32(id))
}

// tableID returns the 1-based index of p in t.
func tableID[T any](kind string, t *arena.Table[T], p *T) (uint32, error) {
	if p == nil {
		return 0, nil
	}
	i, ok := t.IndexOf(p)
	if !ok {
		return 0, &saveerr.InvalidPointerError{Kind: kind}
	}
	return uint32(i) + 1, nil
}

func tableEntry[T any](kind string, t *arena.Table[T], id uint32) (*T, error) {
	if id == 0 {
		return nil, nil
	}
	p, ok := t.At(int(id) - 1)
	if !ok {
		return nil, saveerr.Corrupted("invalid %s 0x%x", kind, id)
	}
	return p, nil
}

func (s *SaveRefs) order(o *entity.Order) (uint16, error) {
	id, err := tableID("order", s.Orders, o)
	return uint16(id), err
}

func (l *LoadRefs) order(id uint16) (*entity.Order, error) {
	return tableEntry("order id", l.Orders, uint32(id))
}

func (s *SaveRefs) path(p *entity.Path) (uint16, error) {
	id, err := tableID("path", s.Paths, p)
	return uint16(id), err
}

func (l *LoadRefs) path(id uint16) (*entity.Path, error) {
	return tableEntry("path id", l.Paths, uint32(id))
}

func (s *SaveRefs) grp(g *entity.Grp) (uint16, error) {
	id, err := tableID("grp", s.Grps, g)
	return uint16(id), err
}

func (l *LoadRefs) grp(id uint16) (*entity.Grp, error) {
	return tableEntry("grp", l.Grps, uint32(id))
}
