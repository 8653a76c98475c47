// Package hostsim is a small stand-in for the game the pools are embedded
// in. It allocates entities the way the game does, from the free lists the
// session prepares, and records every callback the session makes. Tools and
// tests use it to build realistic session state.
package hostsim

import (
	"fmt"

	"github.com/l1jgo/entpool/internal/codec"
	"github.com/l1jgo/entpool/internal/core/linked"
	"github.com/l1jgo/entpool/internal/entity"
	"github.com/l1jgo/entpool/internal/host"
	"github.com/l1jgo/entpool/internal/session"
)

// Host implements host.Reinserter and host.Notifier.
type Host struct {
	S *session.Session

	Spatial   []*entity.Unit
	Repulsion []*entity.Unit
	Printed   [][]byte
}

var (
	_ host.Reinserter = (*Host)(nil)
	_ host.Notifier   = (*Host)(nil)
)

// New builds a host and a session wired to it. opts.Reinserter and
// opts.Messenger are replaced.
func New(opts session.Options, codePage string) (*Host, error) {
	h := &Host{}
	msg, err := host.NewMessenger(h, codePage)
	if err != nil {
		return nil, err
	}
	opts.Reinserter = h
	opts.Messenger = msg
	s, err := session.New(opts)
	if err != nil {
		return nil, err
	}
	h.S = s
	return h, nil
}

// RecomputeSpatial puts u back into the position search at its position.
func (h *Host) RecomputeSpatial(u *entity.Unit) {
	h.Spatial = append(h.Spatial, u)
	u.PosSearch = searchBox(u.Position)
}

func (h *Host) RecomputeRepulsion(u *entity.Unit) { h.Repulsion = append(h.Repulsion, u) }
func (h *Host) PrintText(msg []byte)              { h.Printed = append(h.Printed, msg) }

func searchBox(p entity.Point) entity.SearchBox {
	return entity.SearchBox{Left: uint32(p.X), Right: uint32(p.X), Top: uint32(p.Y), Bottom: uint32(p.Y)}
}

// ResetCalls forgets recorded callbacks.
func (h *Host) ResetCalls() {
	h.Spatial, h.Repulsion, h.Printed = nil, nil, nil
}

// Sprite creates a sprite with one overlay per image id and puts it at the
// end of its map row. The first image becomes the main image.
func (h *Host) Sprite(spriteID uint16, player uint8, x, y int16, images ...uint16) *entity.Sprite {
	g := &h.S.G
	return h.S.CreateSprite(func() *entity.Sprite {
		sp := session.SpriteLinks().PopFront(&g.FreeSprites)
		if sp == nil {
			return nil
		}
		*sp = entity.Sprite{
			SpriteID:       spriteID,
			Player:         player,
			Position:       entity.Point{X: x, Y: y},
			Elevation:      4,
			VisibilityMask: 0xff,
		}
		for _, id := range images {
			img := session.ImageLinks().PopFront(&g.FreeImages)
			if img == nil {
				break
			}
			*img = entity.Image{
				ImageID:     id,
				MapPosition: sp.Position,
				Parent:      sp,
			}
			img.Prev = sp.LastOverlay
			if sp.LastOverlay != nil {
				sp.LastOverlay.Next = img
			} else {
				sp.FirstOverlay = img
			}
			sp.LastOverlay = img
			if sp.MainImage == nil {
				sp.MainImage = img
			}
		}
		h.addToRow(sp)
		return sp
	})
}

func (h *Host) row(y int16) int {
	r := int(y) / 32
	return max(0, min(r, len(h.S.G.SpriteLines)-1))
}

// addToRow appends sp after the row's last sprite. Rows are kept as
// separate list segments.
func (h *Host) addToRow(sp *entity.Sprite) {
	lines := h.S.G.SpriteLines
	if len(lines) == 0 {
		return
	}
	line := &lines[h.row(sp.Position.Y)]
	if line.End == nil {
		line.Begin, line.End = sp, sp
		return
	}
	sp.Prev = line.End
	sp.Next = line.End.Next
	if sp.Next != nil {
		sp.Next.Prev = sp
	}
	line.End.Next = sp
	line.End = sp
}

// Row returns the sprites of one map row in list order.
func (h *Host) Row(i int) []*entity.Sprite {
	line := h.S.G.SpriteLines[i]
	var out []*entity.Sprite
	for sp := line.Begin; sp != nil; sp = sp.Next {
		out = append(out, sp)
		if sp == line.End {
			break
		}
	}
	return out
}

// Draw queues every sprite of every row and returns them in draw order.
func (h *Host) Draw() []*entity.Sprite {
	for i := range h.S.G.SpriteLines {
		for _, sp := range h.Row(i) {
			h.S.AddToDrawn(sp)
		}
	}
	var out []*entity.Sprite
	h.S.DrawSprites(func(sp *entity.Sprite) { out = append(out, sp) })
	h.S.ClearDrawBuffer()
	return out
}

// Bullet creates an active bullet owned by parent.
func (h *Host) Bullet(weaponID uint8, parent *entity.Unit, sp *entity.Sprite) *entity.Bullet {
	g := &h.S.G
	return h.S.CreateBullet(func() *entity.Bullet {
		b := session.BulletLinks().PopFront(&g.FreeBullets)
		if b == nil {
			return nil
		}
		*b = entity.Bullet{WeaponID: weaponID, Parent: parent}
		b.Sprite = sp
		if parent != nil {
			b.Player = parent.Player
			b.Position = parent.Position
			b.Target = parent.Target
		}
		session.BulletLinks().PushBack(&g.ActiveBullets, b)
		return b
	})
}

// RemoveBullet deletes b as the game does when its sprite is gone.
func (h *Host) RemoveBullet(b *entity.Bullet) {
	h.S.DeleteBullet(b, func(b *entity.Bullet) {
		session.BulletLinks().Unlink(&h.S.G.ActiveBullets, b)
	})
}

// LoneSprite and FowSprite create standalone sprites around sp.
func (h *Host) LoneSprite(sp *entity.Sprite, value uint32) *entity.LoneSprite {
	g := &h.S.G
	return h.S.CreateLoneSprite(func() *entity.LoneSprite {
		return takeLone(&g.FreeLone, &g.ActiveLone, sp, value)
	})
}

func (h *Host) FowSprite(sp *entity.Sprite, value uint32) *entity.LoneSprite {
	g := &h.S.G
	return h.S.CreateFowSprite(func() *entity.LoneSprite {
		return takeLone(&g.FreeFow, &g.ActiveFow, sp, value)
	})
}

func takeLone(free, active *linked.Heads[entity.LoneSprite], sp *entity.Sprite, value uint32) *entity.LoneSprite {
	ls := session.LoneLinks().PopFront(free)
	if ls == nil {
		return nil
	}
	*ls = entity.LoneSprite{Sprite: sp, Value: value}
	session.LoneLinks().PushBack(active, ls)
	return ls
}

// ExpireLone runs the frame in which a lone sprite ends: the game moves it
// to the free list and the session releases it.
func (h *Host) ExpireLone(ls *entity.LoneSprite) {
	g := &h.S.G
	h.S.StepLoneSprite(ls, func(ls *entity.LoneSprite) {
		session.LoneLinks().Unlink(&g.ActiveLone, ls)
		session.LoneLinks().PushFront(&g.FreeLone, ls)
	})
}

func (h *Host) ExpireFow(ls *entity.LoneSprite) {
	g := &h.S.G
	h.S.StepFowSprite(ls, func(ls *entity.LoneSprite) {
		session.LoneLinks().Unlink(&g.ActiveFow, ls)
		session.LoneLinks().PushFront(&g.FreeFow, ls)
	})
}

// Unit places a unit of unitID for player at (x, y) and marks it as indexed
// in the position search.
func (h *Host) Unit(unitID uint16, player uint8, x, y int16, sp *entity.Sprite) (*entity.Unit, error) {
	if int(player) >= entity.Players {
		return nil, fmt.Errorf("player %d out of range", player)
	}
	u := h.S.AllocUnit()
	if u == nil {
		return nil, fmt.Errorf("unit table full")
	}
	u.UnitID = unitID
	u.Player = player
	u.Position = entity.Point{X: x, Y: y}
	u.ExactPosition = entity.Point32{X: int32(x) << 8, Y: int32(y) << 8}
	u.Sprite = sp
	u.Hitpoints = 40 << 8
	u.Flags = entity.UnitFlagCompleted
	h.shapeOverlays(u)
	u.PosSearch = searchBox(u.Position)
	h.S.LinkPlayerUnit(u)
	return u, nil
}

// Building is Unit for a completed building.
func (h *Host) Building(unitID uint16, player uint8, x, y int16, sp *entity.Sprite) (*entity.Unit, error) {
	u, err := h.Unit(unitID, player, x, y, sp)
	if err != nil {
		return nil, err
	}
	u.Flags |= entity.UnitFlagBuilding
	h.shapeOverlays(u)
	return u, nil
}

// shapeOverlays gives u the zero variant of each union its kind selects,
// the same values a load produces for unset unions.
func (h *Host) shapeOverlays(u *entity.Unit) {
	caps := h.S.Tables().Caps
	u.Specific = entity.NewSpecific(codec.SpecificKindFor(caps, u))
	u.Specific2 = entity.NewSpecific2(codec.Specific2KindFor(caps, u.UnitID))
	u.Rally = entity.NewRally(caps.IsPylon(u.UnitID))
}
