package session

import (
	"cmp"
	"slices"

	"github.com/l1jgo/entpool/internal/entity"
)

// DrawOrder compares two sprites for drawing: lower elevation first, then
// lower y for ground level sprites (elevation <= 4), then sprites without
// the draw-on-top flag, then older sprites.
func DrawOrder(a, b *entity.Sprite) int {
	if c := cmp.Compare(a.Elevation, b.Elevation); c != 0 {
		return c
	}
	if a.Elevation <= 4 {
		if c := cmp.Compare(a.Position.Y, b.Position.Y); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(a.Flags&entity.SpriteDrawOnTop, b.Flags&entity.SpriteDrawOnTop); c != 0 {
		return c
	}
	return cmp.Compare(a.SpawnOrder, b.SpawnOrder)
}

// AddToDrawn queues sp for this frame and applies vision sync for its map
// row.
func (s *Session) AddToDrawn(sp *entity.Sprite) {
	s.drawBuf = append(s.drawBuf, sp)
	if s.syncsVision == nil || !s.syncsVision(sp.SpriteID) || len(s.G.VisionSync) == 0 {
		return
	}
	row := int(sp.Position.Y) / 32
	row = max(0, min(row, len(s.G.VisionSync)-1))
	s.G.VisionSync[row] ^= s.G.PlayerVisions
}

// DrawSprites calls draw for every queued sprite in draw order.
func (s *Session) DrawSprites(draw func(*entity.Sprite)) {
	slices.SortStableFunc(s.drawBuf, DrawOrder)
	for _, sp := range s.drawBuf {
		draw(sp)
	}
}

// ClearDrawBuffer runs after the host redraws the screen.
func (s *Session) ClearDrawBuffer() {
	clear(s.drawBuf)
	s.drawBuf = s.drawBuf[:0]
}

func (s *Session) Drawn() int { return len(s.drawBuf) }
