package session

import (
	"go.uber.org/zap"

	"github.com/l1jgo/entpool/internal/core/arena"
	"github.com/l1jgo/entpool/internal/core/linked"
	"github.com/l1jgo/entpool/internal/entity"
)

// CreateSprite runs the host sprite constructor with the free lists topped
// up, then stamps the new sprite with the next spawn order. Outside a game
// the constructor runs untouched.
func (s *Session) CreateSprite(create func() *entity.Sprite) *entity.Sprite {
	if s.G.Lobby {
		return create()
	}
	s.refillFree()
	sp := create()
	if sp != nil {
		sp.SpawnOrder = s.nextSpawn
		s.nextSpawn++
	}
	return sp
}

// refillFree pushes fresh arena slots onto the free sprite and image lists
// until each holds its target count or the arena runs out.
func (s *Session) refillFree() {
	if !topUp(s.sprites, spriteLinks, &s.G.FreeSprites, freeSpriteTarget) {
		s.exhausted("sprites")
	}
	if !topUp(s.images, imageLinks, &s.G.FreeImages, freeImageTarget) {
		s.exhausted("images")
	}
	s.reportPools()
}

// topUp appends zeroed slots from p to the free list until it holds target
// nodes. Returns false if p ran out first.
func topUp[T any](p arena.SlotProvider[T], links linked.Links[T], free *linked.Heads[T], target int) bool {
	for have := linked.Count(links.Forward(free.First), target); have < target; have++ {
		n := p.Alloc()
		if n == nil {
			return false
		}
		var zero T
		*n = zero
		links.PushBack(free, n)
	}
	return true
}

func (s *Session) exhausted(pool string) {
	s.met.Exhausted(pool)
	s.log.Warn("pool 已滿", zap.String("pool", pool))
}

// CreateBullet hands the host constructor a single-slot free list holding a
// freshly allocated bullet. The bullet count is forced to 0 so the host's
// own limit never rejects the request.
func (s *Session) CreateBullet(create func() *entity.Bullet) *entity.Bullet {
	s.G.BulletCount = 0
	b := s.bullets.Alloc()
	if b == nil {
		s.exhausted("bullets")
		return nil
	}
	s.G.FreeBullets = linked.Heads[entity.Bullet]{First: b, Last: b}
	got := create()
	s.G.FreeBullets = linked.Heads[entity.Bullet]{}
	switch {
	case got == nil:
		s.log.Info("無法建立 bullet")
		s.bullets.Release(b)
	case got != b:
		s.log.Error("bullet 建立結果不是配置的 slot")
		s.bullets.Release(b)
	}
	s.reportPools()
	return got
}

// DeleteBullet frees b through the host destructor once its sprite is gone.
// A bullet still owning a sprite is left alone; the host deletes it again
// later.
func (s *Session) DeleteBullet(b *entity.Bullet, remove func(*entity.Bullet)) {
	if b.Sprite != nil {
		return
	}
	s.G.FreeBullets = linked.Heads[entity.Bullet]{}
	remove(b)
	s.G.FreeBullets = linked.Heads[entity.Bullet]{}
	if !s.bullets.Release(b) {
		s.log.Error("釋放不屬於 pool 的 bullet")
	}
	s.reportPools()
}

// CreateLoneSprite and CreateFowSprite work like CreateBullet over the lone
// and fog sprite free lists.
func (s *Session) CreateLoneSprite(create func() *entity.LoneSprite) *entity.LoneSprite {
	return s.createLone(&s.G.FreeLone, "lone sprite", create)
}

func (s *Session) CreateFowSprite(create func() *entity.LoneSprite) *entity.LoneSprite {
	return s.createLone(&s.G.FreeFow, "fow sprite", create)
}

func (s *Session) createLone(free *linked.Heads[entity.LoneSprite], kind string, create func() *entity.LoneSprite) *entity.LoneSprite {
	ls := s.lone.Alloc()
	if ls == nil {
		s.exhausted("lone_sprites")
		return nil
	}
	*free = linked.Heads[entity.LoneSprite]{First: ls, Last: ls}
	got := create()
	*free = linked.Heads[entity.LoneSprite]{}
	switch {
	case got == nil:
		s.log.Info("無法建立 "+kind)
		s.lone.Release(ls)
	case got != ls:
		s.log.Error(kind+" 建立結果不是配置的 slot")
		s.lone.Release(ls)
	}
	s.reportPools()
	return got
}

// StepLoneSprite runs one host frame of ls. The host signals deletion by
// moving ls to the free list; the slot is then released.
func (s *Session) StepLoneSprite(ls *entity.LoneSprite, step func(*entity.LoneSprite)) {
	s.stepLone(&s.G.FreeLone, ls, step)
}

func (s *Session) StepFowSprite(ls *entity.LoneSprite, step func(*entity.LoneSprite)) {
	s.stepLone(&s.G.FreeFow, ls, step)
}

func (s *Session) stepLone(free *linked.Heads[entity.LoneSprite], ls *entity.LoneSprite, step func(*entity.LoneSprite)) {
	*free = linked.Heads[entity.LoneSprite]{}
	step(ls)
	if free.First == ls {
		*free = linked.Heads[entity.LoneSprite]{}
		s.lone.Release(ls)
		s.reportPools()
	}
}

// AllocUnit moves the first free unit to the end of the active list and
// returns it cleared, or nil when the unit table is full.
func (s *Session) AllocUnit() *entity.Unit {
	u := unitLinks.PopFront(&s.G.FreeUnits)
	if u == nil {
		s.exhausted("units")
		return nil
	}
	*u = entity.Unit{PosSearch: entity.UnsetSearchBox}
	unitLinks.PushBack(&s.G.ActiveUnits, u)
	return u
}

// FreeUnit moves u from the active list back to the free list and drops it
// from its player's unit list.
func (s *Session) FreeUnit(u *entity.Unit) {
	unitLinks.Unlink(&s.G.ActiveUnits, u)
	if int(u.Player) < len(s.G.PlayerUnits) {
		h := linked.Heads[entity.Unit]{First: s.G.PlayerUnits[u.Player]}
		playerUnitLinks.Unlink(&h, u)
		s.G.PlayerUnits[u.Player] = h.First
	}
	*u = entity.Unit{PosSearch: entity.UnsetSearchBox}
	unitLinks.PushBack(&s.G.FreeUnits, u)
}

// LinkPlayerUnit puts u at the head of its player's unit list.
func (s *Session) LinkPlayerUnit(u *entity.Unit) {
	if int(u.Player) >= len(s.G.PlayerUnits) {
		return
	}
	h := linked.Heads[entity.Unit]{First: s.G.PlayerUnits[u.Player]}
	playerUnitLinks.PushFront(&h, u)
	s.G.PlayerUnits[u.Player] = h.First
}
