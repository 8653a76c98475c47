// Package session owns every entity pool of one game session and moves them
// in and out of save chunks.
//
// A Session is driven from the host's single game thread. Save and load
// operations are additionally guarded against re-entry: a call made while
// another one is running fails with saveerr.ErrBusy.
package session

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/l1jgo/entpool/internal/chunk"
	"github.com/l1jgo/entpool/internal/codec"
	"github.com/l1jgo/entpool/internal/config"
	"github.com/l1jgo/entpool/internal/core/arena"
	"github.com/l1jgo/entpool/internal/core/directory"
	"github.com/l1jgo/entpool/internal/core/linked"
	"github.com/l1jgo/entpool/internal/data"
	"github.com/l1jgo/entpool/internal/entity"
	"github.com/l1jgo/entpool/internal/host"
	"github.com/l1jgo/entpool/internal/metrics"
)

// SupportedSaveVersion is the only host game state bullet and unit chunks
// are read in.
const SupportedSaveVersion = 3

// Free list sizes CreateSprite keeps available to the host allocator.
const (
	freeSpriteTarget = 500
	freeImageTarget  = 1500
)

// Globals are the host's list heads and counters. The host reads and writes
// them directly between calls; the session rewrites them on load.
type Globals struct {
	// Lobby is set while the host is outside a game; sprite creation is not
	// intercepted then.
	Lobby bool

	SpriteLines []linked.Bucket[entity.Sprite] // one per 32px map row
	FreeSprites linked.Heads[entity.Sprite]
	FreeImages  linked.Heads[entity.Image]

	ActiveLone   linked.Heads[entity.LoneSprite]
	ActiveFow    linked.Heads[entity.LoneSprite]
	FreeLone     linked.Heads[entity.LoneSprite]
	FreeFow      linked.Heads[entity.LoneSprite]
	CursorMarker *entity.LoneSprite

	ActiveBullets linked.Heads[entity.Bullet]
	FreeBullets   linked.Heads[entity.Bullet]
	BulletCount   uint32 // always 0; the host's own bullet limit never triggers

	ActiveUnits    linked.Heads[entity.Unit]
	HiddenUnits    linked.Heads[entity.Unit]
	DyingUnits     linked.Heads[entity.Unit]
	Revealers      linked.Heads[entity.Unit]
	FreeUnits      linked.Heads[entity.Unit]
	FirstInvisible *entity.Unit
	PlayerUnits    [entity.Players]*entity.Unit

	// VisionSync holds one byte per map row, toggled with PlayerVisions when
	// a synced sprite is drawn on that row.
	VisionSync    []uint8
	PlayerVisions uint8
}

type Options struct {
	Pools  config.PoolsConfig
	Limits config.LimitsConfig
	Caps   *data.Capabilities
	// Grps is the host grp table; a table of Pools.Grps empty handles when nil.
	Grps *arena.Table[entity.Grp]

	Reinserter host.Reinserter
	Messenger  *host.Messenger
	Metrics    *metrics.Metrics
	Log        *zap.Logger

	// SyncsVision reports sprite ids taking part in vision sync. Nil means
	// none do.
	SyncsVision func(spriteID uint16) bool
}

type Session struct {
	G Globals

	sprites *arena.Arena[entity.Sprite]
	images  *arena.Arena[entity.Image]
	units   *arena.Table[entity.Unit]
	bullets *arena.HeapPool[entity.Bullet]
	lone    *arena.HeapPool[entity.LoneSprite]
	tables  *codec.Tables

	specs struct{ bullets, sprites, units chunk.Spec }

	// Units never move, so both unit directories live for the whole session.
	unitSave *directory.Save[entity.Unit]
	unitLoad *directory.Load[entity.Unit]
	// Sprite directories of the last sprite chunk saved or loaded. Unit and
	// bullet chunks written or read later resolve sprites through them.
	saveSprites *directory.Save[entity.Sprite]
	saveLone    *directory.Save[entity.LoneSprite]
	loadSprites *directory.Load[entity.Sprite]
	loadLone    *directory.Load[entity.LoneSprite]

	mapHeight   int
	nextSpawn   uint64
	drawBuf     []*entity.Sprite
	syncsVision func(uint16) bool

	reinsert host.Reinserter
	msg      *host.Messenger
	met      *metrics.Metrics
	log      *zap.Logger

	mu sync.Mutex // held for the duration of a save or load
}

func New(opts Options) (*Session, error) {
	p := opts.Pools
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("session pools: %w", err)
	}
	caps := opts.Caps
	if caps == nil {
		caps = data.DefaultCapabilities()
	}
	grps := opts.Grps
	if grps == nil {
		grps = arena.NewTable[entity.Grp](p.Grps)
		for i := range grps.Len() {
			g, _ := grps.At(i)
			g.ID = uint16(i)
		}
	}
	palettes := arena.NewTable[entity.RemapPalette](len(caps.RemapPalettes()))
	for i, name := range caps.RemapPalettes() {
		pal, _ := palettes.At(i)
		pal.Name = name
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	reinsert := opts.Reinserter
	if reinsert == nil {
		reinsert = host.NopReinserter{}
	}

	s := &Session{
		sprites: arena.New[entity.Sprite](p.Sprites),
		images:  arena.New[entity.Image](p.Images),
		units:   arena.NewTable[entity.Unit](p.Units),
		bullets: arena.NewHeapPool[entity.Bullet](p.Bullets),
		lone:    arena.NewHeapPool[entity.LoneSprite](p.Lone),
		tables: &codec.Tables{
			Orders:   arena.NewTable[entity.Order](p.Orders),
			Paths:    arena.NewTable[entity.Path](p.Paths),
			AI:       entity.NewAITables(p.AI),
			Grps:     grps,
			Palettes: palettes,
			Caps:     caps,
		},
		mapHeight:   p.MapHeight,
		syncsVision: opts.SyncsVision,
		reinsert:    reinsert,
		msg:         opts.Messenger,
		met:         opts.Metrics,
		log:         log,
	}
	s.specs.bullets = chunk.Bullets.WithLimit(opts.Limits.Bullets)
	s.specs.sprites = chunk.Sprites.WithLimit(opts.Limits.Sprites)
	s.specs.units = chunk.Units.WithLimit(opts.Limits.Units)

	unitSlots := s.units.Pointers()
	// A fixed table has no duplicates, so this cannot fail.
	s.unitSave, _ = directory.NewSave("unit", s.units.All())
	s.unitLoad = directory.NewLoad("unit", unitSlots)

	s.resetGlobals()
	s.InitUnits()
	s.log.Info("session 建立",
		zap.Int("sprites", p.Sprites),
		zap.Int("images", p.Images),
		zap.Int("units", p.Units),
		zap.Int("map_height", p.MapHeight))
	return s, nil
}

func (s *Session) resetGlobals() {
	s.G = Globals{
		SpriteLines: make([]linked.Bucket[entity.Sprite], s.mapHeight),
		VisionSync:  make([]uint8, s.mapHeight),
	}
}

// InitUnits threads every unit table slot onto the free unit list in table
// order and empties the other unit lists, as the host does at game start.
func (s *Session) InitUnits() {
	slots := s.units.Pointers()
	for _, u := range slots {
		*u = entity.Unit{PosSearch: entity.UnsetSearchBox}
	}
	heads, _ := unitLinks.Relink(slots, len(slots))
	s.G.FreeUnits = heads[0]
	s.G.ActiveUnits = linked.Heads[entity.Unit]{}
	s.G.HiddenUnits = linked.Heads[entity.Unit]{}
	s.G.DyingUnits = linked.Heads[entity.Unit]{}
	s.G.Revealers = linked.Heads[entity.Unit]{}
	s.G.FirstInvisible = nil
	s.G.PlayerUnits = [entity.Players]*entity.Unit{}
}

// End releases everything the session allocated. Bullets and lone sprites
// are dropped, the arenas forget their slots and every head is cleared.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bullets.Reset()
	s.lone.Reset()
	s.sprites.Reset()
	s.images.Reset()
	s.resetGlobals()
	s.InitUnits()
	s.drawBuf = nil
	s.saveSprites, s.saveLone = nil, nil
	s.loadSprites, s.loadLone = nil, nil
	s.reportPools()
	s.log.Info("session 結束")
}

// Tables exposes the fixed host tables entities point into.
func (s *Session) Tables() *codec.Tables { return s.tables }

// Unit returns the unit in table slot i.
func (s *Session) Unit(i int) (*entity.Unit, bool) { return s.units.At(i) }

// Stats is a snapshot of pool occupancy.
type Stats struct {
	Sprites, SpriteCap int
	Images, ImageCap   int
	Units              int
	ActiveUnits        int
	Bullets            int
	Lone               int
	Fow                int
}

func (s *Session) Stats() Stats {
	limit := s.units.Len()
	return Stats{
		Sprites:     s.sprites.Len(),
		SpriteCap:   s.sprites.Cap(),
		Images:      s.images.Len(),
		ImageCap:    s.images.Cap(),
		Units:       s.units.Len(),
		ActiveUnits: linked.Count(unitLinks.Forward(s.G.ActiveUnits.First), limit),
		Bullets:     s.bullets.Len(),
		Lone:        linked.Count(loneLinks.Forward(s.G.ActiveLone.First), s.lone.Len()+1),
		Fow:         linked.Count(loneLinks.Forward(s.G.ActiveFow.First), s.lone.Len()+1),
	}
}

func (s *Session) reportPools() {
	if s.met == nil {
		return
	}
	s.met.PoolUsage("sprites", s.sprites.Len())
	s.met.PoolUsage("images", s.images.Len())
	s.met.PoolUsage("bullets", s.bullets.Len())
	s.met.PoolUsage("lone_sprites", s.lone.Len())
}

var (
	spriteLinks = linked.Links[entity.Sprite]{
		Prev:    func(s *entity.Sprite) *entity.Sprite { return s.Prev },
		Next:    func(s *entity.Sprite) *entity.Sprite { return s.Next },
		SetPrev: func(s, p *entity.Sprite) { s.Prev = p },
		SetNext: func(s, n *entity.Sprite) { s.Next = n },
	}
	imageLinks = linked.Links[entity.Image]{
		Prev:    func(i *entity.Image) *entity.Image { return i.Prev },
		Next:    func(i *entity.Image) *entity.Image { return i.Next },
		SetPrev: func(i, p *entity.Image) { i.Prev = p },
		SetNext: func(i, n *entity.Image) { i.Next = n },
	}
	loneLinks = linked.Links[entity.LoneSprite]{
		Prev:    func(l *entity.LoneSprite) *entity.LoneSprite { return l.Prev },
		Next:    func(l *entity.LoneSprite) *entity.LoneSprite { return l.Next },
		SetPrev: func(l, p *entity.LoneSprite) { l.Prev = p },
		SetNext: func(l, n *entity.LoneSprite) { l.Next = n },
	}
	bulletLinks = linked.Links[entity.Bullet]{
		Prev:    func(b *entity.Bullet) *entity.Bullet { return b.Prev },
		Next:    func(b *entity.Bullet) *entity.Bullet { return b.Next },
		SetPrev: func(b, p *entity.Bullet) { b.Prev = p },
		SetNext: func(b, n *entity.Bullet) { b.Next = n },
	}
	unitLinks = linked.Links[entity.Unit]{
		Prev:    func(u *entity.Unit) *entity.Unit { return u.Prev },
		Next:    func(u *entity.Unit) *entity.Unit { return u.Next },
		SetPrev: func(u, p *entity.Unit) { u.Prev = p },
		SetNext: func(u, n *entity.Unit) { u.Next = n },
	}
	playerUnitLinks = linked.Links[entity.Unit]{
		Prev:    func(u *entity.Unit) *entity.Unit { return u.PrevPlayerUnit },
		Next:    func(u *entity.Unit) *entity.Unit { return u.NextPlayerUnit },
		SetPrev: func(u, p *entity.Unit) { u.PrevPlayerUnit = p },
		SetNext: func(u, n *entity.Unit) { u.NextPlayerUnit = n },
	}
)

// SpriteLinks and friends let hosts and tools walk session lists.
func SpriteLinks() linked.Links[entity.Sprite]   { return spriteLinks }
func ImageLinks() linked.Links[entity.Image]     { return imageLinks }
func LoneLinks() linked.Links[entity.LoneSprite] { return loneLinks }
func BulletLinks() linked.Links[entity.Bullet]   { return bulletLinks }
func UnitLinks() linked.Links[entity.Unit]       { return unitLinks }
