package session

import (
	"io"

	"go.uber.org/zap"

	"github.com/l1jgo/entpool/internal/chunk"
	"github.com/l1jgo/entpool/internal/codec"
	"github.com/l1jgo/entpool/internal/core/directory"
	"github.com/l1jgo/entpool/internal/core/linked"
	"github.com/l1jgo/entpool/internal/entity"
	"github.com/l1jgo/entpool/internal/saveerr"
)

// Loads decode into staging memory first. Nothing the host can see changes
// until every record of a chunk was read and resolved; the commit step
// cannot fail.

type loadDirs struct {
	sprites *directory.Load[entity.Sprite]
	lone    *directory.Load[entity.LoneSprite]
}

func (s *Session) loadRefs(d loadDirs) *codec.LoadRefs {
	return &codec.LoadRefs{Tables: s.tables, Units: s.unitLoad, Sprites: d.sprites, Lone: d.lone}
}

func (s *Session) LoadSprites(r io.Reader) error {
	if !s.mu.TryLock() {
		return saveerr.ErrBusy
	}
	defer s.mu.Unlock()
	st, err := s.stageSprites(r)
	if err != nil {
		return err
	}
	st.commit()
	return nil
}

func (s *Session) LoadUnits(r io.Reader) error {
	if !s.mu.TryLock() {
		return saveerr.ErrBusy
	}
	defer s.mu.Unlock()
	commit, err := s.stageUnits(r, loadDirs{sprites: s.loadSprites, lone: s.loadLone})
	if err != nil {
		return err
	}
	commit()
	return nil
}

func (s *Session) LoadBullets(r io.Reader) error {
	if !s.mu.TryLock() {
		return saveerr.ErrBusy
	}
	defer s.mu.Unlock()
	commit, err := s.stageBullets(r, loadDirs{sprites: s.loadSprites, lone: s.loadLone})
	if err != nil {
		return err
	}
	commit()
	return nil
}

// LoadAll reads what SaveAll wrote. The three chunks are installed together
// or not at all.
func (s *Session) LoadAll(r io.Reader) error {
	if !s.mu.TryLock() {
		return saveerr.ErrBusy
	}
	defer s.mu.Unlock()
	sprites, err := s.stageSprites(r)
	if err != nil {
		return err
	}
	units, err := s.stageUnits(r, sprites.dirs)
	if err != nil {
		return err
	}
	bullets, err := s.stageBullets(r, sprites.dirs)
	if err != nil {
		return err
	}
	sprites.commit()
	units()
	bullets()
	return nil
}

func (s *Session) openPayload(r io.Reader, spec chunk.Spec) (*chunk.PayloadReader, error) {
	payload, err := chunk.ReadChunk(r, spec)
	if err != nil {
		return nil, err
	}
	return chunk.NewPayloadReader(spec, payload), nil
}

type spriteStage struct {
	dirs    loadDirs
	commit  func()
	sprites int
	images  int
}

func (s *Session) stageSprites(r io.Reader) (*spriteStage, error) {
	pr, err := s.openPayload(r, s.specs.sprites)
	if err != nil {
		return nil, err
	}
	defer pr.Close()

	var g codec.SpriteGlobals
	if err := pr.ReadRecord("sprite globals", g.Decode); err != nil {
		return nil, err
	}
	if int64(g.SpriteCount) > int64(s.sprites.Cap()) {
		return nil, saveerr.Corrupted("%d sprites, pool holds %d", g.SpriteCount, s.sprites.Cap())
	}
	loneTotal := uint64(g.LoneCount) + uint64(g.FowCount)
	if limit := s.lone.Limit(); limit > 0 && loneTotal > uint64(limit) {
		return nil, saveerr.Corrupted("%d lone sprites, pool holds %d", loneTotal, limit)
	}
	if !pr.Fits(uint64(g.SpriteCount), codec.MinSpriteRecordSize) ||
		!pr.Fits(uint64(g.SpriteCount)*codec.MinSpriteRecordSize+loneTotal*codec.LoneRecordSize, 1) {
		return nil, saveerr.Corrupted("%d sprites and %d lone sprites do not fit in the chunk", g.SpriteCount, loneTotal)
	}

	addrs, _ := s.sprites.Reserve(int(g.SpriteCount))
	vals := make([]entity.Sprite, len(addrs))
	loneSlots := make([]*entity.LoneSprite, loneTotal)
	for i := range loneSlots {
		loneSlots[i] = new(entity.LoneSprite)
	}
	dirs := loadDirs{
		sprites: directory.NewLoad("sprite", addrs),
		lone:    directory.NewLoad("lone sprite", loneSlots),
	}
	refs := s.loadRefs(dirs)

	var batches [][]entity.Image
	images := 0
	alloc := func(n int) ([]*entity.Image, []entity.Image, error) {
		at, ok := s.images.ReserveFrom(images, n)
		if !ok {
			return nil, nil, saveerr.Corrupted("more than %d images", s.images.Cap())
		}
		images += n
		vals := make([]entity.Image, n)
		batches = append(batches, vals)
		return at, vals, nil
	}
	for i := range addrs {
		var rec codec.SpriteRecord
		if err := pr.ReadRecord("sprite", rec.Decode); err != nil {
			return nil, err
		}
		if err := refs.Sprite(&rec, addrs[i], &vals[i], alloc); err != nil {
			return nil, err
		}
	}
	for _, ls := range loneSlots {
		var rec codec.LoneRecord
		if err := pr.ReadRecord("lone sprite", rec.Decode); err != nil {
			return nil, err
		}
		if err := refs.LoneSprite(&rec, ls); err != nil {
			return nil, err
		}
	}
	heads, err := loneLinks.Relink(loneSlots, int(g.LoneCount), int(g.FowCount))
	if err != nil {
		return nil, saveerr.Corrupted("lone sprite lists: %v", err)
	}
	lines, err := linked.LoadBuckets(g.Lines, dirs.sprites, s.mapHeight)
	if err != nil {
		return nil, err
	}
	free, err := linked.LoadBuckets([]linked.IDPair{g.FreeSprites}, dirs.sprites, 1)
	if err != nil {
		return nil, err
	}
	if err := s.verifySpriteLists(addrs, vals, lines, free[0]); err != nil {
		return nil, err
	}
	cursor, err := dirs.lone.Pointer(g.CursorMarker)
	if err != nil {
		return nil, err
	}

	st := &spriteStage{dirs: dirs, sprites: len(addrs), images: images}
	st.commit = func() {
		for i, p := range addrs {
			*p = vals[i]
		}
		s.sprites.Resize(len(addrs))
		at, _ := s.images.Reserve(images)
		for _, batch := range batches {
			for _, v := range batch {
				*at[0] = v
				at = at[1:]
			}
		}
		s.images.Resize(images)
		s.lone.Reset()
		s.lone.Adopt(loneSlots...)

		s.G.SpriteLines = lines
		s.G.FreeSprites = linked.Heads[entity.Sprite]{First: free[0].Begin, Last: free[0].End}
		// Free images are not saved; CreateSprite refills the list.
		s.G.FreeImages = linked.Heads[entity.Image]{}
		s.G.ActiveLone, s.G.ActiveFow = heads[0], heads[1]
		s.G.FreeLone = linked.Heads[entity.LoneSprite]{}
		s.G.FreeFow = linked.Heads[entity.LoneSprite]{}
		s.G.CursorMarker = cursor
		s.loadSprites, s.loadLone = dirs.sprites, dirs.lone
		// Directories from an earlier save point at replaced sprites; the
		// next save rebuilds them from what was just installed.
		s.saveSprites, s.saveLone = nil, nil
		s.ClearDrawBuffer()
		s.nextSpawn = 0
		for _, v := range vals {
			s.nextSpawn = max(s.nextSpawn, v.SpawnOrder+1)
		}
		s.reportPools()
		s.log.Info("sprite chunk 已載入",
			zap.Int("sprites", st.sprites),
			zap.Int("images", st.images),
			zap.Int("lone", int(g.LoneCount)),
			zap.Int("fow", int(g.FowCount)))
	}
	return st, nil
}

func (s *Session) stageUnits(r io.Reader, dirs loadDirs) (func(), error) {
	pr, err := s.openPayload(r, s.specs.units)
	if err != nil {
		return nil, err
	}
	defer pr.Close()

	var g codec.UnitGlobals
	if err := pr.ReadRecord("unit globals", g.Decode); err != nil {
		return nil, err
	}
	if int64(g.Count) != int64(s.units.Len()) {
		return nil, saveerr.Corrupted("%d units saved, unit table holds %d", g.Count, s.units.Len())
	}
	if !pr.Fits(uint64(g.Count), codec.MinUnitRecordSize) {
		return nil, saveerr.Corrupted("%d units do not fit in the chunk", g.Count)
	}

	refs := s.loadRefs(dirs)
	staged := make([]entity.Unit, s.units.Len())
	indexed := make([]bool, len(staged))
	for i := range staged {
		var rec codec.UnitRecord
		if err := pr.ReadRecord("unit", rec.Decode); err != nil {
			return nil, err
		}
		if err := refs.Unit(&rec, &staged[i]); err != nil {
			return nil, err
		}
		indexed[i] = rec.InSearch()
	}

	var heads struct {
		active, hidden, dying, revealers, free linked.Heads[entity.Unit]
		invisible                              *entity.Unit
		players                                [entity.Players]*entity.Unit
	}
	resolve := []struct {
		dst **entity.Unit
		id  uint16
	}{
		{&heads.active.First, g.FirstActive}, {&heads.active.Last, g.LastActive},
		{&heads.hidden.First, g.FirstHidden}, {&heads.hidden.Last, g.LastHidden},
		{&heads.dying.First, g.FirstDying}, {&heads.dying.Last, g.LastDying},
		{&heads.revealers.First, g.FirstRevealer}, {&heads.revealers.Last, g.LastRevealer},
		{&heads.free.First, g.FirstFree}, {&heads.free.Last, g.LastFree},
		{&heads.invisible, g.FirstInvisible},
	}
	for i, id := range g.PlayerUnits {
		resolve = append(resolve, struct {
			dst **entity.Unit
			id  uint16
		}{&heads.players[i], id})
	}
	for _, h := range resolve {
		u, err := s.unitLoad.Pointer(uint32(h.id))
		if err != nil {
			return nil, err
		}
		*h.dst = u
	}

	for name, h := range map[string]linked.Heads[entity.Unit]{
		"active": heads.active, "hidden": heads.hidden, "dying": heads.dying,
		"revealer": heads.revealers, "free": heads.free,
	} {
		if err := verifyStaged(s, staged, h, name); err != nil {
			return nil, err
		}
	}

	return func() {
		for i, p := range s.units.Pointers() {
			*p = staged[i]
		}
		s.G.ActiveUnits = heads.active
		s.G.HiddenUnits = heads.hidden
		s.G.DyingUnits = heads.dying
		s.G.Revealers = heads.revealers
		s.G.FreeUnits = heads.free
		s.G.FirstInvisible = heads.invisible
		s.G.PlayerUnits = heads.players

		// The position index and repulsion chunks are not saved; every unit
		// that was indexed goes back in, in active list order.
		reinserted := 0
		for u := range unitLinks.Forward(s.G.ActiveUnits.First) {
			i, ok := s.units.IndexOf(u)
			if !ok || !indexed[i] {
				continue
			}
			s.reinsert.RecomputeSpatial(u)
			s.reinsert.RecomputeRepulsion(u)
			reinserted++
		}
		s.log.Info("unit chunk 已載入",
			zap.Int("units", len(staged)),
			zap.Int("reinserted", reinserted))
	}, nil
}

func (s *Session) stageBullets(r io.Reader, dirs loadDirs) (func(), error) {
	pr, err := s.openPayload(r, s.specs.bullets)
	if err != nil {
		return nil, err
	}
	defer pr.Close()

	var g codec.BulletGlobals
	if err := pr.ReadRecord("bullet globals", g.Decode); err != nil {
		return nil, err
	}
	if limit := s.bullets.Limit(); limit > 0 && int64(g.Count) > int64(limit) {
		return nil, saveerr.Corrupted("%d bullets, pool holds %d", g.Count, limit)
	}
	if !pr.Fits(uint64(g.Count), codec.BulletRecordSize) {
		return nil, saveerr.Corrupted("%d bullets do not fit in the chunk", g.Count)
	}

	slots := make([]*entity.Bullet, g.Count)
	for i := range slots {
		slots[i] = new(entity.Bullet)
	}
	links := directory.NewLoad("bullet", slots)
	refs := s.loadRefs(dirs)
	for _, b := range slots {
		var rec codec.BulletRecord
		if err := pr.ReadRecord("bullet", rec.Decode); err != nil {
			return nil, err
		}
		if err := refs.Bullet(links, &rec, b); err != nil {
			return nil, err
		}
	}
	first, err := links.Pointer(g.First)
	if err != nil {
		return nil, err
	}
	last, err := links.Pointer(g.Last)
	if err != nil {
		return nil, err
	}
	if err := bulletLinks.Verify(first, last, len(slots)); err != nil {
		return nil, saveerr.Corrupted("bullet list: %v", err)
	}
	if n := linked.Count(bulletLinks.Forward(first), 0); n != len(slots) {
		return nil, saveerr.Corrupted("%d bullets saved, list holds %d", len(slots), n)
	}

	return func() {
		s.bullets.Reset()
		s.bullets.Adopt(slots...)
		s.G.ActiveBullets = linked.Heads[entity.Bullet]{First: first, Last: last}
		s.G.FreeBullets = linked.Heads[entity.Bullet]{}
		s.G.BulletCount = 0
		s.reportPools()
		s.log.Info("bullet chunk 已載入", zap.Int("bullets", len(slots)))
	}, nil
}

// verifySpriteLists checks every map row and the free sprite list against
// the staged sprite values before they are installed.
func (s *Session) verifySpriteLists(addrs []*entity.Sprite, vals []entity.Sprite, lines []linked.Bucket[entity.Sprite], free linked.Bucket[entity.Sprite]) error {
	at := func(p *entity.Sprite) *entity.Sprite {
		i, ok := s.sprites.SlotIndex(p)
		if !ok || i >= len(vals) {
			return nil
		}
		return &vals[i]
	}
	links := linked.Links[entity.Sprite]{
		Prev: func(p *entity.Sprite) *entity.Sprite {
			if v := at(p); v != nil {
				return v.Prev
			}
			return nil
		},
		Next: func(p *entity.Sprite) *entity.Sprite {
			if v := at(p); v != nil {
				return v.Next
			}
			return nil
		},
	}
	for i, row := range lines {
		if err := links.Verify(row.Begin, row.End, len(addrs)); err != nil {
			return saveerr.Corrupted("sprite line %d: %v", i, err)
		}
	}
	if err := links.Verify(free.Begin, free.End, len(addrs)); err != nil {
		return saveerr.Corrupted("free sprite list: %v", err)
	}
	return nil
}

// verifyStaged checks a unit list against the staged values: the list heads
// point at table slots, but the links to follow are the ones about to be
// installed.
func verifyStaged(s *Session, staged []entity.Unit, h linked.Heads[entity.Unit], name string) error {
	at := func(u *entity.Unit) *entity.Unit {
		i, ok := s.units.IndexOf(u)
		if !ok {
			return nil
		}
		return &staged[i]
	}
	links := linked.Links[entity.Unit]{
		Prev: func(u *entity.Unit) *entity.Unit { return at(u).Prev },
		Next: func(u *entity.Unit) *entity.Unit { return at(u).Next },
	}
	if err := links.Verify(h.First, h.Last, len(staged)); err != nil {
		return saveerr.Corrupted("%s unit list: %v", name, err)
	}
	return nil
}
