package session

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/l1jgo/entpool/internal/chunk"
	"github.com/l1jgo/entpool/internal/codec"
	"github.com/l1jgo/entpool/internal/core/directory"
	"github.com/l1jgo/entpool/internal/core/linked"
	"github.com/l1jgo/entpool/internal/entity"
	"github.com/l1jgo/entpool/internal/saveerr"
)

// spriteDirs are the directories one sprite chunk was written with.
type spriteDirs struct {
	sprites *directory.Save[entity.Sprite]
	lone    *directory.Save[entity.LoneSprite]
}

func (s *Session) saveRefs(d spriteDirs) *codec.SaveRefs {
	return &codec.SaveRefs{Tables: s.tables, Units: s.unitSave, Sprites: d.sprites, Lone: d.lone}
}

// SaveSprites writes the sprite chunk. Its directories become the ones later
// unit and bullet chunks resolve sprites through.
func (s *Session) SaveSprites(w io.Writer) error {
	if !s.mu.TryLock() {
		return saveerr.ErrBusy
	}
	defer s.mu.Unlock()
	payload, dirs, err := s.encodeSprites()
	if err != nil {
		return err
	}
	if err := s.emit(w, s.specs.sprites, payload); err != nil {
		return err
	}
	s.saveSprites, s.saveLone = dirs.sprites, dirs.lone
	return nil
}

func (s *Session) SaveUnits(w io.Writer) error {
	if !s.mu.TryLock() {
		return saveerr.ErrBusy
	}
	defer s.mu.Unlock()
	payload, err := s.encodeUnits(s.currentSaveDirs())
	if err != nil {
		return err
	}
	return s.emit(w, s.specs.units, payload)
}

func (s *Session) SaveBullets(w io.Writer) error {
	if !s.mu.TryLock() {
		return saveerr.ErrBusy
	}
	defer s.mu.Unlock()
	payload, err := s.encodeBullets(s.currentSaveDirs())
	if err != nil {
		return err
	}
	return s.emit(w, s.specs.bullets, payload)
}

// SaveAll writes the sprite, unit and bullet chunks back to back. All three
// payloads are finished before the first byte reaches w.
func (s *Session) SaveAll(w io.Writer) error {
	if !s.mu.TryLock() {
		return saveerr.ErrBusy
	}
	defer s.mu.Unlock()
	sprites, dirs, err := s.encodeSprites()
	if err != nil {
		return err
	}
	units, err := s.encodeUnits(dirs)
	if err != nil {
		return err
	}
	bullets, err := s.encodeBullets(dirs)
	if err != nil {
		return err
	}
	for _, c := range []struct {
		spec    chunk.Spec
		payload []byte
	}{
		{s.specs.sprites, sprites},
		{s.specs.units, units},
		{s.specs.bullets, bullets},
	} {
		if err := s.emit(w, c.spec, c.payload); err != nil {
			return err
		}
	}
	s.saveSprites, s.saveLone = dirs.sprites, dirs.lone
	return nil
}

// currentSaveDirs falls back to directories built from the live state when
// no sprite chunk was written yet this session.
func (s *Session) currentSaveDirs() spriteDirs {
	if s.saveSprites != nil {
		return spriteDirs{sprites: s.saveSprites, lone: s.saveLone}
	}
	d, err := s.buildSpriteDirs()
	if err != nil {
		// Broken lone lists surface as invalid pointers while encoding.
		s.log.Warn("無法建立 sprite 目錄", zap.Error(err))
	}
	return d
}

func (s *Session) buildSpriteDirs() (spriteDirs, error) {
	var d spriteDirs
	var err error
	// Every arena slot is listed, free sprites included, so ids follow arena
	// order.
	if d.sprites, err = directory.NewSave("sprite", s.sprites.All()); err != nil {
		return d, err
	}
	d.lone, err = directory.NewSave("lone sprite", linked.Concat(
		loneLinks.Forward(s.G.ActiveLone.First),
		loneLinks.Forward(s.G.ActiveFow.First),
	))
	return d, err
}

func (s *Session) encodeSprites() ([]byte, spriteDirs, error) {
	dirs, err := s.buildSpriteDirs()
	if err != nil {
		return nil, dirs, err
	}
	refs := s.saveRefs(dirs)
	lines, err := linked.SaveBuckets(s.G.SpriteLines, dirs.sprites)
	if err != nil {
		return nil, dirs, fmt.Errorf("sprite lines: %w", err)
	}
	free, err := linked.SaveBuckets([]linked.Bucket[entity.Sprite]{{Begin: s.G.FreeSprites.First, End: s.G.FreeSprites.Last}}, dirs.sprites)
	if err != nil {
		return nil, dirs, fmt.Errorf("free sprites: %w", err)
	}
	cursor, err := dirs.lone.ID(s.G.CursorMarker)
	if err != nil {
		return nil, dirs, fmt.Errorf("cursor marker: %w", err)
	}
	loneCount := linked.Count(loneLinks.Forward(s.G.ActiveLone.First), 0)
	g := &codec.SpriteGlobals{
		Lines:        lines,
		FreeSprites:  free[0],
		SpriteCount:  uint32(dirs.sprites.Len()),
		LoneCount:    uint32(loneCount),
		FowCount:     uint32(dirs.lone.Len() - loneCount),
		CursorMarker: cursor,
	}

	pw := chunk.NewPayloadWriter(s.specs.sprites)
	if err := pw.WriteRecord(g); err != nil {
		return nil, dirs, err
	}
	for sp := range s.sprites.All() {
		rec, err := refs.Sprite(sp, s.images.Cap())
		if err != nil {
			return nil, dirs, err
		}
		if err := pw.WriteRecord(rec); err != nil {
			return nil, dirs, err
		}
	}
	for ls := range linked.Concat(loneLinks.Forward(s.G.ActiveLone.First), loneLinks.Forward(s.G.ActiveFow.First)) {
		if !s.lone.Owns(ls) {
			return nil, dirs, &saveerr.InvalidPointerError{Kind: "lone sprite"}
		}
		rec, err := refs.LoneSprite(ls)
		if err != nil {
			return nil, dirs, err
		}
		if err := pw.WriteRecord(rec); err != nil {
			return nil, dirs, err
		}
	}
	payload, err := pw.Finish()
	return payload, dirs, err
}

func (s *Session) encodeUnits(dirs spriteDirs) ([]byte, error) {
	refs := s.saveRefs(dirs)
	g := &codec.UnitGlobals{Count: uint32(s.units.Len())}
	heads := []struct {
		dst *uint16
		u   *entity.Unit
	}{
		{&g.FirstActive, s.G.ActiveUnits.First}, {&g.LastActive, s.G.ActiveUnits.Last},
		{&g.FirstHidden, s.G.HiddenUnits.First}, {&g.LastHidden, s.G.HiddenUnits.Last},
		{&g.FirstDying, s.G.DyingUnits.First}, {&g.LastDying, s.G.DyingUnits.Last},
		{&g.FirstRevealer, s.G.Revealers.First}, {&g.LastRevealer, s.G.Revealers.Last},
		{&g.FirstFree, s.G.FreeUnits.First}, {&g.LastFree, s.G.FreeUnits.Last},
		{&g.FirstInvisible, s.G.FirstInvisible},
	}
	for i, u := range s.G.PlayerUnits {
		heads = append(heads, struct {
			dst *uint16
			u   *entity.Unit
		}{&g.PlayerUnits[i], u})
	}
	for _, h := range heads {
		id, err := s.unitSave.ID(h.u)
		if err != nil {
			return nil, fmt.Errorf("unit list heads: %w", err)
		}
		*h.dst = uint16(id)
	}

	pw := chunk.NewPayloadWriter(s.specs.units)
	if err := pw.WriteRecord(g); err != nil {
		return nil, err
	}
	for u := range s.units.All() {
		rec, err := refs.Unit(u)
		if err != nil {
			return nil, err
		}
		if err := pw.WriteRecord(rec); err != nil {
			return nil, err
		}
	}
	return pw.Finish()
}

func (s *Session) encodeBullets(dirs spriteDirs) ([]byte, error) {
	links, err := directory.NewSave("bullet", bulletLinks.Forward(s.G.ActiveBullets.First))
	if err != nil {
		return nil, err
	}
	first, err := links.ID(s.G.ActiveBullets.First)
	if err != nil {
		return nil, err
	}
	last, err := links.ID(s.G.ActiveBullets.Last)
	if err != nil {
		return nil, fmt.Errorf("last bullet: %w", err)
	}
	refs := s.saveRefs(dirs)
	pw := chunk.NewPayloadWriter(s.specs.bullets)
	if err := pw.WriteRecord(&codec.BulletGlobals{First: first, Last: last, Count: uint32(links.Len())}); err != nil {
		return nil, err
	}
	for b := range bulletLinks.Forward(s.G.ActiveBullets.First) {
		if !s.bullets.Owns(b) {
			return nil, &saveerr.InvalidPointerError{Kind: "bullet"}
		}
		rec, err := refs.Bullet(links, b)
		if err != nil {
			return nil, err
		}
		if err := pw.WriteRecord(rec); err != nil {
			return nil, err
		}
	}
	return pw.Finish()
}

func (s *Session) emit(w io.Writer, spec chunk.Spec, payload []byte) error {
	if err := chunk.WriteChunk(w, spec, payload); err != nil {
		return err
	}
	s.met.ChunkWritten(spec.Name, len(payload))
	s.log.Debug("chunk 已寫入",
		zap.String("kind", spec.Name),
		zap.Int("payload", len(payload)))
	return nil
}
