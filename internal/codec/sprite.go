package codec

import (
	"github.com/l1jgo/entpool/internal/core/linked"
	"github.com/l1jgo/entpool/internal/entity"
	"github.com/l1jgo/entpool/internal/saveerr"
	"github.com/l1jgo/entpool/internal/wire"
)

// Encoded sizes. A sprite record is MinSpriteRecordSize plus its images.
const (
	ImageRecordSize     = 42
	LoneRecordSize      = 8
	MinSpriteRecordSize = 44
	linePairSize        = 8
)

// SpriteGlobals heads the sprite chunk. Lone and fog sprites are written
// back to back after the sprites, lone ones first. Free sprites are saved
// with the rest, so the free list heads are kept too.
type SpriteGlobals struct {
	Lines        []linked.IDPair
	FreeSprites  linked.IDPair
	SpriteCount  uint32
	LoneCount    uint32
	FowCount     uint32
	CursorMarker uint32
}

func (g *SpriteGlobals) Encode(w *wire.Writer) {
	w.WriteLen(len(g.Lines))
	for _, p := range g.Lines {
		w.WriteU32(p.Begin)
		w.WriteU32(p.End)
	}
	w.WriteU32(g.FreeSprites.Begin)
	w.WriteU32(g.FreeSprites.End)
	w.WriteU32(g.SpriteCount)
	w.WriteU32(g.LoneCount)
	w.WriteU32(g.FowCount)
	w.WriteU32(g.CursorMarker)
}

func (g *SpriteGlobals) Decode(r *wire.Reader) {
	n := r.ReadLen(linePairSize)
	g.Lines = make([]linked.IDPair, n)
	for i := range g.Lines {
		g.Lines[i] = linked.IDPair{Begin: r.ReadU32(), End: r.ReadU32()}
	}
	g.FreeSprites = linked.IDPair{Begin: r.ReadU32(), End: r.ReadU32()}
	g.SpriteCount = r.ReadU32()
	g.LoneCount = r.ReadU32()
	g.FowCount = r.ReadU32()
	g.CursorMarker = r.ReadU32()
}

type ImageRecord struct {
	ImageID        uint16
	Drawfunc       uint8
	Direction      uint8
	Flags          uint16
	XOffset        int8
	YOffset        int8
	Iscript        entity.Iscript
	Frameset       uint16
	Frame          uint16
	MapPosition    entity.Point
	ScreenPosition [2]int16
	GrpBounds      [4]int16
	Grp            uint16
	DrawParam      uint32
}

func (m *ImageRecord) Encode(w *wire.Writer) {
	w.WriteU16(m.ImageID)
	w.WriteU8(m.Drawfunc)
	w.WriteU8(m.Direction)
	w.WriteU16(m.Flags)
	w.WriteI8(m.XOffset)
	w.WriteI8(m.YOffset)
	w.WriteU16(m.Iscript.Header)
	w.WriteU16(m.Iscript.Pos)
	w.WriteU16(m.Iscript.ReturnPos)
	w.WriteU8(m.Iscript.AnimationID)
	w.WriteU8(m.Iscript.Wait)
	w.WriteU16(m.Frameset)
	w.WriteU16(m.Frame)
	writePoint(w, m.MapPosition)
	for _, v := range m.ScreenPosition {
		w.WriteI16(v)
	}
	for _, v := range m.GrpBounds {
		w.WriteI16(v)
	}
	w.WriteU16(m.Grp)
	w.WriteU32(m.DrawParam)
}

func (m *ImageRecord) Decode(r *wire.Reader) {
	m.ImageID = r.ReadU16()
	m.Drawfunc = r.ReadU8()
	m.Direction = r.ReadU8()
	m.Flags = r.ReadU16()
	m.XOffset = r.ReadI8()
	m.YOffset = r.ReadI8()
	m.Iscript = entity.Iscript{
		Header:      r.ReadU16(),
		Pos:         r.ReadU16(),
		ReturnPos:   r.ReadU16(),
		AnimationID: r.ReadU8(),
		Wait:        r.ReadU8(),
	}
	m.Frameset = r.ReadU16()
	m.Frame = r.ReadU16()
	m.MapPosition = readPoint(r)
	for i := range m.ScreenPosition {
		m.ScreenPosition[i] = r.ReadI16()
	}
	for i := range m.GrpBounds {
		m.GrpBounds[i] = r.ReadI16()
	}
	m.Grp = r.ReadU16()
	m.DrawParam = r.ReadU32()
}

// SpriteRecord carries the sprite's overlays inline, in list order, without
// selection overlays. MainImage is a 1-based index into Images.
type SpriteRecord struct {
	Prev, Next          uint32
	SpriteID            uint16
	Player              uint8
	SelectionIndex      uint8
	VisibilityMask      uint8
	Elevation           uint8
	Flags               uint8
	SelectionFlashTimer uint8
	Index               uint16
	Width               uint8
	Height              uint8
	Position            entity.Point
	MainImage           uint32
	Images              []ImageRecord
	SpawnOrder          uint64
}

func (s *SpriteRecord) Encode(w *wire.Writer) {
	w.WriteU32(s.Prev)
	w.WriteU32(s.Next)
	w.WriteU16(s.SpriteID)
	w.WriteU8(s.Player)
	w.WriteU8(s.SelectionIndex)
	w.WriteU8(s.VisibilityMask)
	w.WriteU8(s.Elevation)
	w.WriteU8(s.Flags)
	w.WriteU8(s.SelectionFlashTimer)
	w.WriteU16(s.Index)
	w.WriteU8(s.Width)
	w.WriteU8(s.Height)
	writePoint(w, s.Position)
	w.WriteU32(s.MainImage)
	w.WriteLen(len(s.Images))
	for i := range s.Images {
		s.Images[i].Encode(w)
	}
	w.WriteU64(s.SpawnOrder)
}

func (s *SpriteRecord) Decode(r *wire.Reader) {
	s.Prev = r.ReadU32()
	s.Next = r.ReadU32()
	s.SpriteID = r.ReadU16()
	s.Player = r.ReadU8()
	s.SelectionIndex = r.ReadU8()
	s.VisibilityMask = r.ReadU8()
	s.Elevation = r.ReadU8()
	s.Flags = r.ReadU8()
	s.SelectionFlashTimer = r.ReadU8()
	s.Index = r.ReadU16()
	s.Width = r.ReadU8()
	s.Height = r.ReadU8()
	s.Position = readPoint(r)
	s.MainImage = r.ReadU32()
	n := r.ReadLen(ImageRecordSize)
	s.Images = make([]ImageRecord, n)
	for i := range s.Images {
		s.Images[i].Decode(r)
	}
	s.SpawnOrder = r.ReadU64()
}

type LoneRecord struct {
	Sprite uint32
	Value  uint32
}

func (l *LoneRecord) Encode(w *wire.Writer) {
	w.WriteU32(l.Sprite)
	w.WriteU32(l.Value)
}

func (l *LoneRecord) Decode(r *wire.Reader) {
	l.Sprite = r.ReadU32()
	l.Value = r.ReadU32()
}

// Sprite flattens sp. imageLimit caps the overlay walk so a corrupted
// overlay list cannot loop forever.
func (s *SaveRefs) Sprite(sp *entity.Sprite, imageLimit int) (*SpriteRecord, error) {
	rec := &SpriteRecord{
		SpriteID:            sp.SpriteID,
		Player:              sp.Player,
		SelectionIndex:      sp.SelectionIndex,
		VisibilityMask:      sp.VisibilityMask,
		Elevation:           sp.Elevation,
		Flags:               sp.Flags &^ (entity.SpriteSelected | entity.SpriteSelectionBar),
		SelectionFlashTimer: sp.SelectionFlashTimer,
		Index:               sp.Index,
		Width:               sp.Width,
		Height:              sp.Height,
		Position:            sp.Position,
		SpawnOrder:          sp.SpawnOrder,
	}
	var err error
	if rec.Prev, err = s.Sprites.ID(sp.Prev); err != nil {
		return nil, err
	}
	if rec.Next, err = s.Sprites.ID(sp.Next); err != nil {
		return nil, err
	}
	walked := 0
	for img := sp.FirstOverlay; img != nil; img = img.Next {
		walked++
		if imageLimit > 0 && walked > imageLimit {
			return nil, &saveerr.InvalidPointerError{Kind: "image list"}
		}
		if entity.IsSelectionOverlay(img) {
			continue
		}
		m, err := s.image(img)
		if err != nil {
			return nil, err
		}
		rec.Images = append(rec.Images, m)
		// The main image may be unreachable from the overlay list; it is then
		// saved as 0.
		if img == sp.MainImage {
			rec.MainImage = uint32(len(rec.Images))
		}
	}
	return rec, nil
}

func (s *SaveRefs) image(img *entity.Image) (ImageRecord, error) {
	m := ImageRecord{
		ImageID:        img.ImageID,
		Drawfunc:       img.Drawfunc,
		Direction:      img.Direction,
		Flags:          img.Flags,
		XOffset:        img.XOffset,
		YOffset:        img.YOffset,
		Iscript:        img.Iscript,
		Frameset:       img.Frameset,
		Frame:          img.Frame,
		MapPosition:    img.MapPosition,
		ScreenPosition: img.ScreenPosition,
		GrpBounds:      img.GrpBounds,
	}
	var err error
	if m.Grp, err = s.grp(img.Grp); err != nil {
		return m, err
	}
	if m.DrawParam, err = s.drawParam(img.Drawfunc, img.DrawParam); err != nil {
		return m, err
	}
	return m, nil
}

func (s *SaveRefs) drawParam(drawfunc uint8, p entity.DrawParam) (uint32, error) {
	want := entity.DrawParamKindFor(drawfunc)
	if got := entity.KindOf(p, want); got != want {
		return 0, &saveerr.VariantError{Field: "image draw param", Want: want.String(), Got: got.String()}
	}
	if p == nil {
		return 0, nil
	}
	switch v := p.(type) {
	case entity.RemapParam:
		return tableID("remap palette", s.Palettes, v.Palette)
	case entity.UnitParam:
		id, err := s.unit(v.Unit)
		return uint32(id), err
	case entity.RawParam:
		return uint32(v), nil
	}
	return 0, nil
}

// ImageAlloc reserves n image slots for one sprite: the addresses the images
// will have once the load is committed, and staging values to fill now.
type ImageAlloc func(n int) (addrs []*entity.Image, vals []entity.Image, err error)

// Sprite fills the staging value dst for the sprite that will live at self.
func (l *LoadRefs) Sprite(rec *SpriteRecord, self, dst *entity.Sprite, alloc ImageAlloc) error {
	prev, err := l.Sprites.Pointer(rec.Prev)
	if err != nil {
		return err
	}
	next, err := l.Sprites.Pointer(rec.Next)
	if err != nil {
		return err
	}
	addrs, vals, err := alloc(len(rec.Images))
	if err != nil {
		return err
	}
	for i := range rec.Images {
		if err := l.image(&rec.Images[i], &vals[i]); err != nil {
			return err
		}
		vals[i].Parent = self
		if i > 0 {
			vals[i].Prev = addrs[i-1]
		}
		if i < len(addrs)-1 {
			vals[i].Next = addrs[i+1]
		}
	}
	*dst = entity.Sprite{
		Prev:                prev,
		Next:                next,
		SpriteID:            rec.SpriteID,
		Player:              rec.Player,
		SelectionIndex:      rec.SelectionIndex,
		VisibilityMask:      rec.VisibilityMask,
		Elevation:           rec.Elevation,
		Flags:               rec.Flags,
		SelectionFlashTimer: rec.SelectionFlashTimer,
		Index:               rec.Index,
		Width:               rec.Width,
		Height:              rec.Height,
		Position:            rec.Position,
		SpawnOrder:          rec.SpawnOrder,
	}
	if len(addrs) > 0 {
		dst.FirstOverlay = addrs[0]
		dst.LastOverlay = addrs[len(addrs)-1]
	}
	if rec.MainImage != 0 {
		if uint64(rec.MainImage) > uint64(len(addrs)) {
			return saveerr.Corrupted("invalid main image 0x%x", rec.MainImage)
		}
		dst.MainImage = addrs[rec.MainImage-1]
	}
	return nil
}

func (l *LoadRefs) image(m *ImageRecord, dst *entity.Image) error {
	grp, err := l.grp(m.Grp)
	if err != nil {
		return err
	}
	param, err := l.drawParam(m.Drawfunc, m.DrawParam)
	if err != nil {
		return err
	}
	*dst = entity.Image{
		ImageID:        m.ImageID,
		Drawfunc:       m.Drawfunc,
		Direction:      m.Direction,
		Flags:          m.Flags,
		XOffset:        m.XOffset,
		YOffset:        m.YOffset,
		Iscript:        m.Iscript,
		Frameset:       m.Frameset,
		Frame:          m.Frame,
		MapPosition:    m.MapPosition,
		ScreenPosition: m.ScreenPosition,
		GrpBounds:      m.GrpBounds,
		Grp:            grp,
		DrawParam:      param,
	}
	return nil
}

// drawParam decodes v for drawfunc. A zero value decodes to a nil param
// for every kind.
func (l *LoadRefs) drawParam(drawfunc uint8, v uint32) (entity.DrawParam, error) {
	if v == 0 {
		return nil, nil
	}
	switch entity.DrawParamKindFor(drawfunc) {
	case entity.DrawParamRemap:
		pal, err := tableEntry("remap palette", l.Palettes, v)
		if err != nil {
			return nil, err
		}
		return entity.RemapParam{Palette: pal}, nil
	case entity.DrawParamUnit:
		if v > 0xffff {
			return nil, saveerr.Corrupted("invalid unit id 0x%x", v)
		}
		u, err := l.unit(uint16(v))
		if err != nil {
			return nil, err
		}
		return entity.UnitParam{Unit: u}, nil
	default:
		return entity.RawParam(v), nil
	}
}

func (s *SaveRefs) LoneSprite(ls *entity.LoneSprite) (*LoneRecord, error) {
	id, err := s.Sprites.ID(ls.Sprite)
	if err != nil {
		return nil, err
	}
	return &LoneRecord{Sprite: id, Value: ls.Value}, nil
}

// LoneSprite fills dst except for its list links, which are rebuilt afterwards.
func (l *LoadRefs) LoneSprite(rec *LoneRecord, dst *entity.LoneSprite) error {
	sp, err := l.Sprites.Pointer(rec.Sprite)
	if err != nil {
		return err
	}
	*dst = entity.LoneSprite{Value: rec.Value, Sprite: sp}
	return nil
}
