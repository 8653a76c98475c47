package codec

import (
	"github.com/l1jgo/entpool/internal/core/directory"
	"github.com/l1jgo/entpool/internal/entity"
	"github.com/l1jgo/entpool/internal/wire"
)

type BulletGlobals struct {
	First, Last uint32
	Count       uint32
}

func (g *BulletGlobals) Encode(w *wire.Writer) {
	w.WriteU32(g.First)
	w.WriteU32(g.Last)
	w.WriteU32(g.Count)
}

func (g *BulletGlobals) Decode(r *wire.Reader) {
	g.First = r.ReadU32()
	g.Last = r.ReadU32()
	g.Count = r.ReadU32()
}

type BulletRecord struct {
	Entity               EntityRecord
	WeaponID             uint8
	DeathTimer           uint8
	Flags                uint8
	BouncesRemaining     uint8
	Parent               uint16
	PreviousBounceTarget uint16
	SpreadSeed           uint8
}

// BulletRecordSize is the encoded size of one bullet record.
const BulletRecordSize = EntityRecordSize + 9

func (b *BulletRecord) Encode(w *wire.Writer) {
	b.Entity.Encode(w)
	w.WriteU8(b.WeaponID)
	w.WriteU8(b.DeathTimer)
	w.WriteU8(b.Flags)
	w.WriteU8(b.BouncesRemaining)
	w.WriteU16(b.Parent)
	w.WriteU16(b.PreviousBounceTarget)
	w.WriteU8(b.SpreadSeed)
}

func (b *BulletRecord) Decode(r *wire.Reader) {
	b.Entity.Decode(r)
	b.WeaponID = r.ReadU8()
	b.DeathTimer = r.ReadU8()
	b.Flags = r.ReadU8()
	b.BouncesRemaining = r.ReadU8()
	b.Parent = r.ReadU16()
	b.PreviousBounceTarget = r.ReadU16()
	b.SpreadSeed = r.ReadU8()
}

func (s *SaveRefs) Bullet(links *directory.Save[entity.Bullet], b *entity.Bullet) (*BulletRecord, error) {
	ent, err := saveEntity(s, links, b.Prev, b.Next, &b.Flingy)
	if err != nil {
		return nil, err
	}
	rec := &BulletRecord{
		Entity:           ent,
		WeaponID:         b.WeaponID,
		DeathTimer:       b.DeathTimer,
		Flags:            b.Flags,
		BouncesRemaining: b.BouncesRemaining,
		SpreadSeed:       b.SpreadSeed,
	}
	if rec.Parent, err = s.unit(b.Parent); err != nil {
		return nil, err
	}
	if rec.PreviousBounceTarget, err = s.unit(b.PreviousBounceTarget); err != nil {
		return nil, err
	}
	return rec, nil
}

// Bullet fills dst from rec. dst is a staging slot; nothing is published.
func (l *LoadRefs) Bullet(links *directory.Load[entity.Bullet], rec *BulletRecord, dst *entity.Bullet) error {
	prev, next, f, err := loadEntity(l, links, &rec.Entity)
	if err != nil {
		return err
	}
	parent, err := l.unit(rec.Parent)
	if err != nil {
		return err
	}
	bounce, err := l.unit(rec.PreviousBounceTarget)
	if err != nil {
		return err
	}
	*dst = entity.Bullet{
		Prev:                 prev,
		Next:                 next,
		Flingy:               f,
		WeaponID:             rec.WeaponID,
		DeathTimer:           rec.DeathTimer,
		Flags:                rec.Flags,
		BouncesRemaining:     rec.BouncesRemaining,
		Parent:               parent,
		PreviousBounceTarget: bounce,
		SpreadSeed:           rec.SpreadSeed,
	}
	return nil
}
