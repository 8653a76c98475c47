package codec

import (
	"github.com/l1jgo/entpool/internal/core/directory"
	"github.com/l1jgo/entpool/internal/entity"
	"github.com/l1jgo/entpool/internal/wire"
)

// EntityRecord is the flat form of entity.Flingy plus the owner's list links.
// Bullets and units share it; only the directory behind Prev/Next differs.
type EntityRecord struct {
	Prev, Next         uint32
	Hitpoints          int32
	Sprite             uint32
	MoveTarget         entity.Point
	MoveTargetUnit     uint16
	NextMoveWaypoint   entity.Point
	UnkMoveWaypoint    entity.Point
	FlingyFlags        uint8
	FacingDirection    uint8
	FlingyTurnSpeed    uint8
	MovementDirection  uint8
	FlingyID           uint16
	Unk26              uint8
	FlingyMovementType uint8
	Position           entity.Point
	ExactPosition      entity.Point32
	FlingyTopSpeed     uint32
	CurrentSpeed       int32
	NextSpeed          int32
	Speed              int32
	Speed2             int32
	Acceleration       uint16
	NewDirection       uint8
	TargetDirection    uint8
	Player             uint8
	Order              uint8
	OrderState         uint8
	OrderSignal        uint8
	OrderFowUnit       uint16
	Unused52           uint16
	OrderTimer         uint8
	GroundCooldown     uint8
	AirCooldown        uint8
	SpellCooldown      uint8
	OrderTargetPos     entity.Point
	Target             uint16
}

// EntityRecordSize is the encoded size of an EntityRecord.
const EntityRecordSize = 92

func writePoint(w *wire.Writer, p entity.Point) {
	w.WriteI16(p.X)
	w.WriteI16(p.Y)
}

func readPoint(r *wire.Reader) entity.Point {
	return entity.Point{X: r.ReadI16(), Y: r.ReadI16()}
}

func (e *EntityRecord) Encode(w *wire.Writer) {
	w.WriteU32(e.Prev)
	w.WriteU32(e.Next)
	w.WriteI32(e.Hitpoints)
	w.WriteU32(e.Sprite)
	writePoint(w, e.MoveTarget)
	w.WriteU16(e.MoveTargetUnit)
	writePoint(w, e.NextMoveWaypoint)
	writePoint(w, e.UnkMoveWaypoint)
	w.WriteU8(e.FlingyFlags)
	w.WriteU8(e.FacingDirection)
	w.WriteU8(e.FlingyTurnSpeed)
	w.WriteU8(e.MovementDirection)
	w.WriteU16(e.FlingyID)
	w.WriteU8(e.Unk26)
	w.WriteU8(e.FlingyMovementType)
	writePoint(w, e.Position)
	w.WriteI32(e.ExactPosition.X)
	w.WriteI32(e.ExactPosition.Y)
	w.WriteU32(e.FlingyTopSpeed)
	w.WriteI32(e.CurrentSpeed)
	w.WriteI32(e.NextSpeed)
	w.WriteI32(e.Speed)
	w.WriteI32(e.Speed2)
	w.WriteU16(e.Acceleration)
	w.WriteU8(e.NewDirection)
	w.WriteU8(e.TargetDirection)
	w.WriteU8(e.Player)
	w.WriteU8(e.Order)
	w.WriteU8(e.OrderState)
	w.WriteU8(e.OrderSignal)
	w.WriteU16(e.OrderFowUnit)
	w.WriteU16(e.Unused52)
	w.WriteU8(e.OrderTimer)
	w.WriteU8(e.GroundCooldown)
	w.WriteU8(e.AirCooldown)
	w.WriteU8(e.SpellCooldown)
	writePoint(w, e.OrderTargetPos)
	w.WriteU16(e.Target)
}

func (e *EntityRecord) Decode(r *wire.Reader) {
	e.Prev = r.ReadU32()
	e.Next = r.ReadU32()
	e.Hitpoints = r.ReadI32()
	e.Sprite = r.ReadU32()
	e.MoveTarget = readPoint(r)
	e.MoveTargetUnit = r.ReadU16()
	e.NextMoveWaypoint = readPoint(r)
	e.UnkMoveWaypoint = readPoint(r)
	e.FlingyFlags = r.ReadU8()
	e.FacingDirection = r.ReadU8()
	e.FlingyTurnSpeed = r.ReadU8()
	e.MovementDirection = r.ReadU8()
	e.FlingyID = r.ReadU16()
	e.Unk26 = r.ReadU8()
	e.FlingyMovementType = r.ReadU8()
	e.Position = readPoint(r)
	e.ExactPosition = entity.Point32{X: r.ReadI32(), Y: r.ReadI32()}
	e.FlingyTopSpeed = r.ReadU32()
	e.CurrentSpeed = r.ReadI32()
	e.NextSpeed = r.ReadI32()
	e.Speed = r.ReadI32()
	e.Speed2 = r.ReadI32()
	e.Acceleration = r.ReadU16()
	e.NewDirection = r.ReadU8()
	e.TargetDirection = r.ReadU8()
	e.Player = r.ReadU8()
	e.Order = r.ReadU8()
	e.OrderState = r.ReadU8()
	e.OrderSignal = r.ReadU8()
	e.OrderFowUnit = r.ReadU16()
	e.Unused52 = r.ReadU16()
	e.OrderTimer = r.ReadU8()
	e.GroundCooldown = r.ReadU8()
	e.AirCooldown = r.ReadU8()
	e.SpellCooldown = r.ReadU8()
	e.OrderTargetPos = readPoint(r)
	e.Target = r.ReadU16()
}

// linkIDs is satisfied by the save directory of the entity's own kind.
type linkIDs[T any] interface {
	ID(p *T) (uint32, error)
}

// linkPointers is satisfied by the load directory of the entity's own kind.
type linkPointers[T any] interface {
	Pointer(id uint32) (*T, error)
}

var (
	_ linkIDs[entity.Bullet]      = (*directory.Save[entity.Bullet])(nil)
	_ linkPointers[entity.Bullet] = (*directory.Load[entity.Bullet])(nil)
)

func saveEntity[T any](s *SaveRefs, links linkIDs[T], prev, next *T, f *entity.Flingy) (EntityRecord, error) {
	var (
		rec EntityRecord
		err error
	)
	if rec.Prev, err = links.ID(prev); err != nil {
		return rec, err
	}
	if rec.Next, err = links.ID(next); err != nil {
		return rec, err
	}
	if rec.Sprite, err = s.Sprites.ID(f.Sprite); err != nil {
		return rec, err
	}
	if rec.MoveTargetUnit, err = s.unit(f.MoveTargetUnit); err != nil {
		return rec, err
	}
	if rec.Target, err = s.unit(f.Target); err != nil {
		return rec, err
	}
	rec.Hitpoints = f.Hitpoints
	rec.MoveTarget = f.MoveTarget
	rec.NextMoveWaypoint = f.NextMoveWaypoint
	rec.UnkMoveWaypoint = f.UnkMoveWaypoint
	rec.FlingyFlags = f.FlingyFlags
	rec.FacingDirection = f.FacingDirection
	rec.FlingyTurnSpeed = f.FlingyTurnSpeed
	rec.MovementDirection = f.MovementDirection
	rec.FlingyID = f.FlingyID
	rec.Unk26 = f.Unk26
	rec.FlingyMovementType = f.FlingyMovementType
	rec.Position = f.Position
	rec.ExactPosition = f.ExactPosition
	rec.FlingyTopSpeed = f.FlingyTopSpeed
	rec.CurrentSpeed = f.CurrentSpeed
	rec.NextSpeed = f.NextSpeed
	rec.Speed = f.Speed
	rec.Speed2 = f.Speed2
	rec.Acceleration = f.Acceleration
	rec.NewDirection = f.NewDirection
	rec.TargetDirection = f.TargetDirection
	rec.Player = f.Player
	rec.Order = f.Order
	rec.OrderState = f.OrderState
	rec.OrderSignal = f.OrderSignal
	rec.OrderFowUnit = f.OrderFowUnit
	rec.Unused52 = f.Unused52
	rec.OrderTimer = f.OrderTimer
	rec.GroundCooldown = f.GroundCooldown
	rec.AirCooldown = f.AirCooldown
	rec.SpellCooldown = f.SpellCooldown
	rec.OrderTargetPos = f.OrderTargetPos
	return rec, nil
}

func loadEntity[T any](l *LoadRefs, links linkPointers[T], rec *EntityRecord) (prev, next *T, f entity.Flingy, err error) {
	if prev, err = links.Pointer(rec.Prev); err != nil {
		return
	}
	if next, err = links.Pointer(rec.Next); err != nil {
		return
	}
	if f.Sprite, err = l.Sprites.Pointer(rec.Sprite); err != nil {
		return
	}
	if f.MoveTargetUnit, err = l.unit(rec.MoveTargetUnit); err != nil {
		return
	}
	if f.Target, err = l.unit(rec.Target); err != nil {
		return
	}
	f.Hitpoints = rec.Hitpoints
	f.MoveTarget = rec.MoveTarget
	f.NextMoveWaypoint = rec.NextMoveWaypoint
	f.UnkMoveWaypoint = rec.UnkMoveWaypoint
	f.FlingyFlags = rec.FlingyFlags
	f.FacingDirection = rec.FacingDirection
	f.FlingyTurnSpeed = rec.FlingyTurnSpeed
	f.MovementDirection = rec.MovementDirection
	f.FlingyID = rec.FlingyID
	f.Unk26 = rec.Unk26
	f.FlingyMovementType = rec.FlingyMovementType
	f.Position = rec.Position
	f.ExactPosition = rec.ExactPosition
	f.FlingyTopSpeed = rec.FlingyTopSpeed
	f.CurrentSpeed = rec.CurrentSpeed
	f.NextSpeed = rec.NextSpeed
	f.Speed = rec.Speed
	f.Speed2 = rec.Speed2
	f.Acceleration = rec.Acceleration
	f.NewDirection = rec.NewDirection
	f.TargetDirection = rec.TargetDirection
	f.Player = rec.Player
	f.Order = rec.Order
	f.OrderState = rec.OrderState
	f.OrderSignal = rec.OrderSignal
	f.OrderFowUnit = rec.OrderFowUnit
	f.Unused52 = rec.Unused52
	f.OrderTimer = rec.OrderTimer
	f.GroundCooldown = rec.GroundCooldown
	f.AirCooldown = rec.AirCooldown
	f.SpellCooldown = rec.SpellCooldown
	f.OrderTargetPos = rec.OrderTargetPos
	return
}
