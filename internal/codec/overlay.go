package codec

import (
	"encoding/binary"

	"github.com/l1jgo/entpool/internal/data"
	"github.com/l1jgo/entpool/internal/entity"
	"github.com/l1jgo/entpool/internal/saveerr"
)

// SpecificKindFor decides how a unit's 16-byte union is laid out. The order
// of the checks matters: a carrier that is also flagged as a building still
// keeps its hangar.
func SpecificKindFor(caps *data.Capabilities, u *entity.Unit) entity.SpecificKind {
	switch {
	case caps.HasHangar(u.UnitID):
		return entity.SpecificHangar
	case caps.IsHangarChild(u.UnitID):
		return entity.SpecificChild
	case u.IsBuilding():
		return entity.SpecificBuilding
	case caps.IsWorker(u.UnitID):
		return entity.SpecificWorker
	default:
		return entity.SpecificRaw
	}
}

// Specific2KindFor decides how a unit's 12-byte union is laid out.
func Specific2KindFor(caps *data.Capabilities, unitID uint16) entity.Specific2Kind {
	switch {
	case caps.IsResource(unitID):
		return entity.Specific2Resource
	case caps.IsPowerup(unitID):
		return entity.Specific2Powerup
	case caps.IsWorker(unitID):
		return entity.Specific2Worker
	case caps.IsNuclearSilo(unitID):
		return entity.Specific2Silo
	case caps.IsGhost(unitID):
		return entity.Specific2Ghost
	case caps.IsPylon(unitID):
		return entity.Specific2Pylon
	default:
		return entity.Specific2Raw
	}
}

// variant asserts that v is a *V. nil (untyped or typed) reads as a zero *V,
// the state of a freshly cleared unit slot.
func variant[V any](field string, v any, want, got string) (*V, error) {
	if v == nil {
		return new(V), nil
	}
	p, ok := v.(*V)
	if !ok {
		return nil, &saveerr.VariantError{Field: field, Want: want, Got: got}
	}
	if p == nil {
		return new(V), nil
	}
	return p, nil
}

func specificName(v entity.UnitSpecific) string {
	if v == nil {
		return "nil"
	}
	return v.SpecificKind().String()
}

func specific2Name(v entity.UnitSpecific2) string {
	if v == nil {
		return "nil"
	}
	return v.Specific2Kind().String()
}

func putID(b []byte, id uint32) { binary.LittleEndian.PutUint32(b, id) }
func getID(b []byte) uint32     { return binary.LittleEndian.Uint32(b) }

// putUnits writes the ids of units into consecutive 4-byte slots of b.
func (s *SaveRefs) putUnits(b []byte, units ...*entity.Unit) error {
	for i, u := range units {
		id, err := s.unit(u)
		if err != nil {
			return err
		}
		putID(b[i*4:], uint32(id))
	}
	return nil
}

// getUnits resolves consecutive 4-byte unit id slots of b.
func (l *LoadRefs) getUnits(b []byte, n int) ([]*entity.Unit, error) {
	out := make([]*entity.Unit, n)
	for i := range out {
		u, err := l.Units.Pointer(getID(b[i*4:]))
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}

func (s *SaveRefs) specific(u *entity.Unit) ([16]byte, error) {
	var out [16]byte
	want := SpecificKindFor(s.Caps, u)
	field, got := "unit specific", specificName(u.Specific)
	switch want {
	case entity.SpecificHangar:
		v, err := variant[entity.HangarState](field, u.Specific, want.String(), got)
		if err != nil {
			return out, err
		}
		if err := s.putUnits(out[0:], v.InChild, v.OutChild); err != nil {
			return out, err
		}
		out[8] = v.InCount
		out[9] = v.OutCount
		copy(out[10:], v.Tail[:])
	case entity.SpecificChild:
		v, err := variant[entity.ChildState](field, u.Specific, want.String(), got)
		if err != nil {
			return out, err
		}
		if err := s.putUnits(out[0:], v.Parent, v.Prev, v.Next); err != nil {
			return out, err
		}
		out[12] = v.OutsideHangar
		copy(out[13:], v.Tail[:])
	case entity.SpecificBuilding:
		v, err := variant[entity.BuildingState](field, u.Specific, want.String(), got)
		if err != nil {
			return out, err
		}
		if err := s.putUnits(out[0:], v.Addon); err != nil {
			return out, err
		}
		copy(out[4:], v.Tail[:])
	case entity.SpecificWorker:
		v, err := variant[entity.WorkerState](field, u.Specific, want.String(), got)
		if err != nil {
			return out, err
		}
		if err := s.putUnits(out[0:], v.Powerup); err != nil {
			return out, err
		}
		binary.LittleEndian.PutUint16(out[4:], v.TargetResourceX)
		binary.LittleEndian.PutUint16(out[6:], v.TargetResourceY)
		if err := s.putUnits(out[8:], v.HarvestTarget); err != nil {
			return out, err
		}
		copy(out[12:], v.Tail[:])
	default:
		v, err := variant[entity.RawSpecific](field, u.Specific, want.String(), got)
		if err != nil {
			return out, err
		}
		out = [16]byte(*v)
	}
	return out, nil
}

// specific decodes b for a unit already holding its final UnitID and Flags.
func (l *LoadRefs) specific(u *entity.Unit, b [16]byte) (entity.UnitSpecific, error) {
	switch SpecificKindFor(l.Caps, u) {
	case entity.SpecificHangar:
		us, err := l.getUnits(b[0:], 2)
		if err != nil {
			return nil, err
		}
		v := &entity.HangarState{InChild: us[0], OutChild: us[1], InCount: b[8], OutCount: b[9]}
		copy(v.Tail[:], b[10:])
		return v, nil
	case entity.SpecificChild:
		us, err := l.getUnits(b[0:], 3)
		if err != nil {
			return nil, err
		}
		v := &entity.ChildState{Parent: us[0], Prev: us[1], Next: us[2], OutsideHangar: b[12]}
		copy(v.Tail[:], b[13:])
		return v, nil
	case entity.SpecificBuilding:
		us, err := l.getUnits(b[0:], 1)
		if err != nil {
			return nil, err
		}
		v := &entity.BuildingState{Addon: us[0]}
		copy(v.Tail[:], b[4:])
		return v, nil
	case entity.SpecificWorker:
		powerup, err := l.getUnits(b[0:], 1)
		if err != nil {
			return nil, err
		}
		target, err := l.getUnits(b[8:], 1)
		if err != nil {
			return nil, err
		}
		v := &entity.WorkerState{
			Powerup:         powerup[0],
			TargetResourceX: binary.LittleEndian.Uint16(b[4:]),
			TargetResourceY: binary.LittleEndian.Uint16(b[6:]),
			HarvestTarget:   target[0],
		}
		copy(v.Tail[:], b[12:])
		return v, nil
	default:
		v := entity.RawSpecific(b)
		return &v, nil
	}
}

func (s *SaveRefs) specific2(u *entity.Unit) ([12]byte, error) {
	var out [12]byte
	want := Specific2KindFor(s.Caps, u.UnitID)
	field, got := "unit specific2", specific2Name(u.Specific2)
	switch want {
	case entity.Specific2Resource:
		v, err := variant[entity.ResourceState](field, u.Specific2, want.String(), got)
		if err != nil {
			return out, err
		}
		binary.LittleEndian.PutUint16(out[0:], v.Amount)
		out[2] = v.Iscript
		out[3] = v.AwaitingWorkers
		if err := s.putUnits(out[4:], v.FirstAwaitingWorker); err != nil {
			return out, err
		}
		copy(out[8:], v.Tail[:])
	case entity.Specific2Powerup:
		v, err := variant[entity.PowerupState](field, u.Specific2, want.String(), got)
		if err != nil {
			return out, err
		}
		binary.LittleEndian.PutUint16(out[0:], v.OriginX)
		binary.LittleEndian.PutUint16(out[2:], v.OriginY)
		if err := s.putUnits(out[4:], v.Carrier); err != nil {
			return out, err
		}
		copy(out[8:], v.Tail[:])
	case entity.Specific2Worker:
		v, err := variant[entity.HarvestState](field, u.Specific2, want.String(), got)
		if err != nil {
			return out, err
		}
		if err := s.putUnits(out[0:], v.Target, v.PrevHarvester, v.NextHarvester); err != nil {
			return out, err
		}
	case entity.Specific2Silo:
		v, err := variant[entity.SiloState](field, u.Specific2, want.String(), got)
		if err != nil {
			return out, err
		}
		if err := s.putUnits(out[0:], v.Nuke); err != nil {
			return out, err
		}
		copy(out[4:], v.Tail[:])
	case entity.Specific2Ghost:
		v, err := variant[entity.GhostState](field, u.Specific2, want.String(), got)
		if err != nil {
			return out, err
		}
		id, err := s.Lone.ID(v.NukeDot)
		if err != nil {
			return out, err
		}
		putID(out[0:], id)
		copy(out[4:], v.Tail[:])
	case entity.Specific2Pylon:
		v, err := variant[entity.PylonState](field, u.Specific2, want.String(), got)
		if err != nil {
			return out, err
		}
		id, err := s.Sprites.ID(v.Aura)
		if err != nil {
			return out, err
		}
		putID(out[0:], id)
		copy(out[4:], v.Tail[:])
	default:
		v, err := variant[entity.RawSpecific2](field, u.Specific2, want.String(), got)
		if err != nil {
			return out, err
		}
		out = [12]byte(*v)
	}
	return out, nil
}

func (l *LoadRefs) specific2(unitID uint16, b [12]byte) (entity.UnitSpecific2, error) {
	switch Specific2KindFor(l.Caps, unitID) {
	case entity.Specific2Resource:
		us, err := l.getUnits(b[4:], 1)
		if err != nil {
			return nil, err
		}
		v := &entity.ResourceState{
			Amount:              binary.LittleEndian.Uint16(b[0:]),
			Iscript:             b[2],
			AwaitingWorkers:     b[3],
			FirstAwaitingWorker: us[0],
		}
		copy(v.Tail[:], b[8:])
		return v, nil
	case entity.Specific2Powerup:
		us, err := l.getUnits(b[4:], 1)
		if err != nil {
			return nil, err
		}
		v := &entity.PowerupState{
			OriginX: binary.LittleEndian.Uint16(b[0:]),
			OriginY: binary.LittleEndian.Uint16(b[2:]),
			Carrier: us[0],
		}
		copy(v.Tail[:], b[8:])
		return v, nil
	case entity.Specific2Worker:
		us, err := l.getUnits(b[0:], 3)
		if err != nil {
			return nil, err
		}
		return &entity.HarvestState{Target: us[0], PrevHarvester: us[1], NextHarvester: us[2]}, nil
	case entity.Specific2Silo:
		us, err := l.getUnits(b[0:], 1)
		if err != nil {
			return nil, err
		}
		v := &entity.SiloState{Nuke: us[0]}
		copy(v.Tail[:], b[4:])
		return v, nil
	case entity.Specific2Ghost:
		dot, err := l.Lone.Pointer(getID(b[0:]))
		if err != nil {
			return nil, err
		}
		v := &entity.GhostState{NukeDot: dot}
		copy(v.Tail[:], b[4:])
		return v, nil
	case entity.Specific2Pylon:
		aura, err := l.Sprites.Pointer(getID(b[0:]))
		if err != nil {
			return nil, err
		}
		v := &entity.PylonState{Aura: aura}
		copy(v.Tail[:], b[4:])
		return v, nil
	default:
		v := entity.RawSpecific2(b)
		return &v, nil
	}
}

// RallyRecord is the flat rally/pylon union: two unit ids for pylons,
// x, y and a unit id for everything else.
type RallyRecord struct {
	Val1, Val2, Val3 uint16
}

func rallyName(v entity.RallyOrPylon) string {
	switch v.(type) {
	case nil:
		return "nil"
	case *entity.PylonList:
		return "pylon list"
	default:
		return "rally point"
	}
}

func (s *SaveRefs) rally(u *entity.Unit) (RallyRecord, error) {
	var rec RallyRecord
	var err error
	if s.Caps.IsPylon(u.UnitID) {
		v, verr := variant[entity.PylonList]("rally", u.Rally, "pylon list", rallyName(u.Rally))
		if verr != nil {
			return rec, verr
		}
		if rec.Val1, err = s.unit(v.Prev); err != nil {
			return rec, err
		}
		if rec.Val2, err = s.unit(v.Next); err != nil {
			return rec, err
		}
		return rec, nil
	}
	v, verr := variant[entity.RallyPoint]("rally", u.Rally, "rally point", rallyName(u.Rally))
	if verr != nil {
		return rec, verr
	}
	rec.Val1, rec.Val2 = v.X, v.Y
	if rec.Val3, err = s.unit(v.Unit); err != nil {
		return rec, err
	}
	return rec, nil
}

func (l *LoadRefs) rally(unitID uint16, rec RallyRecord) (entity.RallyOrPylon, error) {
	if l.Caps.IsPylon(unitID) {
		prev, err := l.unit(rec.Val1)
		if err != nil {
			return nil, err
		}
		next, err := l.unit(rec.Val2)
		if err != nil {
			return nil, err
		}
		return &entity.PylonList{Prev: prev, Next: next}, nil
	}
	u, err := l.unit(rec.Val3)
	if err != nil {
		return nil, err
	}
	return &entity.RallyPoint{X: rec.Val1, Y: rec.Val2, Unit: u}, nil
}
