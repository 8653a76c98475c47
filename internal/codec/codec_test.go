package codec

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/entpool/internal/core/arena"
	"github.com/l1jgo/entpool/internal/core/directory"
	"github.com/l1jgo/entpool/internal/data"
	"github.com/l1jgo/entpool/internal/entity"
	"github.com/l1jgo/entpool/internal/saveerr"
	"github.com/l1jgo/entpool/internal/wire"
)

const (
	unitGhost       = 0x01
	unitSCV         = 0x07
	unitShuttle     = 0x45
	unitCarrier     = 0x48
	unitInterceptor = 0x49
	unitSilo        = 0x6c
	unitFlag        = 0x80
	unitPylon       = 0x9c
	unitMinerals    = 0xb0
)

type fixture struct {
	tables  *Tables
	units   *arena.Table[entity.Unit]
	sprites []*entity.Sprite
	lone    []*entity.LoneSprite
	save    *SaveRefs
	load    *LoadRefs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tables: &Tables{
			Orders:   arena.NewTable[entity.Order](16),
			Paths:    arena.NewTable[entity.Path](4),
			AI:       entity.NewAITables(8),
			Grps:     arena.TableOf(entity.Grp{ID: 1, Name: "main"}, entity.Grp{ID: 2, Name: "shadow"}),
			Palettes: arena.TableOf(entity.RemapPalette{Name: "ofire"}, entity.RemapPalette{Name: "gfire"}),
			Caps:     data.DefaultCapabilities(),
		},
		units: arena.NewTable[entity.Unit](8),
	}
	for i := 0; i < 3; i++ {
		f.sprites = append(f.sprites, &entity.Sprite{SpriteID: uint16(100 + i)})
	}
	f.lone = []*entity.LoneSprite{{Value: 1}, {Value: 2}}

	units, err := directory.NewSave("unit", f.units.All())
	require.NoError(t, err)
	sprites, err := directory.NewSave("sprite", slices.Values(f.sprites))
	require.NoError(t, err)
	lone, err := directory.NewSave("lone sprite", slices.Values(f.lone))
	require.NoError(t, err)
	f.save = &SaveRefs{Tables: f.tables, Units: units, Sprites: sprites, Lone: lone}
	f.load = &LoadRefs{
		Tables:  f.tables,
		Units:   directory.NewLoad("unit", f.units.Pointers()),
		Sprites: directory.NewLoad("sprite", f.sprites),
		Lone:    directory.NewLoad("lone sprite", f.lone),
	}
	return f
}

func (f *fixture) unit(i int) *entity.Unit {
	u, _ := f.units.At(i)
	return u
}

func encode(rec wire.Record) []byte {
	w := wire.NewWriter()
	rec.Encode(w)
	return slices.Clone(w.Bytes())
}

func decode(t *testing.T, b []byte, dec func(r *wire.Reader)) {
	t.Helper()
	r := wire.NewReader(bytes.NewReader(b), uint64(len(b)))
	dec(r)
	require.NoError(t, r.Err())
	assert.Zero(t, r.Remaining(), "trailing bytes")
}

// roundTripUnit saves u, pushes the record through the wire format and loads
// it back.
func (f *fixture) roundTripUnit(t *testing.T, u *entity.Unit) (entity.Unit, *UnitRecord) {
	t.Helper()
	rec, err := f.save.Unit(u)
	require.NoError(t, err)
	var back UnitRecord
	decode(t, encode(rec), back.Decode)
	require.Equal(t, *rec, back)

	var out entity.Unit
	require.NoError(t, f.load.Unit(&back, &out))
	return out, &back
}

func TestSpecificKindFor(t *testing.T) {
	caps := data.DefaultCapabilities()
	cases := []struct {
		name  string
		id    uint16
		flags uint32
		want  entity.SpecificKind
	}{
		{"carrier", unitCarrier, 0, entity.SpecificHangar},
		{"carrier flagged as building keeps hangar", unitCarrier, entity.UnitFlagBuilding, entity.SpecificHangar},
		{"interceptor", unitInterceptor, 0, entity.SpecificChild},
		{"building flag", unitShuttle, entity.UnitFlagBuilding, entity.SpecificBuilding},
		{"worker", unitSCV, 0, entity.SpecificWorker},
		{"worker being built", unitSCV, entity.UnitFlagBuilding, entity.SpecificBuilding},
		{"plain", unitShuttle, 0, entity.SpecificRaw},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := &entity.Unit{UnitID: tc.id, Flags: tc.flags}
			assert.Equal(t, tc.want, SpecificKindFor(caps, u))
		})
	}
}

func TestSpecific2KindFor(t *testing.T) {
	caps := data.DefaultCapabilities()
	cases := map[uint16]entity.Specific2Kind{
		unitMinerals: entity.Specific2Resource,
		unitFlag:     entity.Specific2Powerup,
		unitSCV:      entity.Specific2Worker,
		unitSilo:     entity.Specific2Silo,
		unitGhost:    entity.Specific2Ghost,
		unitPylon:    entity.Specific2Pylon,
		unitShuttle:  entity.Specific2Raw,
	}
	for id, want := range cases {
		assert.Equal(t, want, Specific2KindFor(caps, id), "unit 0x%x", id)
	}
}

func TestUnitOverlaysRoundTrip(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name  string
		setup func(u *entity.Unit)
	}{
		{"worker", func(u *entity.Unit) {
			u.UnitID = unitSCV
			u.Specific = &entity.WorkerState{
				Powerup:         f.unit(3),
				TargetResourceX: 10,
				TargetResourceY: 20,
				HarvestTarget:   f.unit(4),
				Tail:            [4]byte{1, 2, 3, 4},
			}
			u.Specific2 = &entity.HarvestState{Target: f.unit(4), PrevHarvester: f.unit(5)}
			u.Rally = &entity.RallyPoint{X: 5, Y: 6, Unit: f.unit(2)}
		}},
		{"building", func(u *entity.Unit) {
			u.UnitID = unitShuttle
			u.Flags = entity.UnitFlagBuilding | entity.UnitFlagCompleted
			u.Specific = &entity.BuildingState{Addon: f.unit(6), Tail: [12]byte{9: 0x7f}}
			u.Specific2 = &entity.RawSpecific2{0: 1, 11: 2}
			u.Rally = &entity.RallyPoint{X: 0xffff, Y: 1}
		}},
		{"hangar", func(u *entity.Unit) {
			u.UnitID = unitCarrier
			u.Specific = &entity.HangarState{InChild: f.unit(1), OutChild: f.unit(2), InCount: 3, OutCount: 5, Tail: [6]byte{6}}
			u.Specific2 = &entity.RawSpecific2{}
			u.Rally = &entity.RallyPoint{}
		}},
		{"hangar child", func(u *entity.Unit) {
			u.UnitID = unitInterceptor
			u.Specific = &entity.ChildState{Parent: f.unit(0), Next: f.unit(7), OutsideHangar: 1, Tail: [3]byte{1, 2, 3}}
			u.Specific2 = &entity.RawSpecific2{}
			u.Rally = &entity.RallyPoint{}
		}},
		{"resource", func(u *entity.Unit) {
			u.UnitID = unitMinerals
			u.Specific = &entity.RawSpecific{15: 0xaa}
			u.Specific2 = &entity.ResourceState{Amount: 1500, Iscript: 2, AwaitingWorkers: 1, FirstAwaitingWorker: f.unit(0), Tail: [4]byte{0, 1}}
			u.Rally = &entity.RallyPoint{}
		}},
		{"powerup", func(u *entity.Unit) {
			u.UnitID = unitFlag
			u.Specific = &entity.RawSpecific{}
			u.Specific2 = &entity.PowerupState{OriginX: 300, OriginY: 400, Carrier: f.unit(1)}
			u.Rally = &entity.RallyPoint{}
		}},
		{"nuclear silo", func(u *entity.Unit) {
			u.UnitID = unitSilo
			u.Flags = entity.UnitFlagBuilding
			u.Specific = &entity.BuildingState{}
			u.Specific2 = &entity.SiloState{Nuke: f.unit(7), Tail: [8]byte{1}}
			u.Rally = &entity.RallyPoint{X: 1, Y: 2}
		}},
		{"ghost", func(u *entity.Unit) {
			u.UnitID = unitGhost
			u.Specific = &entity.RawSpecific{}
			u.Specific2 = &entity.GhostState{NukeDot: f.lone[1]}
			u.Rally = &entity.RallyPoint{}
		}},
		{"pylon", func(u *entity.Unit) {
			u.UnitID = unitPylon
			u.Flags = entity.UnitFlagBuilding
			u.Specific = &entity.BuildingState{}
			u.Specific2 = &entity.PylonState{Aura: f.sprites[2]}
			u.Rally = &entity.PylonList{Prev: f.unit(3), Next: f.unit(4)}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := f.unit(0)
			*u = entity.Unit{Shields: 12, Energy: 50, Kills: 3, PosSearch: entity.UnsetSearchBox}
			tc.setup(u)

			got, _ := f.roundTripUnit(t, u)
			assert.Equal(t, *u, got)
		})
	}
}

func TestUnitFullRoundTrip(t *testing.T) {
	f := newFixture(t)
	order0, _ := f.tables.Orders.At(0)
	order3, _ := f.tables.Orders.At(3)
	path, _ := f.tables.Paths.At(1)
	sp := f.sprites[1]

	u := f.unit(2)
	*u = entity.Unit{
		Prev: f.unit(1),
		Next: f.unit(3),
		Flingy: entity.Flingy{
			Hitpoints:      256 * 40,
			Sprite:         sp,
			MoveTarget:     entity.Point{X: 10, Y: -3},
			MoveTargetUnit: f.unit(5),
			Position:       entity.Point{X: 100, Y: 200},
			ExactPosition:  entity.Point32{X: 100 << 8, Y: 200 << 8},
			CurrentSpeed:   -5,
			Player:         3,
			Order:          0x17,
			Target:         f.unit(6),
		},
		Shields:           500,
		UnitID:            unitShuttle,
		NextPlayerUnit:    f.unit(4),
		Subunit:           f.unit(7),
		OrderQueueBegin:   order0,
		OrderQueueEnd:     order3,
		PreviousAttacker:  f.unit(1),
		BuildQueue:        [5]uint16{0xe4, 0xe4, 0xe4, 0xe4, 0xe4},
		LoadedUnits:       [8]uint16{1, 2},
		Specific:          &entity.RawSpecific{1, 2, 3},
		Specific2:         &entity.RawSpecific2{4, 5, 6},
		DetectionStatus:   0xffffffff,
		CurrentlyBuilding: f.unit(5),
		NextInvisible:     f.unit(6),
		Rally:             &entity.RallyPoint{X: 50, Y: 60, Unit: f.unit(6)},
		Path:              path,
		CollisionPoints:   [4]uint16{1, 2, 3, 4},
		Spells: entity.UnitSpells{
			StimTimer:       4,
			IrradiatedBy:    f.unit(1),
			AcidSporeCount:  2,
			AcidSporeTimers: [9]uint8{5, 6},
		},
		AI:        &f.tables.AI.Military[5],
		PosSearch: entity.SearchBox{Left: 1, Right: 2, Top: 3, Bottom: 4},
		Repulse:   entity.Repulse{Misc: 1, Direction: 2, ChunkX: 3, ChunkY: 4},
	}

	got, rec := f.roundTripUnit(t, u)
	assert.True(t, rec.InSearch())
	assert.Equal(t, AIRef{Kind: entity.AIMilitary, Index: 5}, rec.AI)

	want := *u
	want.PosSearch = entity.UnsetSearchBox
	want.Repulse = entity.Repulse{}
	assert.Equal(t, want, got)
	assert.Same(t, &f.tables.AI.Military[5], got.AI)
	assert.Same(t, path, got.Path)
}

func TestUnitNilVariantsSaveAsZero(t *testing.T) {
	f := newFixture(t)
	u := f.unit(0)
	*u = entity.Unit{UnitID: unitSCV, PosSearch: entity.UnsetSearchBox}

	got, rec := f.roundTripUnit(t, u)
	assert.Equal(t, [16]byte{}, rec.Specific)
	assert.Equal(t, [12]byte{}, rec.Specific2)
	assert.Equal(t, &entity.WorkerState{}, got.Specific)
	assert.Equal(t, &entity.HarvestState{}, got.Specific2)
	assert.Equal(t, &entity.RallyPoint{}, got.Rally)
	assert.False(t, rec.InSearch())
	assert.True(t, got.PosSearch.Unset())
}

func TestUnitVariantMismatch(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name  string
		unit  entity.Unit
		field string
	}{
		{"worker holding hangar", entity.Unit{UnitID: unitSCV, Specific: &entity.HangarState{}}, "unit specific"},
		{"building holding raw", entity.Unit{UnitID: unitShuttle, Flags: entity.UnitFlagBuilding, Specific: &entity.RawSpecific{}}, "unit specific"},
		{"resource holding powerup", entity.Unit{UnitID: unitMinerals, Specific2: &entity.PowerupState{}}, "unit specific2"},
		{"pylon holding rally point", entity.Unit{UnitID: unitPylon, Rally: &entity.RallyPoint{}}, "rally"},
		{"shuttle holding pylon list", entity.Unit{UnitID: unitShuttle, Rally: &entity.PylonList{}}, "rally"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := f.unit(0)
			*u = tc.unit
			_, err := f.save.Unit(u)
			var ve *saveerr.VariantError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestUnitForeignPointer(t *testing.T) {
	f := newFixture(t)
	u := f.unit(0)
	*u = entity.Unit{UnitID: unitShuttle, Subunit: &entity.Unit{}}
	_, err := f.save.Unit(u)
	var pe *saveerr.InvalidPointerError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "unit", pe.Kind)

	*u = entity.Unit{UnitID: unitShuttle, OrderQueueBegin: &entity.Order{}}
	_, err = f.save.Unit(u)
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "order", pe.Kind)
}

func TestUnitLoadRejectsOutOfRangeIDs(t *testing.T) {
	f := newFixture(t)
	u := f.unit(0)
	*u = entity.Unit{UnitID: unitCarrier, Specific: &entity.HangarState{}}
	rec, err := f.save.Unit(u)
	require.NoError(t, err)

	bad := *rec
	bad.Subunit = 9
	err = f.load.Unit(&bad, new(entity.Unit))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid unit id 0x9")

	bad = *rec
	putID(bad.Specific[4:], 0x20)
	err = f.load.Unit(&bad, new(entity.Unit))
	var ce *saveerr.CorruptedError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "invalid unit id 0x20", ce.Info)

	bad = *rec
	bad.OrderQueueBegin = 17
	err = f.load.Unit(&bad, new(entity.Unit))
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "invalid order id 0x11", ce.Info)
}

func TestUnitAI(t *testing.T) {
	f := newFixture(t)

	ref, err := f.save.ai(&f.tables.AI.Guard[7])
	require.NoError(t, err)
	assert.Equal(t, AIRef{Kind: entity.AIGuard, Index: 7}, ref)
	assert.Equal(t, "Guard(7)", ref.String())

	_, err = f.save.ai(&entity.UnitAI{Kind: entity.AIWorker})
	var pe *saveerr.InvalidPointerError
	require.True(t, errors.As(err, &pe))

	_, err = f.save.ai(&entity.UnitAI{Kind: 9})
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "unit ai (type 9)", pe.Kind)

	ai, err := f.load.ai(AIRef{})
	require.NoError(t, err)
	assert.Nil(t, ai)

	_, err = f.load.ai(AIRef{Kind: entity.AIBuilding, Index: 8})
	var ce *saveerr.CorruptedError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "invalid unit ai Building(8)", ce.Info)
}

func TestAIRefWire(t *testing.T) {
	none := AIRef{}
	assert.Equal(t, []byte{0, 0, 0, 0}, encode(&none))
	worker := AIRef{Kind: entity.AIWorker, Index: 0x102}
	assert.Equal(t, []byte{2, 0, 0, 0, 0x02, 0x01}, encode(&worker))

	r := wire.NewReader(bytes.NewReader([]byte{5, 0, 0, 0, 0, 0}), 6)
	var back AIRef
	back.Decode(r)
	var ce *saveerr.CorruptedError
	require.True(t, errors.As(r.Err(), &ce))
	assert.Equal(t, "invalid unit ai tag 5", ce.Info)
}

func TestRecordSizes(t *testing.T) {
	assert.Len(t, encode(&EntityRecord{}), EntityRecordSize)
	assert.Len(t, encode(&BulletRecord{}), BulletRecordSize)
	assert.Len(t, encode(&ImageRecord{}), ImageRecordSize)
	assert.Len(t, encode(&SpriteRecord{}), MinSpriteRecordSize)
	assert.Len(t, encode(&SpriteRecord{Images: make([]ImageRecord, 2)}), MinSpriteRecordSize+2*ImageRecordSize)
	assert.Len(t, encode(&LoneRecord{}), LoneRecordSize)
	assert.Len(t, encode(&UnitRecord{}), MinUnitRecordSize)
	assert.Len(t, encode(&UnitRecord{AI: AIRef{Kind: entity.AIGuard}}), MinUnitRecordSize+2)
}

func TestUnitGlobalsRoundTrip(t *testing.T) {
	g := UnitGlobals{
		Count:          1700,
		FirstActive:    1,
		LastActive:     9,
		FirstFree:      10,
		LastFree:       1700,
		FirstInvisible: 4,
		PlayerUnits:    [entity.Players]uint16{0: 1, 11: 7},
	}
	var back UnitGlobals
	decode(t, encode(&g), back.Decode)
	assert.Equal(t, g, back)
}

func TestBulletRoundTrip(t *testing.T) {
	f := newFixture(t)
	bullets := []*entity.Bullet{{}, {}, {}}
	for i, b := range bullets {
		if i > 0 {
			b.Prev = bullets[i-1]
		}
		if i < len(bullets)-1 {
			b.Next = bullets[i+1]
		}
		b.WeaponID = uint8(i)
		b.Sprite = f.sprites[i]
	}
	bullets[1].Parent = f.unit(3)
	bullets[1].PreviousBounceTarget = f.unit(4)
	bullets[1].Target = f.unit(5)
	bullets[1].BouncesRemaining = 2

	save, err := directory.NewSave("bullet", slices.Values(bullets))
	require.NoError(t, err)
	rec, err := f.save.Bullet(save, bullets[1])
	require.NoError(t, err)
	assert.Equal(t, uint32(1), rec.Entity.Prev)
	assert.Equal(t, uint32(3), rec.Entity.Next)
	assert.Equal(t, uint32(2), rec.Entity.Sprite)
	assert.Equal(t, uint16(4), rec.Parent)

	var back BulletRecord
	decode(t, encode(rec), back.Decode)
	var got entity.Bullet
	require.NoError(t, f.load.Bullet(directory.NewLoad("bullet", bullets), &back, &got))
	assert.Equal(t, *bullets[1], got)

	stranger := &entity.Bullet{Prev: &entity.Bullet{}}
	_, err = f.save.Bullet(save, stranger)
	var pe *saveerr.InvalidPointerError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "bullet", pe.Kind)
}
