package codec

import (
	"github.com/l1jgo/entpool/internal/entity"
	"github.com/l1jgo/entpool/internal/wire"
)

// UnitGlobals heads the unit chunk. Count is the unit table size the chunk
// was written with; every table slot follows as one record.
type UnitGlobals struct {
	Count                       uint32
	FirstActive, LastActive     uint16
	FirstHidden, LastHidden     uint16
	FirstDying, LastDying       uint16
	FirstRevealer, LastRevealer uint16
	FirstFree, LastFree         uint16
	FirstInvisible              uint16
	PlayerUnits                 [entity.Players]uint16
}

func (g *UnitGlobals) Encode(w *wire.Writer) {
	w.WriteU32(g.Count)
	for _, v := range []uint16{
		g.FirstActive, g.LastActive,
		g.FirstHidden, g.LastHidden,
		g.FirstDying, g.LastDying,
		g.FirstRevealer, g.LastRevealer,
		g.FirstFree, g.LastFree,
		g.FirstInvisible,
	} {
		w.WriteU16(v)
	}
	for _, v := range g.PlayerUnits {
		w.WriteU16(v)
	}
}

func (g *UnitGlobals) Decode(r *wire.Reader) {
	g.Count = r.ReadU32()
	for _, p := range []*uint16{
		&g.FirstActive, &g.LastActive,
		&g.FirstHidden, &g.LastHidden,
		&g.FirstDying, &g.LastDying,
		&g.FirstRevealer, &g.LastRevealer,
		&g.FirstFree, &g.LastFree,
		&g.FirstInvisible,
	} {
		*p = r.ReadU16()
	}
	for i := range g.PlayerUnits {
		g.PlayerUnits[i] = r.ReadU16()
	}
}

type SpellsRecord struct {
	DeathTimer         uint16
	DefensiveMatrixDmg uint16
	MatrixTimer        uint8
	StimTimer          uint8
	EnsnareTimer       uint8
	LockdownTimer      uint8
	IrradiateTimer     uint8
	StasisTimer        uint8
	PlagueTimer        uint8
	IsUnderStorm       uint8
	IrradiatedBy       uint16
	IrradiatePlayer    uint8
	ParasitedByPlayers uint8
	MasterSpellTimer   uint8
	IsBlind            uint8
	MaelstromTimer     uint8
	Unk125             uint8
	AcidSporeCount     uint8
	AcidSporeTimers    [9]uint8
}

func (s *SpellsRecord) Encode(w *wire.Writer) {
	w.WriteU16(s.DeathTimer)
	w.WriteU16(s.DefensiveMatrixDmg)
	w.WriteRaw([]byte{
		s.MatrixTimer, s.StimTimer, s.EnsnareTimer, s.LockdownTimer,
		s.IrradiateTimer, s.StasisTimer, s.PlagueTimer, s.IsUnderStorm,
	})
	w.WriteU16(s.IrradiatedBy)
	w.WriteRaw([]byte{
		s.IrradiatePlayer, s.ParasitedByPlayers, s.MasterSpellTimer, s.IsBlind,
		s.MaelstromTimer, s.Unk125, s.AcidSporeCount,
	})
	w.WriteRaw(s.AcidSporeTimers[:])
}

func (s *SpellsRecord) Decode(r *wire.Reader) {
	s.DeathTimer = r.ReadU16()
	s.DefensiveMatrixDmg = r.ReadU16()
	var a [8]byte
	r.ReadRaw(a[:])
	s.MatrixTimer, s.StimTimer, s.EnsnareTimer, s.LockdownTimer = a[0], a[1], a[2], a[3]
	s.IrradiateTimer, s.StasisTimer, s.PlagueTimer, s.IsUnderStorm = a[4], a[5], a[6], a[7]
	s.IrradiatedBy = r.ReadU16()
	var b [7]byte
	r.ReadRaw(b[:])
	s.IrradiatePlayer, s.ParasitedByPlayers, s.MasterSpellTimer, s.IsBlind = b[0], b[1], b[2], b[3]
	s.MaelstromTimer, s.Unk125, s.AcidSporeCount = b[4], b[5], b[6]
	r.ReadRaw(s.AcidSporeTimers[:])
}

// MinUnitRecordSize is the encoded size of a unit record without AI; a unit
// with AI adds the 2-byte table index.
const MinUnitRecordSize = 304

// UnitRecord is the flat form of one unit table slot. Unit references are
// u16 slot ids; the two unions are stored as their raw byte layout with
// pointer slots replaced by ids.
type UnitRecord struct {
	Entity               EntityRecord
	Shields              int32
	UnitID               uint16
	Unused66             uint16
	NextPlayerUnit       uint16
	PrevPlayerUnit       uint16
	Subunit              uint16
	OrderQueueBegin      uint16
	OrderQueueEnd        uint16
	PreviousAttacker     uint16
	Related              uint16
	HighlightOrderCount  uint8
	OrderWait            uint8
	Unk86                uint8
	AttackNotifyTimer    uint8
	PreviousUnitID       uint16
	MinimapDrawCounter   uint8
	MinimapDrawColor     uint8
	Unused8c             uint16
	Rank                 uint8
	Kills                uint8
	LastAttackingPlayer  uint8
	SecondaryOrderWait   uint8
	AISpellFlags         uint8
	OrderFlags           uint8
	Buttons              uint16
	InvisibilityEffects  uint8
	MovementState        uint8
	BuildQueue           [5]uint16
	Energy               uint16
	CurrentBuildSlot     uint8
	MinorUniqueIndex     uint8
	SecondaryOrder       uint8
	BuildingOverlayState uint8
	BuildHPGain          uint16
	BuildShieldGain      uint16
	RemainingBuildTime   uint16
	PreviousHP           uint16
	LoadedUnits          [8]uint16
	Specific             [16]byte
	Specific2            [12]byte
	Flags                uint32
	CarriedPowerupFlags  uint8
	WireframeSeed        uint8
	SecondaryOrderState  uint8
	MoveTargetTimer      uint8
	DetectionStatus      uint32
	UnkE8                uint16
	UnkEA                uint16
	CurrentlyBuilding    uint16
	NextInvisible        uint16
	PrevInvisible        uint16
	Rally                RallyRecord
	Path                 uint16
	PathFrame            uint8
	PathingFlags         uint8
	Unk106               uint8
	Unk107               uint8
	CollisionPoints      [4]uint16
	Spells               SpellsRecord
	BulletSpreadSeed     uint16
	AI                   AIRef
	AirStrength          uint16
	GroundStrength       uint16
	PosSearch            entity.SearchBox
	Repulse              entity.Repulse
}

// InSearch reports whether the unit was in the position search index when
// it was saved.
func (u *UnitRecord) InSearch() bool { return !u.PosSearch.Unset() }

func writeU16s(w *wire.Writer, vs []uint16) {
	for _, v := range vs {
		w.WriteU16(v)
	}
}

func readU16s(r *wire.Reader, vs []uint16) {
	for i := range vs {
		vs[i] = r.ReadU16()
	}
}

func (u *UnitRecord) Encode(w *wire.Writer) {
	u.Entity.Encode(w)
	w.WriteI32(u.Shields)
	writeU16s(w, []uint16{
		u.UnitID, u.Unused66, u.NextPlayerUnit, u.PrevPlayerUnit, u.Subunit,
		u.OrderQueueBegin, u.OrderQueueEnd, u.PreviousAttacker, u.Related,
	})
	w.WriteU8(u.HighlightOrderCount)
	w.WriteU8(u.OrderWait)
	w.WriteU8(u.Unk86)
	w.WriteU8(u.AttackNotifyTimer)
	w.WriteU16(u.PreviousUnitID)
	w.WriteU8(u.MinimapDrawCounter)
	w.WriteU8(u.MinimapDrawColor)
	w.WriteU16(u.Unused8c)
	w.WriteU8(u.Rank)
	w.WriteU8(u.Kills)
	w.WriteU8(u.LastAttackingPlayer)
	w.WriteU8(u.SecondaryOrderWait)
	w.WriteU8(u.AISpellFlags)
	w.WriteU8(u.OrderFlags)
	w.WriteU16(u.Buttons)
	w.WriteU8(u.InvisibilityEffects)
	w.WriteU8(u.MovementState)
	writeU16s(w, u.BuildQueue[:])
	w.WriteU16(u.Energy)
	w.WriteU8(u.CurrentBuildSlot)
	w.WriteU8(u.MinorUniqueIndex)
	w.WriteU8(u.SecondaryOrder)
	w.WriteU8(u.BuildingOverlayState)
	writeU16s(w, []uint16{u.BuildHPGain, u.BuildShieldGain, u.RemainingBuildTime, u.PreviousHP})
	writeU16s(w, u.LoadedUnits[:])
	w.WriteRaw(u.Specific[:])
	w.WriteRaw(u.Specific2[:])
	w.WriteU32(u.Flags)
	w.WriteU8(u.CarriedPowerupFlags)
	w.WriteU8(u.WireframeSeed)
	w.WriteU8(u.SecondaryOrderState)
	w.WriteU8(u.MoveTargetTimer)
	w.WriteU32(u.DetectionStatus)
	writeU16s(w, []uint16{
		u.UnkE8, u.UnkEA, u.CurrentlyBuilding, u.NextInvisible, u.PrevInvisible,
		u.Rally.Val1, u.Rally.Val2, u.Rally.Val3, u.Path,
	})
	w.WriteU8(u.PathFrame)
	w.WriteU8(u.PathingFlags)
	w.WriteU8(u.Unk106)
	w.WriteU8(u.Unk107)
	writeU16s(w, u.CollisionPoints[:])
	u.Spells.Encode(w)
	w.WriteU16(u.BulletSpreadSeed)
	u.AI.Encode(w)
	w.WriteU16(u.AirStrength)
	w.WriteU16(u.GroundStrength)
	w.WriteU32(u.PosSearch.Left)
	w.WriteU32(u.PosSearch.Right)
	w.WriteU32(u.PosSearch.Top)
	w.WriteU32(u.PosSearch.Bottom)
	w.WriteRaw([]byte{u.Repulse.Misc, u.Repulse.Direction, u.Repulse.ChunkX, u.Repulse.ChunkY})
}

func (u *UnitRecord) Decode(r *wire.Reader) {
	u.Entity.Decode(r)
	u.Shields = r.ReadI32()
	var head [9]uint16
	readU16s(r, head[:])
	u.UnitID, u.Unused66, u.NextPlayerUnit, u.PrevPlayerUnit, u.Subunit = head[0], head[1], head[2], head[3], head[4]
	u.OrderQueueBegin, u.OrderQueueEnd, u.PreviousAttacker, u.Related = head[5], head[6], head[7], head[8]
	u.HighlightOrderCount = r.ReadU8()
	u.OrderWait = r.ReadU8()
	u.Unk86 = r.ReadU8()
	u.AttackNotifyTimer = r.ReadU8()
	u.PreviousUnitID = r.ReadU16()
	u.MinimapDrawCounter = r.ReadU8()
	u.MinimapDrawColor = r.ReadU8()
	u.Unused8c = r.ReadU16()
	u.Rank = r.ReadU8()
	u.Kills = r.ReadU8()
	u.LastAttackingPlayer = r.ReadU8()
	u.SecondaryOrderWait = r.ReadU8()
	u.AISpellFlags = r.ReadU8()
	u.OrderFlags = r.ReadU8()
	u.Buttons = r.ReadU16()
	u.InvisibilityEffects = r.ReadU8()
	u.MovementState = r.ReadU8()
	readU16s(r, u.BuildQueue[:])
	u.Energy = r.ReadU16()
	u.CurrentBuildSlot = r.ReadU8()
	u.MinorUniqueIndex = r.ReadU8()
	u.SecondaryOrder = r.ReadU8()
	u.BuildingOverlayState = r.ReadU8()
	var build [4]uint16
	readU16s(r, build[:])
	u.BuildHPGain, u.BuildShieldGain, u.RemainingBuildTime, u.PreviousHP = build[0], build[1], build[2], build[3]
	readU16s(r, u.LoadedUnits[:])
	r.ReadRaw(u.Specific[:])
	r.ReadRaw(u.Specific2[:])
	u.Flags = r.ReadU32()
	u.CarriedPowerupFlags = r.ReadU8()
	u.WireframeSeed = r.ReadU8()
	u.SecondaryOrderState = r.ReadU8()
	u.MoveTargetTimer = r.ReadU8()
	u.DetectionStatus = r.ReadU32()
	var links [9]uint16
	readU16s(r, links[:])
	u.UnkE8, u.UnkEA, u.CurrentlyBuilding, u.NextInvisible, u.PrevInvisible = links[0], links[1], links[2], links[3], links[4]
	u.Rally = RallyRecord{Val1: links[5], Val2: links[6], Val3: links[7]}
	u.Path = links[8]
	u.PathFrame = r.ReadU8()
	u.PathingFlags = r.ReadU8()
	u.Unk106 = r.ReadU8()
	u.Unk107 = r.ReadU8()
	readU16s(r, u.CollisionPoints[:])
	u.Spells.Decode(r)
	u.BulletSpreadSeed = r.ReadU16()
	u.AI.Decode(r)
	u.AirStrength = r.ReadU16()
	u.GroundStrength = r.ReadU16()
	u.PosSearch = entity.SearchBox{Left: r.ReadU32(), Right: r.ReadU32(), Top: r.ReadU32(), Bottom: r.ReadU32()}
	var rep [4]byte
	r.ReadRaw(rep[:])
	u.Repulse = entity.Repulse{Misc: rep[0], Direction: rep[1], ChunkX: rep[2], ChunkY: rep[3]}
}

func (s *SaveRefs) Unit(u *entity.Unit) (*UnitRecord, error) {
	ent, err := saveEntity(s, s.Units, u.Prev, u.Next, &u.Flingy)
	if err != nil {
		return nil, err
	}
	rec := &UnitRecord{
		Entity:               ent,
		Shields:              u.Shields,
		UnitID:               u.UnitID,
		Unused66:             u.Unused66,
		HighlightOrderCount:  u.HighlightOrderCount,
		OrderWait:            u.OrderWait,
		Unk86:                u.Unk86,
		AttackNotifyTimer:    u.AttackNotifyTimer,
		PreviousUnitID:       u.PreviousUnitID,
		MinimapDrawCounter:   u.MinimapDrawCounter,
		MinimapDrawColor:     u.MinimapDrawColor,
		Unused8c:             u.Unused8c,
		Rank:                 u.Rank,
		Kills:                u.Kills,
		LastAttackingPlayer:  u.LastAttackingPlayer,
		SecondaryOrderWait:   u.SecondaryOrderWait,
		AISpellFlags:         u.AISpellFlags,
		OrderFlags:           u.OrderFlags,
		Buttons:              u.Buttons,
		InvisibilityEffects:  u.InvisibilityEffects,
		MovementState:        u.MovementState,
		BuildQueue:           u.BuildQueue,
		Energy:               u.Energy,
		CurrentBuildSlot:     u.CurrentBuildSlot,
		MinorUniqueIndex:     u.MinorUniqueIndex,
		SecondaryOrder:       u.SecondaryOrder,
		BuildingOverlayState: u.BuildingOverlayState,
		BuildHPGain:          u.BuildHPGain,
		BuildShieldGain:      u.BuildShieldGain,
		RemainingBuildTime:   u.RemainingBuildTime,
		PreviousHP:           u.PreviousHP,
		LoadedUnits:          u.LoadedUnits,
		Flags:                u.Flags,
		CarriedPowerupFlags:  u.CarriedPowerupFlags,
		WireframeSeed:        u.WireframeSeed,
		SecondaryOrderState:  u.SecondaryOrderState,
		MoveTargetTimer:      u.MoveTargetTimer,
		DetectionStatus:      u.DetectionStatus,
		UnkE8:                u.UnkE8,
		UnkEA:                u.UnkEA,
		PathFrame:            u.PathFrame,
		PathingFlags:         u.PathingFlags,
		Unk106:               u.Unk106,
		Unk107:               u.Unk107,
		CollisionPoints:      u.CollisionPoints,
		BulletSpreadSeed:     u.BulletSpreadSeed,
		AirStrength:          u.AirStrength,
		GroundStrength:       u.GroundStrength,
		PosSearch:            u.PosSearch,
		Repulse:              u.Repulse,
	}
	for _, ref := range []struct {
		dst *uint16
		u   *entity.Unit
	}{
		{&rec.NextPlayerUnit, u.NextPlayerUnit},
		{&rec.PrevPlayerUnit, u.PrevPlayerUnit},
		{&rec.Subunit, u.Subunit},
		{&rec.PreviousAttacker, u.PreviousAttacker},
		{&rec.Related, u.Related},
		{&rec.CurrentlyBuilding, u.CurrentlyBuilding},
		{&rec.NextInvisible, u.NextInvisible},
		{&rec.PrevInvisible, u.PrevInvisible},
	} {
		if *ref.dst, err = s.unit(ref.u); err != nil {
			return nil, err
		}
	}
	if rec.OrderQueueBegin, err = s.order(u.OrderQueueBegin); err != nil {
		return nil, err
	}
	if rec.OrderQueueEnd, err = s.order(u.OrderQueueEnd); err != nil {
		return nil, err
	}
	if rec.Path, err = s.path(u.Path); err != nil {
		return nil, err
	}
	if rec.Specific, err = s.specific(u); err != nil {
		return nil, err
	}
	if rec.Specific2, err = s.specific2(u); err != nil {
		return nil, err
	}
	if rec.Rally, err = s.rally(u); err != nil {
		return nil, err
	}
	if rec.AI, err = s.ai(u.AI); err != nil {
		return nil, err
	}
	if rec.Spells, err = s.spells(&u.Spells); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SaveRefs) spells(sp *entity.UnitSpells) (SpellsRecord, error) {
	irradiatedBy, err := s.unit(sp.IrradiatedBy)
	if err != nil {
		return SpellsRecord{}, err
	}
	return SpellsRecord{
		DeathTimer:         sp.DeathTimer,
		DefensiveMatrixDmg: sp.DefensiveMatrixDmg,
		MatrixTimer:        sp.MatrixTimer,
		StimTimer:          sp.StimTimer,
		EnsnareTimer:       sp.EnsnareTimer,
		LockdownTimer:      sp.LockdownTimer,
		IrradiateTimer:     sp.IrradiateTimer,
		StasisTimer:        sp.StasisTimer,
		PlagueTimer:        sp.PlagueTimer,
		IsUnderStorm:       sp.IsUnderStorm,
		IrradiatedBy:       irradiatedBy,
		IrradiatePlayer:    sp.IrradiatePlayer,
		ParasitedByPlayers: sp.ParasitedByPlayers,
		MasterSpellTimer:   sp.MasterSpellTimer,
		IsBlind:            sp.IsBlind,
		MaelstromTimer:     sp.MaelstromTimer,
		Unk125:             sp.Unk125,
		AcidSporeCount:     sp.AcidSporeCount,
		AcidSporeTimers:    sp.AcidSporeTimers,
	}, nil
}

// Unit fills the staging value dst. The position search box and repulse
// membership are not restored: they describe host indices that are rebuilt
// after the load is committed.
func (l *LoadRefs) Unit(rec *UnitRecord, dst *entity.Unit) error {
	prev, next, f, err := loadEntity(l, l.Units, &rec.Entity)
	if err != nil {
		return err
	}
	u := entity.Unit{
		Prev:                 prev,
		Next:                 next,
		Flingy:               f,
		Shields:              rec.Shields,
		UnitID:               rec.UnitID,
		Unused66:             rec.Unused66,
		HighlightOrderCount:  rec.HighlightOrderCount,
		OrderWait:            rec.OrderWait,
		Unk86:                rec.Unk86,
		AttackNotifyTimer:    rec.AttackNotifyTimer,
		PreviousUnitID:       rec.PreviousUnitID,
		MinimapDrawCounter:   rec.MinimapDrawCounter,
		MinimapDrawColor:     rec.MinimapDrawColor,
		Unused8c:             rec.Unused8c,
		Rank:                 rec.Rank,
		Kills:                rec.Kills,
		LastAttackingPlayer:  rec.LastAttackingPlayer,
		SecondaryOrderWait:   rec.SecondaryOrderWait,
		AISpellFlags:         rec.AISpellFlags,
		OrderFlags:           rec.OrderFlags,
		Buttons:              rec.Buttons,
		InvisibilityEffects:  rec.InvisibilityEffects,
		MovementState:        rec.MovementState,
		BuildQueue:           rec.BuildQueue,
		Energy:               rec.Energy,
		CurrentBuildSlot:     rec.CurrentBuildSlot,
		MinorUniqueIndex:     rec.MinorUniqueIndex,
		SecondaryOrder:       rec.SecondaryOrder,
		BuildingOverlayState: rec.BuildingOverlayState,
		BuildHPGain:          rec.BuildHPGain,
		BuildShieldGain:      rec.BuildShieldGain,
		RemainingBuildTime:   rec.RemainingBuildTime,
		PreviousHP:           rec.PreviousHP,
		LoadedUnits:          rec.LoadedUnits,
		Flags:                rec.Flags,
		CarriedPowerupFlags:  rec.CarriedPowerupFlags,
		WireframeSeed:        rec.WireframeSeed,
		SecondaryOrderState:  rec.SecondaryOrderState,
		MoveTargetTimer:      rec.MoveTargetTimer,
		DetectionStatus:      rec.DetectionStatus,
		UnkE8:                rec.UnkE8,
		UnkEA:                rec.UnkEA,
		PathFrame:            rec.PathFrame,
		PathingFlags:         rec.PathingFlags,
		Unk106:               rec.Unk106,
		Unk107:               rec.Unk107,
		CollisionPoints:      rec.CollisionPoints,
		BulletSpreadSeed:     rec.BulletSpreadSeed,
		AirStrength:          rec.AirStrength,
		GroundStrength:       rec.GroundStrength,
		PosSearch:            entity.UnsetSearchBox,
	}
	for _, ref := range []struct {
		dst **entity.Unit
		id  uint16
	}{
		{&u.NextPlayerUnit, rec.NextPlayerUnit},
		{&u.PrevPlayerUnit, rec.PrevPlayerUnit},
		{&u.Subunit, rec.Subunit},
		{&u.PreviousAttacker, rec.PreviousAttacker},
		{&u.Related, rec.Related},
		{&u.CurrentlyBuilding, rec.CurrentlyBuilding},
		{&u.NextInvisible, rec.NextInvisible},
		{&u.PrevInvisible, rec.PrevInvisible},
		{&u.Spells.IrradiatedBy, rec.Spells.IrradiatedBy},
	} {
		if *ref.dst, err = l.unit(ref.id); err != nil {
			return err
		}
	}
	if u.OrderQueueBegin, err = l.order(rec.OrderQueueBegin); err != nil {
		return err
	}
	if u.OrderQueueEnd, err = l.order(rec.OrderQueueEnd); err != nil {
		return err
	}
	if u.Path, err = l.path(rec.Path); err != nil {
		return err
	}
	if u.Specific, err = l.specific(&u, rec.Specific); err != nil {
		return err
	}
	if u.Specific2, err = l.specific2(u.UnitID, rec.Specific2); err != nil {
		return err
	}
	if u.Rally, err = l.rally(u.UnitID, rec.Rally); err != nil {
		return err
	}
	if u.AI, err = l.ai(rec.AI); err != nil {
		return err
	}
	sp := rec.Spells
	u.Spells.DeathTimer = sp.DeathTimer
	u.Spells.DefensiveMatrixDmg = sp.DefensiveMatrixDmg
	u.Spells.MatrixTimer = sp.MatrixTimer
	u.Spells.StimTimer = sp.StimTimer
	u.Spells.EnsnareTimer = sp.EnsnareTimer
	u.Spells.LockdownTimer = sp.LockdownTimer
	u.Spells.IrradiateTimer = sp.IrradiateTimer
	u.Spells.StasisTimer = sp.StasisTimer
	u.Spells.PlagueTimer = sp.PlagueTimer
	u.Spells.IsUnderStorm = sp.IsUnderStorm
	u.Spells.IrradiatePlayer = sp.IrradiatePlayer
	u.Spells.ParasitedByPlayers = sp.ParasitedByPlayers
	u.Spells.MasterSpellTimer = sp.MasterSpellTimer
	u.Spells.IsBlind = sp.IsBlind
	u.Spells.MaelstromTimer = sp.MaelstromTimer
	u.Spells.Unk125 = sp.Unk125
	u.Spells.AcidSporeCount = sp.AcidSporeCount
	u.Spells.AcidSporeTimers = sp.AcidSporeTimers
	*dst = u
	return nil
}
