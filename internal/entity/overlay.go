package entity

// The unit record has two small unions whose layout depends on the unit's
// kind. Each union is a closed set of variants; the codec picks the variant
// from the unit and refuses values of any other variant.

type SpecificKind uint8

const (
	SpecificRaw SpecificKind = iota
	SpecificHangar
	SpecificChild
	SpecificBuilding
	SpecificWorker
)

var specificNames = [...]string{"raw", "hangar", "child", "building", "worker"}

func (k SpecificKind) String() string {
	if int(k) < len(specificNames) {
		return specificNames[k]
	}
	return "unknown"
}

// UnitSpecific is the 16-byte per-kind union.
type UnitSpecific interface {
	SpecificKind() SpecificKind
}

// HangarState belongs to carriers, reavers and their hero versions.
type HangarState struct {
	InChild  *Unit
	OutChild *Unit
	InCount  uint8
	OutCount uint8
	Tail     [6]byte
}

// ChildState belongs to interceptors and scarabs.
type ChildState struct {
	Parent        *Unit
	Prev, Next    *Unit
	OutsideHangar uint8
	Tail          [3]byte
}

type BuildingState struct {
	Addon *Unit
	Tail  [12]byte
}

type WorkerState struct {
	Powerup         *Unit
	TargetResourceX uint16
	TargetResourceY uint16
	HarvestTarget   *Unit
	Tail            [4]byte
}

// RawSpecific is kept byte for byte; it holds no pointers.
type RawSpecific [16]byte

func (*HangarState) SpecificKind() SpecificKind   { return SpecificHangar }
func (*ChildState) SpecificKind() SpecificKind    { return SpecificChild }
func (*BuildingState) SpecificKind() SpecificKind { return SpecificBuilding }
func (*WorkerState) SpecificKind() SpecificKind   { return SpecificWorker }
func (*RawSpecific) SpecificKind() SpecificKind   { return SpecificRaw }

type Specific2Kind uint8

const (
	Specific2Raw Specific2Kind = iota
	Specific2Resource
	Specific2Powerup
	Specific2Worker
	Specific2Silo
	Specific2Ghost
	Specific2Pylon
)

var specific2Names = [...]string{"raw", "resource", "powerup", "worker", "nuclear silo", "ghost", "pylon"}

func (k Specific2Kind) String() string {
	if int(k) < len(specific2Names) {
		return specific2Names[k]
	}
	return "unknown"
}

// UnitSpecific2 is the 12-byte per-kind union.
type UnitSpecific2 interface {
	Specific2Kind() Specific2Kind
}

type ResourceState struct {
	Amount              uint16
	Iscript             uint8
	AwaitingWorkers     uint8
	FirstAwaitingWorker *Unit
	Tail                [4]byte
}

type PowerupState struct {
	OriginX, OriginY uint16
	Carrier          *Unit
	Tail             [4]byte
}

type HarvestState struct {
	Target        *Unit
	PrevHarvester *Unit
	NextHarvester *Unit
}

type SiloState struct {
	Nuke *Unit
	Tail [8]byte
}

// GhostState points at the nuke targeting dot, a lone sprite.
type GhostState struct {
	NukeDot *LoneSprite
	Tail    [8]byte
}

// PylonState points at the power field sprite.
type PylonState struct {
	Aura *Sprite
	Tail [8]byte
}

type RawSpecific2 [12]byte

func (*ResourceState) Specific2Kind() Specific2Kind { return Specific2Resource }
func (*PowerupState) Specific2Kind() Specific2Kind  { return Specific2Powerup }
func (*HarvestState) Specific2Kind() Specific2Kind  { return Specific2Worker }
func (*SiloState) Specific2Kind() Specific2Kind     { return Specific2Silo }
func (*GhostState) Specific2Kind() Specific2Kind    { return Specific2Ghost }
func (*PylonState) Specific2Kind() Specific2Kind    { return Specific2Pylon }
func (*RawSpecific2) Specific2Kind() Specific2Kind  { return Specific2Raw }

// RallyOrPylon is the 8-byte union after the invisible list links: pylons
// keep the power list there, everything else a rally point.
type RallyOrPylon interface {
	isPylonList() bool
}

type PylonList struct {
	Prev, Next *Unit
}

type RallyPoint struct {
	X, Y uint16
	Unit *Unit
}

func (*PylonList) isPylonList() bool  { return true }
func (*RallyPoint) isPylonList() bool { return false }

// NewSpecific returns the zero value of the variant k selects.
func NewSpecific(k SpecificKind) UnitSpecific {
	switch k {
	case SpecificHangar:
		return &HangarState{}
	case SpecificChild:
		return &ChildState{}
	case SpecificBuilding:
		return &BuildingState{}
	case SpecificWorker:
		return &WorkerState{}
	default:
		return &RawSpecific{}
	}
}

func NewSpecific2(k Specific2Kind) UnitSpecific2 {
	switch k {
	case Specific2Resource:
		return &ResourceState{}
	case Specific2Powerup:
		return &PowerupState{}
	case Specific2Worker:
		return &HarvestState{}
	case Specific2Silo:
		return &SiloState{}
	case Specific2Ghost:
		return &GhostState{}
	case Specific2Pylon:
		return &PylonState{}
	default:
		return &RawSpecific2{}
	}
}

func NewRally(pylon bool) RallyOrPylon {
	if pylon {
		return &PylonList{}
	}
	return &RallyPoint{}
}
