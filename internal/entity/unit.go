package entity

// Unit flag bits the save path cares about.
const (
	UnitFlagCompleted  uint32 = 0x1
	UnitFlagBuilding   uint32 = 0x2
	UnitFlagAir        uint32 = 0x4
	UnitFlagDisabled   uint32 = 0x8
	UnitFlagBurrowed   uint32 = 0x10
	UnitFlagInBuilding uint32 = 0x20
)

// SearchUnset marks a unit that is not in the position search index.
const SearchUnset = ^uint32(0)

// Players is the number of per-player unit list heads.
const Players = 12

// SearchBox is the unit's slot in the host's position search index. It is
// derived state and rebuilt after every load.
type SearchBox struct {
	Left, Right, Top, Bottom uint32
}

func (b SearchBox) Unset() bool { return b.Left == SearchUnset }

var UnsetSearchBox = SearchBox{SearchUnset, SearchUnset, SearchUnset, SearchUnset}

// Repulse is the unit's membership in an air repulsion chunk; derived state.
type Repulse struct {
	Misc      uint8
	Direction uint8
	ChunkX    uint8
	ChunkY    uint8
}

type UnitSpells struct {
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
	IrradiatedBy       *Unit
	IrradiatePlayer    uint8
	ParasitedByPlayers uint8
	MasterSpellTimer   uint8
	IsBlind            uint8
	MaelstromTimer     uint8
	Unk125             uint8
	AcidSporeCount     uint8
	AcidSporeTimers    [9]uint8
}

// Order is an entry of the host's fixed order queue table.
type Order struct {
	Prev, Next *Order
	OrderID    uint8
	UnitID     uint16
	Position   Point
	Target     uint16
}

// Path is an entry of the host's fixed path table.
type Path struct {
	Data [0x80]byte
}

// Unit lives in the fixed unit table. Units reference each other with u16
// ids, so the table can never exceed 0xffff entries.
type Unit struct {
	Prev, Next *Unit
	Flingy

	Shields              int32
	UnitID               uint16
	Unused66             uint16
	NextPlayerUnit       *Unit
	PrevPlayerUnit       *Unit
	Subunit              *Unit
	OrderQueueBegin      *Order
	OrderQueueEnd        *Order
	PreviousAttacker     *Unit
	Related              *Unit
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
	Specific             UnitSpecific
	Specific2            UnitSpecific2
	Flags                uint32
	CarriedPowerupFlags  uint8
	WireframeSeed        uint8
	SecondaryOrderState  uint8
	MoveTargetTimer      uint8
	DetectionStatus      uint32
	UnkE8                uint16
	UnkEA                uint16
	CurrentlyBuilding    *Unit
	NextInvisible        *Unit
	PrevInvisible        *Unit
	Rally                RallyOrPylon
	Path                 *Path
	PathFrame            uint8
	PathingFlags         uint8
	Unk106               uint8
	Unk107               uint8
	CollisionPoints      [4]uint16
	Spells               UnitSpells
	BulletSpreadSeed     uint16
	AI                   *UnitAI
	AirStrength          uint16
	GroundStrength       uint16
	PosSearch            SearchBox
	Repulse              Repulse
}

func (u *Unit) IsBuilding() bool { return u.Flags&UnitFlagBuilding != 0 }
