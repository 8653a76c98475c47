// Package entity holds the live entity layouts the pools store and the
// save codecs flatten. Pointer fields are plain Go pointers into arenas,
// heap pools or fixed host tables.
package entity

type Point struct {
	X, Y int16
}

type Point32 struct {
	X, Y int32
}

// Flingy is the movement and order block shared by bullets and units.
// List links live on the embedding type.
type Flingy struct {
	Hitpoints           int32
	Sprite              *Sprite
	MoveTarget          Point
	MoveTargetUnit      *Unit
	NextMoveWaypoint    Point
	UnkMoveWaypoint     Point
	FlingyFlags         uint8
	FacingDirection     uint8
	FlingyTurnSpeed     uint8
	MovementDirection   uint8
	FlingyID            uint16
	Unk26               uint8
	FlingyMovementType  uint8
	Position            Point
	ExactPosition       Point32
	FlingyTopSpeed      uint32
	CurrentSpeed        int32
	NextSpeed           int32
	Speed               int32
	Speed2              int32
	Acceleration        uint16
	NewDirection        uint8
	TargetDirection     uint8
	Player              uint8
	Order               uint8
	OrderState          uint8
	OrderSignal         uint8
	OrderFowUnit        uint16
	Unused52            uint16
	OrderTimer          uint8
	GroundCooldown      uint8
	AirCooldown         uint8
	SpellCooldown       uint8
	OrderTargetPos      Point
	Target              *Unit
}

// Bullet is a projectile. Bullets are heap owned; the host's fixed bullet
// array is bypassed entirely.
type Bullet struct {
	Prev, Next *Bullet
	Flingy
	WeaponID             uint8
	DeathTimer           uint8
	Flags                uint8
	BouncesRemaining     uint8
	Parent               *Unit
	PreviousBounceTarget *Unit
	SpreadSeed           uint8
}
