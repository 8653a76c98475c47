package entity

// Sprite flag bits.
const (
	SpriteSelected     uint8 = 0x01
	SpriteSelectionBar uint8 = 0x08
	SpriteDrawOnTop    uint8 = 0x10
)

// Sprite is a visual sprite owning a list of image overlays. Sprites live in
// the sprite arena; free ones are threaded on the host's free list.
type Sprite struct {
	Prev, Next          *Sprite
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
	Position            Point
	MainImage           *Image
	FirstOverlay        *Image
	LastOverlay         *Image

	// SpawnOrder breaks draw-order ties between otherwise equal sprites.
	SpawnOrder uint64
}

type Iscript struct {
	Header      uint16
	Pos         uint16
	ReturnPos   uint16
	AnimationID uint8
	Wait        uint8
}

// Image is one overlay of a sprite, allocated from the image arena.
type Image struct {
	Prev, Next     *Image
	ImageID        uint16
	Drawfunc       uint8
	Direction      uint8
	Flags          uint16
	XOffset        int8
	YOffset        int8
	Iscript        Iscript
	Frameset       uint16
	Frame          uint16
	MapPosition    Point
	ScreenPosition [2]int16
	GrpBounds      [4]int16
	Grp            *Grp
	DrawParam      DrawParam
	Parent         *Sprite
}

// Grp is a host graphics handle; images point into the host grp table.
type Grp struct {
	ID   uint16
	Name string
}

// RemapPalette is one of the host's color remapping tables.
type RemapPalette struct {
	Name string
	Data []byte
}

// Image drawfuncs with a pointer-valued draw parameter.
const (
	DrawfuncRemap     uint8 = 0x9
	DrawfuncSelection uint8 = 0xb
)

// DrawParam is the drawfunc-specific parameter of an image. Which variant is
// legal follows from Image.Drawfunc; see DrawParamKindFor.
type DrawParam interface {
	drawParamKind() DrawParamKind
}

type DrawParamKind uint8

const (
	DrawParamRaw DrawParamKind = iota
	DrawParamRemap
	DrawParamUnit
)

func (k DrawParamKind) String() string {
	switch k {
	case DrawParamRemap:
		return "remap palette"
	case DrawParamUnit:
		return "unit"
	default:
		return "raw value"
	}
}

// DrawParamKindFor is the only place that maps a drawfunc to its parameter.
func DrawParamKindFor(drawfunc uint8) DrawParamKind {
	switch drawfunc {
	case DrawfuncRemap:
		return DrawParamRemap
	case DrawfuncSelection:
		return DrawParamUnit
	default:
		return DrawParamRaw
	}
}

// KindOf returns the variant of p; nil counts as whatever is expected.
func KindOf(p DrawParam, expected DrawParamKind) DrawParamKind {
	if p == nil {
		return expected
	}
	return p.drawParamKind()
}

type RemapParam struct{ Palette *RemapPalette }
type UnitParam struct{ Unit *Unit }
type RawParam uint32

func (RemapParam) drawParamKind() DrawParamKind { return DrawParamRemap }
func (UnitParam) drawParamKind() DrawParamKind  { return DrawParamUnit }
func (RawParam) drawParamKind() DrawParamKind   { return DrawParamRaw }

// IsSelectionOverlay reports images that only exist while a sprite is
// selected. They are rebuilt by the host and never persisted.
func IsSelectionOverlay(img *Image) bool {
	return (img.ImageID >= 0x231 && img.ImageID <= 0x23a) || img.Drawfunc == DrawfuncSelection
}

// LoneSprite is a standalone sprite (lone or fog-of-war list), heap owned.
type LoneSprite struct {
	Prev, Next *LoneSprite
	Value      uint32
	Sprite     *Sprite
}
