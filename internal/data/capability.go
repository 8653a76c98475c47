package data

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed unit_caps.yaml
var defaultCapabilities []byte

// units.dat special ability flags.
const (
	DatFlagWorker  uint32 = 0x8
	DatFlagPowerup uint32 = 0x800
)

type Trait string

const (
	TraitHangar      Trait = "hangar"
	TraitHangarChild Trait = "hangar_child"
	TraitResource    Trait = "resource"
	TraitNuclearSilo Trait = "nuclear_silo"
	TraitGhost       Trait = "ghost"
	TraitPylon       Trait = "pylon"
)

var knownTraits = map[Trait]bool{
	TraitHangar:      true,
	TraitHangarChild: true,
	TraitResource:    true,
	TraitNuclearSilo: true,
	TraitGhost:       true,
	TraitPylon:       true,
}

// UnitCaps 單一單位種類的能力。
type UnitCaps struct {
	ID     uint16  `yaml:"id"`
	Name   string  `yaml:"name"`
	Flags  uint32  `yaml:"flags"`
	Traits []Trait `yaml:"traits"`

	traits map[Trait]bool
}

type capabilityFile struct {
	RemapPalettes []string   `yaml:"remap_palettes"`
	Units         []UnitCaps `yaml:"units"`
}

// Capabilities 單位能力查詢表。未列出的單位種類沒有任何能力。
type Capabilities struct {
	units    map[uint16]*UnitCaps
	palettes []string
}

// LoadCapabilities 載入 unit_caps.yaml；path 為空時使用內建表。
func LoadCapabilities(path string) (*Capabilities, error) {
	if path == "" {
		return ParseCapabilities(defaultCapabilities)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capability table: %w", err)
	}
	return ParseCapabilities(raw)
}

// DefaultCapabilities returns the embedded table.
func DefaultCapabilities() *Capabilities {
	c, err := ParseCapabilities(defaultCapabilities)
	if err != nil {
		panic(fmt.Sprintf("embedded capability table: %v", err))
	}
	return c
}

func ParseCapabilities(raw []byte) (*Capabilities, error) {
	var f capabilityFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse capability table: %w", err)
	}
	c := &Capabilities{
		units:    make(map[uint16]*UnitCaps, len(f.Units)),
		palettes: f.RemapPalettes,
	}
	for i := range f.Units {
		e := &f.Units[i]
		if _, dup := c.units[e.ID]; dup {
			return nil, fmt.Errorf("capability table: unit 0x%x listed twice", e.ID)
		}
		e.traits = make(map[Trait]bool, len(e.Traits))
		for _, t := range e.Traits {
			if !knownTraits[t] {
				return nil, fmt.Errorf("capability table: unit 0x%x (%s): unknown trait %q", e.ID, e.Name, t)
			}
			e.traits[t] = true
		}
		c.units[e.ID] = e
	}
	return c, nil
}

// Get returns the entry for unitID, or nil if none.
func (c *Capabilities) Get(unitID uint16) *UnitCaps {
	return c.units[unitID]
}

func (c *Capabilities) has(unitID uint16, t Trait) bool {
	e := c.units[unitID]
	return e != nil && e.traits[t]
}

func (c *Capabilities) flag(unitID uint16, f uint32) bool {
	e := c.units[unitID]
	return e != nil && e.Flags&f != 0
}

func (c *Capabilities) IsWorker(unitID uint16) bool      { return c.flag(unitID, DatFlagWorker) }
func (c *Capabilities) IsPowerup(unitID uint16) bool     { return c.flag(unitID, DatFlagPowerup) }
func (c *Capabilities) HasHangar(unitID uint16) bool     { return c.has(unitID, TraitHangar) }
func (c *Capabilities) IsHangarChild(unitID uint16) bool { return c.has(unitID, TraitHangarChild) }
func (c *Capabilities) IsResource(unitID uint16) bool    { return c.has(unitID, TraitResource) }
func (c *Capabilities) IsNuclearSilo(unitID uint16) bool { return c.has(unitID, TraitNuclearSilo) }
func (c *Capabilities) IsGhost(unitID uint16) bool       { return c.has(unitID, TraitGhost) }
func (c *Capabilities) IsPylon(unitID uint16) bool       { return c.has(unitID, TraitPylon) }

// RemapPalettes returns the palette names in host table order.
func (c *Capabilities) RemapPalettes() []string { return c.palettes }

// Count returns the number of unit kinds listed.
func (c *Capabilities) Count() int {
	return len(c.units)
}
