package entity

import "fmt"

// AIKind is the type byte at the head of every AI record.
type AIKind uint8

const (
	AINone AIKind = iota
	AIGuard
	AIWorker
	AIBuilding
	AIMilitary
)

func (k AIKind) String() string {
	switch k {
	case AINone:
		return "NoAi"
	case AIGuard:
		return "Guard"
	case AIWorker:
		return "Worker"
	case AIBuilding:
		return "Building"
	case AIMilitary:
		return "Military"
	default:
		return fmt.Sprintf("AIKind(%d)", uint8(k))
	}
}

// UnitAI is one record of an AI table. Kind says which of the four tables
// the record lives in; a unit only holds a pointer to it.
type UnitAI struct {
	Prev, Next *UnitAI
	Kind       AIKind
	Data       [0x1c]byte
}

// AITables are the four fixed AI record tables.
type AITables struct {
	Guard    []UnitAI
	Worker   []UnitAI
	Building []UnitAI
	Military []UnitAI
}

// NewAITables allocates four tables of size entries and stamps each record
// with the kind of the table it belongs to.
func NewAITables(size int) *AITables {
	t := &AITables{
		Guard:    make([]UnitAI, size),
		Worker:   make([]UnitAI, size),
		Building: make([]UnitAI, size),
		Military: make([]UnitAI, size),
	}
	for _, k := range []AIKind{AIGuard, AIWorker, AIBuilding, AIMilitary} {
		tab := t.Table(k)
		for i := range tab {
			tab[i].Kind = k
		}
	}
	return t
}

// Table returns the table for kind, nil for AINone or unknown kinds.
func (t *AITables) Table(kind AIKind) []UnitAI {
	switch kind {
	case AIGuard:
		return t.Guard
	case AIWorker:
		return t.Worker
	case AIBuilding:
		return t.Building
	case AIMilitary:
		return t.Military
	default:
		return nil
	}
}

// IndexOf locates ai inside the table its Kind selects.
func (t *AITables) IndexOf(ai *UnitAI) (int, bool) {
	tab := t.Table(ai.Kind)
	for i := range tab {
		if &tab[i] == ai {
			return i, true
		}
	}
	return 0, false
}
