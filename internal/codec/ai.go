package codec

import (
	"fmt"

	"github.com/l1jgo/entpool/internal/entity"
	"github.com/l1jgo/entpool/internal/saveerr"
	"github.com/l1jgo/entpool/internal/wire"
)

// AIRef is a tagged index into one of the four AI tables. The tag is the
// AI kind; AINone carries no index.
type AIRef struct {
	Kind  entity.AIKind
	Index uint16
}

func (a AIRef) String() string {
	if a.Kind == entity.AINone {
		return a.Kind.String()
	}
	return fmt.Sprintf("%s(%d)", a.Kind, a.Index)
}

func (a *AIRef) Encode(w *wire.Writer) {
	w.WriteTag(uint32(a.Kind))
	if a.Kind != entity.AINone {
		w.WriteU16(a.Index)
	}
}

func (a *AIRef) Decode(r *wire.Reader) {
	tag := r.ReadTag()
	if tag > uint32(entity.AIMilitary) {
		r.Fail(saveerr.Corrupted("invalid unit ai tag %d", tag))
		return
	}
	a.Kind = entity.AIKind(tag)
	if a.Kind != entity.AINone {
		a.Index = r.ReadU16()
	}
}

func (s *SaveRefs) ai(ai *entity.UnitAI) (AIRef, error) {
	if ai == nil {
		return AIRef{}, nil
	}
	if ai.Kind < entity.AIGuard || ai.Kind > entity.AIMilitary {
		return AIRef{}, &saveerr.InvalidPointerError{Kind: fmt.Sprintf("unit ai (type %d)", uint8(ai.Kind))}
	}
	i, ok := s.AI.IndexOf(ai)
	if !ok {
		return AIRef{}, &saveerr.InvalidPointerError{Kind: "unit ai"}
	}
	return AIRef{Kind: ai.Kind, Index: uint16(i)}, nil
}

func (l *LoadRefs) ai(ref AIRef) (*entity.UnitAI, error) {
	if ref.Kind == entity.AINone {
		return nil, nil
	}
	tab := l.AI.Table(ref.Kind)
	if int(ref.Index) >= len(tab) {
		return nil, saveerr.Corrupted("invalid unit ai %s", ref)
	}
	return &tab[ref.Index], nil
}
