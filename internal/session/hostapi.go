package session

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Kind selects one chunk kind at the host boundary.
type Kind uint8

const (
	KindSprites Kind = iota
	KindUnits
	KindBullets
)

func (k Kind) String() string {
	switch k {
	case KindSprites:
		return "sprites"
	case KindUnits:
		return "units"
	case KindBullets:
		return "bullets"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// SaveChunk is what the host's save hook calls. The host only learns success
// or failure; the error goes to the log and, as text, to the player.
func (s *Session) SaveChunk(kind Kind, w io.Writer) bool {
	start := time.Now()
	var err error
	switch kind {
	case KindSprites:
		err = s.SaveSprites(w)
	case KindUnits:
		err = s.SaveUnits(w)
	case KindBullets:
		err = s.SaveBullets(w)
	default:
		err = fmt.Errorf("unknown chunk kind %d", kind)
	}
	s.met.ObserveOp("save", kind.String(), time.Since(start), err)
	if err != nil {
		s.log.Error("存檔失敗", zap.Stringer("kind", kind), zap.Error(err))
		s.msg.SaveFailed(err)
		return false
	}
	return true
}

// LoadChunk is what the host's load hook calls. Unit and bullet chunks are
// only read in the save version this package writes.
func (s *Session) LoadChunk(kind Kind, r io.Reader, saveVersion uint8) bool {
	if kind != KindSprites && saveVersion != SupportedSaveVersion {
		s.log.Info("不支援的存檔版本",
			zap.Stringer("kind", kind),
			zap.Uint8("save_version", saveVersion))
		return false
	}
	start := time.Now()
	var err error
	switch kind {
	case KindSprites:
		err = s.LoadSprites(r)
	case KindUnits:
		err = s.LoadUnits(r)
	case KindBullets:
		err = s.LoadBullets(r)
	default:
		err = fmt.Errorf("unknown chunk kind %d", kind)
	}
	s.met.ObserveOp("load", kind.String(), time.Since(start), err)
	if err != nil {
		s.log.Info("讀檔失敗", zap.Stringer("kind", kind), zap.Error(err))
		return false
	}
	return true
}
