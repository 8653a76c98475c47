// Package host describes what the pools need from the simulation they are
// embedded in: index rebuilding after a load and in-game text output.
package host

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/traditionalchinese"

	"github.com/l1jgo/entpool/internal/entity"
)

// Reinserter rebuilds derived unit state that is never taken from a save.
// After a unit chunk is installed each unit that was indexed when saved gets
// both calls exactly once, in active list order.
type Reinserter interface {
	// RecomputeSpatial re-adds u to the position search index. Buildings
	// also get their tile flags back and stacked units are separated.
	RecomputeSpatial(u *entity.Unit)
	// RecomputeRepulsion re-adds u to its air repulsion chunk. Ground units
	// are ignored by the host.
	RecomputeRepulsion(u *entity.Unit)
}

// Notifier prints NUL-terminated text in the host code page.
type Notifier interface {
	PrintText(msg []byte)
}

// NopReinserter is used by tools that never hand units back to a simulation.
type NopReinserter struct{}

func (NopReinserter) RecomputeSpatial(*entity.Unit)   {}
func (NopReinserter) RecomputeRepulsion(*entity.Unit) {}

// Encoding returns the text encoding of a host code page name.
func Encoding(codePage string) (encoding.Encoding, error) {
	switch strings.ToLower(codePage) {
	case "", "utf-8", "utf8":
		return encoding.Nop, nil
	case "cp949", "euc-kr":
		return korean.EUCKR, nil
	case "big5", "ms950", "cp950":
		return traditionalchinese.Big5, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unknown code page %q", codePage)
	}
}

// Messenger formats diagnostics for the player and hands them to a Notifier.
type Messenger struct {
	out Notifier
	enc *encoding.Encoder
}

func NewMessenger(out Notifier, codePage string) (*Messenger, error) {
	enc, err := Encoding(codePage)
	if err != nil {
		return nil, err
	}
	return &Messenger{out: out, enc: encoding.ReplaceUnsupported(enc.NewEncoder())}, nil
}

// Print encodes msg, appends the terminator and prints it. A nil Messenger
// prints nothing.
func (m *Messenger) Print(msg string) {
	if m == nil || m.out == nil {
		return
	}
	b, err := m.enc.Bytes([]byte(msg))
	if err != nil {
		b = []byte(msg)
	}
	m.out.PrintText(append(b, 0))
}

func (m *Messenger) SaveFailed(err error) {
	m.Print(fmt.Sprintf("Unable to save the game: %v", err))
}
