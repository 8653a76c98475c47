// Package chunk frames save payloads for the host file:
// [u16 magic][u32 version][u32 payload_len][payload], little-endian,
// where the payload is a raw DEFLATE stream of wire records.
package chunk

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/l1jgo/entpool/internal/saveerr"
)

const HeaderSize = 10

// Spec identifies one entity kind's chunk and its size ceiling. The ceiling
// applies to the compressed payload and to the decoded record stream alike.
type Spec struct {
	Name    string
	Magic   uint16
	Version uint32
	MaxSize uint32
}

var (
	Bullets = Spec{Name: "bullets", Magic: 0xffed, Version: 0, MaxSize: 0x800000}
	Sprites = Spec{Name: "sprites", Magic: 0xffee, Version: 1, MaxSize: 0x1000000}
	Units   = Spec{Name: "units", Magic: 0xffec, Version: 1, MaxSize: 0x1000000}
)

// WithLimit returns a copy of s with a different ceiling; 0 keeps the default.
func (s Spec) WithLimit(max uint32) Spec {
	if max != 0 {
		s.MaxSize = max
	}
	return s
}

// Known lists the chunk kinds by magic, for inspection tools.
func Known() map[uint16]Spec {
	return map[uint16]Spec{
		Bullets.Magic: Bullets,
		Sprites.Magic: Sprites,
		Units.Magic:   Units,
	}
}

type Header struct {
	Magic   uint16
	Version uint32
	Length  uint32
}

func (h Header) bytes() [HeaderSize]byte {
	var b [HeaderSize]byte
	binary.LittleEndian.PutUint16(b[0:], h.Magic)
	binary.LittleEndian.PutUint32(b[2:], h.Version)
	binary.LittleEndian.PutUint32(b[6:], h.Length)
	return b
}

// WriteChunk emits one complete chunk. The payload must already be finished;
// partial chunks are never written.
func WriteChunk(w io.Writer, spec Spec, payload []byte) error {
	if uint64(len(payload)) > uint64(spec.MaxSize) {
		return &saveerr.SizeLimitError{Amount: uint64(len(payload))}
	}
	h := Header{Magic: spec.Magic, Version: spec.Version, Length: uint32(len(payload))}
	hb := h.bytes()
	if _, err := w.Write(hb[:]); err != nil {
		return fmt.Errorf("write %s chunk header: %w: %w", spec.Name, saveerr.ErrHostIO, err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write %s chunk payload (%d bytes): %w: %w", spec.Name, len(payload), saveerr.ErrHostIO, err)
	}
	return nil
}

func readNum[T uint16 | uint32](r io.Reader, what string) (T, error) {
	var v T
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, fmt.Errorf("read chunk %s: %w: %w", what, saveerr.ErrHostIO, err)
	}
	return v, nil
}

// ReadChunk validates the envelope field by field (magic, then version, then
// declared length against the ceiling) and only then reads the payload.
func ReadChunk(r io.Reader, spec Spec) ([]byte, error) {
	magic, err := readNum[uint16](r, "magic")
	if err != nil {
		return nil, err
	}
	if magic != spec.Magic {
		return nil, &saveerr.WrongMagicError{Magic: magic}
	}
	version, err := readNum[uint32](r, "version")
	if err != nil {
		return nil, err
	}
	if version != spec.Version {
		return nil, &saveerr.VersionError{Version: version}
	}
	size, err := readNum[uint32](r, "length")
	if err != nil {
		return nil, err
	}
	if size > spec.MaxSize {
		return nil, saveerr.Corrupted("%s chunk size %d is too large", spec.Name, size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read %s chunk payload (%d bytes): %w: %w", spec.Name, size, saveerr.ErrHostIO, err)
	}
	return payload, nil
}

// ReadHeader reads an envelope without validating it against any Spec.
func ReadHeader(r io.Reader) (Header, error) {
	var b [HeaderSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return Header{}, fmt.Errorf("read chunk header: %w", err)
	}
	return Header{
		Magic:   binary.LittleEndian.Uint16(b[0:]),
		Version: binary.LittleEndian.Uint32(b[2:]),
		Length:  binary.LittleEndian.Uint32(b[6:]),
	}, nil
}
