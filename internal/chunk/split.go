package chunk

import (
	"errors"
	"fmt"
	"io"

	"github.com/l1jgo/entpool/internal/saveerr"
)

// Raw is one framed chunk as found in a save file.
type Raw struct {
	Header  Header
	Payload []byte
}

// Kind names the chunk by its magic, "unknown" if no Spec has it.
func (r Raw) Kind() string {
	if spec, ok := Known()[r.Header.Magic]; ok {
		return spec.Name
	}
	return "unknown"
}

// Bytes re-frames the chunk exactly as it was read.
func (r Raw) Bytes() []byte {
	hb := r.Header.bytes()
	return append(hb[:], r.Payload...)
}

// Split reads consecutive chunks until EOF without decoding them. Payload
// lengths are bounded by the largest known ceiling.
func Split(r io.Reader) ([]Raw, error) {
	var limit uint32
	for _, spec := range Known() {
		limit = max(limit, spec.MaxSize)
	}
	var out []Raw
	for {
		h, err := ReadHeader(r)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", len(out), err)
		}
		if h.Length > limit {
			return nil, saveerr.Corrupted("chunk %d size %d is too large", len(out), h.Length)
		}
		payload := make([]byte, h.Length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("chunk %d payload (%d bytes): %w", len(out), h.Length, err)
		}
		out = append(out, Raw{Header: h, Payload: payload})
	}
}
