package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrBudget is set when a read would take the stream past its byte budget.
var ErrBudget = errors.New("read past byte budget")

// Reader decodes fields from a stream. The first failure sticks: later reads
// return zero values and Err reports the original cause, so decoders can
// read a whole record and check once.
type Reader struct {
	r        io.Reader
	budget   uint64
	consumed uint64
	err      error
	scratch  [8]byte
}

// NewReader reads at most budget bytes from r.
func NewReader(r io.Reader, budget uint64) *Reader {
	return &Reader{r: r, budget: budget}
}

func (r *Reader) Err() error { return r.err }

// Consumed is the number of bytes decoded so far.
func (r *Reader) Consumed() uint64 { return r.consumed }

// Remaining is the unspent part of the budget.
func (r *Reader) Remaining() uint64 {
	if r.consumed >= r.budget {
		return 0
	}
	return r.budget - r.consumed
}

// Fail records err unless an earlier error is already set.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) fill(b []byte) bool {
	if r.err != nil {
		return false
	}
	if uint64(len(b)) > r.Remaining() {
		r.err = ErrBudget
		return false
	}
	if _, err := io.ReadFull(r.r, b); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		r.err = err
		return false
	}
	r.consumed += uint64(len(b))
	return true
}

// ReadU8 reads 1 byte.
func (r *Reader) ReadU8() uint8 {
	if !r.fill(r.scratch[:1]) {
		return 0
	}
	return r.scratch[0]
}

func (r *Reader) ReadI8() int8 { return int8(r.ReadU8()) }

func (r *Reader) ReadBool() bool {
	switch v := r.ReadU8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		r.Fail(fmt.Errorf("invalid bool value %d", v))
		return false
	}
}

// ReadU16 reads 2 bytes as little-endian uint16.
func (r *Reader) ReadU16() uint16 {
	if !r.fill(r.scratch[:2]) {
		return 0
	}
	return binary.LittleEndian.Uint16(r.scratch[:2])
}

func (r *Reader) ReadI16() int16 { return int16(r.ReadU16()) }

// ReadU32 reads 4 bytes as little-endian uint32.
func (r *Reader) ReadU32() uint32 {
	if !r.fill(r.scratch[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(r.scratch[:4])
}

func (r *Reader) ReadI32() int32 { return int32(r.ReadU32()) }

// ReadU64 reads 8 bytes as little-endian uint64.
func (r *Reader) ReadU64() uint64 {
	if !r.fill(r.scratch[:8]) {
		return 0
	}
	return binary.LittleEndian.Uint64(r.scratch[:8])
}

// ReadTag reads an enum discriminant.
func (r *Reader) ReadTag() uint32 { return r.ReadU32() }

// ReadLen reads a sequence length whose elements take at least minElem bytes
// each. Lengths that could not fit in the remaining budget fail before the
// caller allocates anything.
func (r *Reader) ReadLen(minElem int) int {
	n := r.ReadU64()
	if r.err != nil {
		return 0
	}
	if minElem < 1 {
		minElem = 1
	}
	if n > r.Remaining()/uint64(minElem) {
		r.Fail(fmt.Errorf("sequence length %d exceeds remaining budget: %w", n, ErrBudget))
		return 0
	}
	return int(n)
}

// ReadRaw fills b completely.
func (r *Reader) ReadRaw(b []byte) {
	if !r.fill(b) {
		clear(b)
	}
}
