// Package wire encodes save records: little-endian fixed-width integers,
// sequences prefixed with a u64 element count, enum tags as u32.
package wire

import "encoding/binary"

// Record is anything that can append itself to a Writer.
type Record interface {
	Encode(w *Writer)
}

// RecordFunc adapts a closure to Record.
type RecordFunc func(w *Writer)

func (f RecordFunc) Encode(w *Writer) { f(w) }

// Writer appends fields to an in-memory buffer. It never fails; size
// ceilings are enforced by whoever drains Bytes().
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

// Reset empties the buffer, keeping its capacity.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }

// WriteU8 writes 1 byte.
func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteI8(v int8) {
	w.buf = append(w.buf, byte(v))
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

// WriteU16 writes 2 bytes little-endian.
func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteI16(v int16) {
	w.WriteU16(uint16(v))
}

// WriteU32 writes 4 bytes little-endian.
func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteI32(v int32) {
	w.WriteU32(uint32(v))
}

// WriteU64 writes 8 bytes little-endian.
func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteLen writes a sequence length prefix.
func (w *Writer) WriteLen(n int) {
	w.WriteU64(uint64(n))
}

// WriteTag writes an enum discriminant.
func (w *Writer) WriteTag(tag uint32) {
	w.WriteU32(tag)
}

// WriteRaw writes b as-is, without a length prefix (fixed-size arrays).
func (w *Writer) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}
