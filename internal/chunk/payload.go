package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/l1jgo/entpool/internal/saveerr"
	"github.com/l1jgo/entpool/internal/wire"
)

// PayloadWriter compresses records one at a time and stops at the first
// record that takes the uncompressed total past the ceiling.
type PayloadWriter struct {
	spec  Spec
	buf   bytes.Buffer
	fw    *flate.Writer
	rec   *wire.Writer
	total uint64
	err   error
}

func NewPayloadWriter(spec Spec) *PayloadWriter {
	p := &PayloadWriter{spec: spec, rec: wire.NewWriter()}
	p.buf.Grow(0x10000)
	// Only fails for an invalid level.
	p.fw, _ = flate.NewWriter(&p.buf, flate.DefaultCompression)
	return p
}

// Total is the uncompressed byte count accepted so far.
func (p *PayloadWriter) Total() uint64 { return p.total }

func (p *PayloadWriter) WriteRecord(rec wire.Record) error {
	if p.err != nil {
		return p.err
	}
	p.rec.Reset()
	rec.Encode(p.rec)
	n := uint64(p.rec.Len())
	if n > uint64(p.spec.MaxSize) {
		p.err = &saveerr.SizeLimitError{Amount: p.total + n}
		return p.err
	}
	if _, err := p.fw.Write(p.rec.Bytes()); err != nil {
		p.err = fmt.Errorf("compress %s record: %w", p.spec.Name, err)
		return p.err
	}
	p.total += n
	if p.total > uint64(p.spec.MaxSize) {
		p.err = &saveerr.SizeLimitError{Amount: p.total}
		return p.err
	}
	return nil
}

// Finish flushes the compressor and returns the payload.
func (p *PayloadWriter) Finish() ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	if err := p.fw.Close(); err != nil {
		return nil, fmt.Errorf("finish %s payload: %w", p.spec.Name, err)
	}
	if uint64(p.buf.Len()) > uint64(p.spec.MaxSize) {
		return nil, &saveerr.SizeLimitError{Amount: uint64(p.buf.Len())}
	}
	return p.buf.Bytes(), nil
}

// PayloadReader inflates a payload incrementally; no record can make the
// decoded total exceed the ceiling.
type PayloadReader struct {
	spec Spec
	fr   io.ReadCloser
	rd   *wire.Reader
}

func NewPayloadReader(spec Spec, payload []byte) *PayloadReader {
	fr := flate.NewReader(bytes.NewReader(payload))
	return &PayloadReader{
		spec: spec,
		fr:   fr,
		rd:   wire.NewReader(fr, uint64(spec.MaxSize)),
	}
}

// Decoded is the uncompressed byte count consumed so far.
func (p *PayloadReader) Decoded() uint64 { return p.rd.Consumed() }

// Fits reports whether n records of at least size bytes each can still be
// decoded within the ceiling.
func (p *PayloadReader) Fits(n uint64, size int) bool {
	return n*uint64(size) <= p.rd.Remaining()
}

// ReadRecord runs decode over the stream and converts its failure into the
// load error taxonomy. what names the record for error context.
func (p *PayloadReader) ReadRecord(what string, decode func(r *wire.Reader)) error {
	decode(p.rd)
	if err := p.rd.Err(); err != nil {
		return p.classify(what, err)
	}
	if p.rd.Consumed() > uint64(p.spec.MaxSize) {
		return saveerr.ErrSizeLimit
	}
	return nil
}

func (p *PayloadReader) classify(what string, err error) error {
	var (
		corrupt  *saveerr.CorruptedError
		inflate  flate.CorruptInputError
		internal flate.InternalError
	)
	switch {
	case errors.Is(err, wire.ErrBudget):
		return fmt.Errorf("%s %s: %w", p.spec.Name, what, saveerr.ErrSizeLimit)
	case errors.As(err, &corrupt):
		return err
	case errors.Is(err, io.ErrUnexpectedEOF):
		return saveerr.Corrupted("%s payload truncated in %s", p.spec.Name, what)
	case errors.As(err, &inflate), errors.As(err, &internal):
		return saveerr.Corrupted("%s payload does not inflate: %v", p.spec.Name, err)
	default:
		return saveerr.Corrupted("%s %s: %v", p.spec.Name, what, err)
	}
}

func (p *PayloadReader) Close() error { return p.fr.Close() }
