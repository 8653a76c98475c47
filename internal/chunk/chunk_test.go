package chunk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/entpool/internal/saveerr"
	"github.com/l1jgo/entpool/internal/wire"
)

type u32Record uint32

func (r u32Record) Encode(w *wire.Writer) { w.WriteU32(uint32(r)) }

func payloadOf(t *testing.T, spec Spec, vals ...uint32) []byte {
	t.Helper()
	pw := NewPayloadWriter(spec)
	for _, v := range vals {
		require.NoError(t, pw.WriteRecord(u32Record(v)))
	}
	data, err := pw.Finish()
	require.NoError(t, err)
	return data
}

func TestChunkRoundTrip(t *testing.T) {
	payload := payloadOf(t, Bullets, 1, 2, 3)
	var buf bytes.Buffer
	require.NoError(t, WriteChunk(&buf, Bullets, payload))

	raw := buf.Bytes()
	assert.Equal(t, uint16(0xffed), binary.LittleEndian.Uint16(raw[0:]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(raw[2:]))
	assert.Equal(t, uint32(len(payload)), binary.LittleEndian.Uint32(raw[6:]))

	got, err := ReadChunk(bytes.NewReader(raw), Bullets)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	pr := NewPayloadReader(Bullets, got)
	defer pr.Close()
	var vals []uint32
	for i := 0; i < 3; i++ {
		require.NoError(t, pr.ReadRecord("value", func(r *wire.Reader) {
			vals = append(vals, r.ReadU32())
		}))
	}
	assert.Equal(t, []uint32{1, 2, 3}, vals)
	assert.Equal(t, uint64(12), pr.Decoded())
}

func header(magic uint16, version, size uint32) []byte {
	b := Header{Magic: magic, Version: version, Length: size}.bytes()
	return b[:]
}

func TestReadChunkWrongMagic(t *testing.T) {
	_, err := ReadChunk(bytes.NewReader(header(0x0000, 1, 0)), Sprites)
	var magic *saveerr.WrongMagicError
	require.True(t, errors.As(err, &magic))
	assert.Equal(t, uint16(0), magic.Magic)
	assert.EqualError(t, err, "incorrect magic: 0x0")
}

func TestReadChunkWrongVersion(t *testing.T) {
	_, err := ReadChunk(bytes.NewReader(header(Units.Magic, 2, 0)), Units)
	var version *saveerr.VersionError
	require.True(t, errors.As(err, &version))
	assert.Equal(t, uint32(2), version.Version)
}

// failingAfter errors on any read past the first n bytes.
type failingAfter struct {
	data []byte
	n    int
	read int
}

func (f *failingAfter) Read(p []byte) (int, error) {
	if f.read >= f.n {
		return 0, errors.New("payload must not be read")
	}
	k := copy(p, f.data[f.read:f.n])
	f.read += k
	return k, nil
}

func TestReadChunkOversizeRejectedBeforePayload(t *testing.T) {
	spec := Bullets
	data := header(spec.Magic, spec.Version, spec.MaxSize+1)
	r := &failingAfter{data: data, n: len(data)}
	_, err := ReadChunk(r, spec)
	var corrupt *saveerr.CorruptedError
	require.True(t, errors.As(err, &corrupt), "got %v", err)
	assert.Equal(t, HeaderSize, r.read)
}

func TestReadChunkHostIO(t *testing.T) {
	_, err := ReadChunk(bytes.NewReader([]byte{0xed}), Bullets)
	assert.ErrorIs(t, err, saveerr.ErrHostIO)

	data := append(header(Bullets.Magic, 0, 8), 1, 2)
	_, err = ReadChunk(bytes.NewReader(data), Bullets)
	assert.ErrorIs(t, err, saveerr.ErrHostIO)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteChunkHostIO(t *testing.T) {
	err := WriteChunk(brokenWriter{}, Sprites, []byte{1})
	assert.ErrorIs(t, err, saveerr.ErrHostIO)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestPayloadWriterReportsExactTotal(t *testing.T) {
	spec := Bullets.WithLimit(10)
	pw := NewPayloadWriter(spec)
	require.NoError(t, pw.WriteRecord(u32Record(1)))
	require.NoError(t, pw.WriteRecord(u32Record(2)))
	err := pw.WriteRecord(u32Record(3))

	var limit *saveerr.SizeLimitError
	require.True(t, errors.As(err, &limit))
	assert.Equal(t, uint64(12), limit.Amount)
	assert.ErrorIs(t, err, saveerr.ErrSizeLimit)

	_, err = pw.Finish()
	assert.Error(t, err, "a failed payload never finishes")
}

func TestPayloadReaderCeiling(t *testing.T) {
	payload := payloadOf(t, Bullets, 1, 2, 3)
	pr := NewPayloadReader(Bullets.WithLimit(8), payload)
	for i := 0; i < 2; i++ {
		require.NoError(t, pr.ReadRecord("value", func(r *wire.Reader) { r.ReadU32() }))
	}
	err := pr.ReadRecord("value", func(r *wire.Reader) { r.ReadU32() })
	assert.ErrorIs(t, err, saveerr.ErrSizeLimit)
}

func TestPayloadReaderGarbage(t *testing.T) {
	pr := NewPayloadReader(Bullets, []byte{0xff, 0xff, 0xff, 0xff})
	err := pr.ReadRecord("globals", func(r *wire.Reader) { r.ReadU64() })
	var corrupt *saveerr.CorruptedError
	assert.True(t, errors.As(err, &corrupt), "got %v", err)
}

func TestPayloadReaderTruncated(t *testing.T) {
	payload := payloadOf(t, Bullets, 1)
	pr := NewPayloadReader(Bullets, payload)
	err := pr.ReadRecord("value", func(r *wire.Reader) { r.ReadU64() })
	var corrupt *saveerr.CorruptedError
	require.True(t, errors.As(err, &corrupt), "got %v", err)
	assert.Contains(t, err.Error(), "truncated")
}

func TestReadHeader(t *testing.T) {
	h, err := ReadHeader(bytes.NewReader(header(0xffee, 1, 42)))
	require.NoError(t, err)
	assert.Equal(t, Header{Magic: 0xffee, Version: 1, Length: 42}, h)
	assert.Equal(t, "sprites", Known()[h.Magic].Name)
}

func TestSplit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChunk(&buf, Sprites, payloadOf(t, Sprites, 7)))
	require.NoError(t, WriteChunk(&buf, Bullets, payloadOf(t, Bullets, 1, 2)))
	file := bytes.Clone(buf.Bytes())

	raws, err := Split(&buf)
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, "sprites", raws[0].Kind())
	assert.Equal(t, "bullets", raws[1].Kind())
	assert.Equal(t, file, append(raws[0].Bytes(), raws[1].Bytes()...))

	t.Run("empty", func(t *testing.T) {
		raws, err := Split(bytes.NewReader(nil))
		require.NoError(t, err)
		assert.Empty(t, raws)
	})
	t.Run("partial header", func(t *testing.T) {
		_, err := Split(bytes.NewReader(file[:len(raws[0].Bytes())+4]))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
	t.Run("oversize", func(t *testing.T) {
		_, err := Split(bytes.NewReader(header(0x1234, 0, 0x2000000)))
		var corrupt *saveerr.CorruptedError
		assert.True(t, errors.As(err, &corrupt), "got %v", err)
	})
}
