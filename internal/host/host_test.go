package host

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct{ msgs [][]byte }

func (c *captured) PrintText(msg []byte) { c.msgs = append(c.msgs, msg) }

func TestSaveFailedIsTerminated(t *testing.T) {
	var out captured
	m, err := NewMessenger(&out, "cp1252")
	require.NoError(t, err)
	m.SaveFailed(errors.New("too large chunk: 9"))

	require.Len(t, out.msgs, 1)
	assert.Equal(t, append([]byte("Unable to save the game: too large chunk: 9"), 0), out.msgs[0])
}

func TestMessengerEncodesCodePage(t *testing.T) {
	var out captured
	m, err := NewMessenger(&out, "big5")
	require.NoError(t, err)
	m.Print("存檔")
	require.Len(t, out.msgs, 1)
	assert.Equal(t, []byte{0xa6, 0x73, 0xc0, 0xc9, 0}, out.msgs[0])
}

func TestUnknownCodePage(t *testing.T) {
	_, err := NewMessenger(&captured{}, "ebcdic")
	assert.Error(t, err)
}

func TestNilMessenger(t *testing.T) {
	var m *Messenger
	assert.NotPanics(t, func() { m.SaveFailed(errors.New("x")) })
}
