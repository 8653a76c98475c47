package directory

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/entpool/internal/saveerr"
)

type node struct{ v int }

func nodes(n int) []*node {
	out := make([]*node, n)
	for i := range out {
		out[i] = &node{v: i}
	}
	return out
}

func TestSaveIDsAreDense(t *testing.T) {
	ns := nodes(5)
	d, err := NewSave("node", slices.Values(ns))
	require.NoError(t, err)
	assert.Equal(t, 5, d.Len())

	seen := map[uint32]bool{}
	for i, n := range ns {
		id, err := d.ID(n)
		require.NoError(t, err)
		assert.Equal(t, uint32(i+1), id)
		seen[id] = true
	}
	assert.Len(t, seen, 5)

	id, err := d.ID(nil)
	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestSaveRejectsUnknownPointer(t *testing.T) {
	d, err := NewSave("node", slices.Values(nodes(2)))
	require.NoError(t, err)
	_, err = d.ID(&node{})
	var ptrErr *saveerr.InvalidPointerError
	require.True(t, errors.As(err, &ptrErr))
	assert.Equal(t, "node", ptrErr.Kind)

	var none *Save[node]
	_, err = none.ID(&node{})
	assert.Error(t, err)
}

func TestSaveRejectsDuplicate(t *testing.T) {
	ns := nodes(2)
	_, err := NewSave("node", slices.Values([]*node{ns[0], ns[1], ns[0]}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listed twice")
}

func TestLoadResolves(t *testing.T) {
	ns := nodes(4)
	d := NewLoad("node", ns)
	for i, n := range ns {
		p, err := d.Pointer(uint32(i + 1))
		require.NoError(t, err)
		assert.Same(t, n, p)
	}
	p, err := d.Pointer(0)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestLoadRejectsOutOfRange(t *testing.T) {
	d := NewLoad("sprite", nodes(4))
	_, err := d.Pointer(5)
	var corrupt *saveerr.CorruptedError
	require.True(t, errors.As(err, &corrupt))
	assert.Contains(t, err.Error(), "0x5")

	_, err = d.Pointer(^uint32(0))
	assert.Error(t, err)
}

func TestSaveLoadAgree(t *testing.T) {
	ns := nodes(6)
	save, err := NewSave("node", slices.Values(ns))
	require.NoError(t, err)
	load := NewLoad("node", ns)
	for _, n := range ns {
		id, err := save.ID(n)
		require.NoError(t, err)
		back, err := load.Pointer(id)
		require.NoError(t, err)
		assert.Same(t, n, back)
	}
}
