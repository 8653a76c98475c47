package arena

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slot struct {
	id   int
	next *slot
}

func TestArenaPushUntilFull(t *testing.T) {
	a := New[slot](3)
	var got []*slot
	for i := 0; i < 3; i++ {
		p := a.Push()
		require.NotNil(t, p)
		p.id = i + 1
		got = append(got, p)
	}
	assert.Nil(t, a.Push(), "push past capacity must fail")
	assert.Equal(t, 3, a.Len())

	for i, p := range got {
		at, ok := a.At(i)
		require.True(t, ok)
		assert.Same(t, p, at, "slot %d moved", i)
	}
}

func TestArenaResetKeepsStorage(t *testing.T) {
	a := New[slot](2)
	first := a.Push()
	first.id = 7
	a.Reset()
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 2, a.Cap())

	again := a.Push()
	assert.Same(t, first, again)
	assert.Equal(t, 7, again.id, "reset must not wipe contents")
}

func TestArenaAllIsRestartable(t *testing.T) {
	a := New[slot](4)
	for i := 0; i < 3; i++ {
		a.Push().id = i
	}
	collect := func() []int {
		var ids []int
		for s := range a.All() {
			ids = append(ids, s.id)
		}
		return ids
	}
	assert.Equal(t, []int{0, 1, 2}, collect())
	assert.Equal(t, []int{0, 1, 2}, collect())

	n := 0
	for range a.All() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestArenaReserveAndResize(t *testing.T) {
	a := New[slot](4)
	slots, ok := a.Reserve(3)
	require.True(t, ok)
	assert.Equal(t, 0, a.Len(), "reserve must not publish slots")
	slots[2].id = 9

	require.True(t, a.Resize(3))
	at, ok := a.At(2)
	require.True(t, ok)
	assert.Equal(t, 9, at.id)

	_, ok = a.Reserve(5)
	assert.False(t, ok)
	assert.False(t, a.Resize(5))

	tail, ok := a.ReserveFrom(3, 1)
	require.True(t, ok)
	tail[0].id = 4
	require.True(t, a.Resize(4))
	last, _ := a.At(3)
	assert.Equal(t, 4, last.id)
	_, ok = a.ReserveFrom(3, 2)
	assert.False(t, ok)
}

func TestArenaIndexOf(t *testing.T) {
	a := New[slot](3)
	a.Push()
	p := a.Push()
	i, ok := a.IndexOf(p)
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = a.IndexOf(&slot{})
	assert.False(t, ok)

	reserved, _ := a.Reserve(3)
	_, ok = a.IndexOf(reserved[2])
	assert.False(t, ok, "reserved but not live")
	i, ok = a.SlotIndex(reserved[2])
	require.True(t, ok)
	assert.Equal(t, 2, i)
	assert.True(t, a.Release(p))
	assert.False(t, a.Release(reserved[2]))
}

func TestArenaIndexOfFullPool(t *testing.T) {
	const n = 1 << 14
	a := New[slot](n)
	for a.Push() != nil {
	}
	for i, p := range slices.Collect(a.All()) {
		got, ok := a.IndexOf(p)
		require.True(t, ok)
		require.Equal(t, i, got)
	}
}

func TestHeapPool(t *testing.T) {
	p := NewHeapPool[slot](2)
	a := p.Alloc()
	b := p.Alloc()
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotSame(t, a, b)
	assert.Nil(t, p.Alloc(), "limit reached")

	assert.True(t, p.Release(a))
	assert.False(t, p.Release(a), "double release")
	assert.False(t, p.Owns(a))
	assert.True(t, p.Owns(b))

	ext := &slot{id: 3}
	p.Adopt(ext, nil)
	assert.True(t, p.Owns(ext))
	assert.Equal(t, 2, p.Len())

	p.Reset()
	assert.Equal(t, 0, p.Len())
}

func TestSlotProviders(t *testing.T) {
	providers := map[string]SlotProvider[slot]{
		"arena": New[slot](1),
		"heap":  NewHeapPool[slot](1),
	}
	for name, sp := range providers {
		t.Run(name, func(t *testing.T) {
			v := sp.Alloc()
			require.NotNil(t, v)
			assert.Nil(t, sp.Alloc())
			assert.Equal(t, 1, sp.Len())
			sp.Reset()
			assert.Equal(t, 0, sp.Len())
			assert.NotNil(t, sp.Alloc())
		})
	}
}

func TestTable(t *testing.T) {
	tb := TableOf(slot{id: 1}, slot{id: 2})
	p, ok := tb.At(1)
	require.True(t, ok)
	assert.Equal(t, 2, p.id)

	i, ok := tb.IndexOf(p)
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = tb.At(2)
	assert.False(t, ok)
	_, ok = tb.IndexOf(&slot{})
	assert.False(t, ok)

	var empty *Table[slot]
	assert.Equal(t, 0, empty.Len())
}
