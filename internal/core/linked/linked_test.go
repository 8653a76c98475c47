package linked

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/entpool/internal/core/directory"
)

type item struct {
	id         int
	prev, next *item
}

var itemLinks = Links[item]{
	Prev:    func(i *item) *item { return i.prev },
	Next:    func(i *item) *item { return i.next },
	SetPrev: func(i, p *item) { i.prev = p },
	SetNext: func(i, n *item) { i.next = n },
}

func makeItems(n int) []*item {
	out := make([]*item, n)
	for i := range out {
		out[i] = &item{id: i + 1}
	}
	return out
}

func ids(seq []*item) []int {
	var out []int
	for _, i := range seq {
		out = append(out, i.id)
	}
	return out
}

func TestRelinkSplitsRanges(t *testing.T) {
	items := makeItems(5)
	heads, err := itemLinks.Relink(items, 3, 2)
	require.NoError(t, err)
	require.Len(t, heads, 2)

	lone, fow := heads[0], heads[1]
	assert.Equal(t, []int{1, 2, 3}, ids(Collect(itemLinks.Forward(lone.First))))
	assert.Equal(t, []int{4, 5}, ids(Collect(itemLinks.Forward(fow.First))))
	assert.Equal(t, []int{3, 2, 1}, ids(Collect(itemLinks.Backward(lone.Last))))
	assert.Equal(t, []int{5, 4}, ids(Collect(itemLinks.Backward(fow.Last))))

	assert.Nil(t, items[2].next, "no edge across the range boundary")
	assert.Nil(t, items[3].prev, "no edge across the range boundary")

	require.NoError(t, itemLinks.Verify(lone.First, lone.Last, 10))
	require.NoError(t, itemLinks.Verify(fow.First, fow.Last, 10))
}

func TestRelinkEmptyRanges(t *testing.T) {
	items := makeItems(2)
	heads, err := itemLinks.Relink(items, 0, 2, 0)
	require.NoError(t, err)
	assert.Nil(t, heads[0].First)
	assert.Nil(t, heads[2].Last)
	assert.Same(t, items[0], heads[1].First)
	assert.Same(t, items[1], heads[1].Last)

	_, err = itemLinks.Relink(items, 3)
	assert.Error(t, err)
}

func TestVerifyDetectsBrokenLists(t *testing.T) {
	items := makeItems(3)
	heads, err := itemLinks.Relink(items, 3)
	require.NoError(t, err)
	h := heads[0]

	items[1].prev = nil
	assert.Error(t, itemLinks.Verify(h.First, h.Last, 10))
	items[1].prev = items[0]

	items[2].next = items[0]
	assert.Error(t, itemLinks.Verify(h.First, h.Last, 10), "cycle")
	items[2].next = nil

	assert.Error(t, itemLinks.Verify(h.First, items[1], 10), "wrong last")
	assert.Error(t, itemLinks.Verify(h.First, nil, 10))
	assert.NoError(t, itemLinks.Verify(nil, nil, 10))
}

func TestCountStopsAtLimit(t *testing.T) {
	items := makeItems(2)
	items[0].next = items[1]
	items[1].next = items[0]
	assert.Equal(t, 5, Count(itemLinks.Forward(items[0]), 5))
}

func TestPushUnlink(t *testing.T) {
	nodes := makeItems(4)
	var h Heads[item]
	itemLinks.PushBack(&h, nodes[1])
	itemLinks.PushBack(&h, nodes[2])
	itemLinks.PushFront(&h, nodes[0])
	itemLinks.PushBack(&h, nodes[3])
	assert.Equal(t, []int{1, 2, 3, 4}, ids(Collect(itemLinks.Forward(h.First))))
	require.NoError(t, itemLinks.Verify(h.First, h.Last, 10))

	itemLinks.Unlink(&h, nodes[2])
	assert.Equal(t, []int{1, 2, 4}, ids(Collect(itemLinks.Forward(h.First))))
	assert.Nil(t, nodes[2].prev)
	assert.Nil(t, nodes[2].next)

	assert.Same(t, nodes[0], itemLinks.PopFront(&h))
	itemLinks.Unlink(&h, nodes[3])
	assert.Same(t, nodes[1], h.First)
	assert.Same(t, nodes[1], h.Last)
	require.NoError(t, itemLinks.Verify(h.First, h.Last, 10))

	assert.Same(t, nodes[1], itemLinks.PopFront(&h))
	assert.Nil(t, itemLinks.PopFront(&h))
	assert.Nil(t, h.Last)
}

func TestConcat(t *testing.T) {
	nodes := makeItems(5)
	heads, err := itemLinks.Relink(nodes, 3, 2)
	require.NoError(t, err)

	all := Collect(Concat(itemLinks.Forward(heads[0].First), itemLinks.Forward(heads[1].First)))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(all))
	assert.Equal(t, 2, Count(Concat(itemLinks.Forward(heads[0].First)), 2))
	assert.Empty(t, Collect(Concat[item]()))
}

func TestBucketsRoundTrip(t *testing.T) {
	items := makeItems(4)
	rows := []Bucket[item]{
		{Begin: items[0], End: items[1]},
		{},
		{Begin: items[2], End: items[3]},
	}
	save, err := directory.NewSave("item", slices.Values(items))
	require.NoError(t, err)
	pairs, err := SaveBuckets(rows, save)
	require.NoError(t, err)
	assert.Equal(t, []IDPair{{1, 2}, {0, 0}, {3, 4}}, pairs)

	load := directory.NewLoad("item", items)
	back, err := LoadBuckets(pairs, load, 4)
	require.NoError(t, err)
	require.Len(t, back, 4)
	assert.Equal(t, rows, back[:3])
	assert.Equal(t, Bucket[item]{}, back[3])

	_, err = LoadBuckets(pairs, load, 2)
	assert.Error(t, err)
	_, err = LoadBuckets([]IDPair{{5, 0}}, load, 4)
	assert.Error(t, err)
}
