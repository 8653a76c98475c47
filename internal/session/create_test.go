package session_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/entpool/internal/entity"
	"github.com/l1jgo/entpool/internal/metrics"
	"github.com/l1jgo/entpool/internal/session"
)

func countSprites(sp *entity.Sprite) int {
	n := 0
	for ; sp != nil; sp = sp.Next {
		n++
	}
	return n
}

func TestCreateSpriteRefillsFreeLists(t *testing.T) {
	h := newHost(t, testOptions(t))
	a := h.Sprite(0x10, 0, 0, 0, 0x100)
	b := h.Sprite(0x11, 0, 0, 0, 0x100)
	require.NotNil(t, a)
	require.NotNil(t, b)

	assert.Equal(t, uint64(0), a.SpawnOrder)
	assert.Equal(t, uint64(1), b.SpawnOrder)
	st := h.S.Stats()
	assert.Equal(t, 501, st.Sprites)
	assert.Equal(t, 1501, st.Images)
	assert.Equal(t, 499, countSprites(h.S.G.FreeSprites.First))
}

func TestCreateSpriteInLobbyIsUntouched(t *testing.T) {
	h := newHost(t, testOptions(t))
	h.S.G.Lobby = true
	called := false
	sp := h.S.CreateSprite(func() *entity.Sprite {
		called = true
		return nil
	})
	assert.True(t, called)
	assert.Nil(t, sp)
	assert.Zero(t, h.S.Stats().Sprites)
}

func TestCreateSpriteStopsAtArenaCapacity(t *testing.T) {
	opts := testOptions(t)
	opts.Pools.Sprites = 3
	opts.Metrics = metrics.New(prometheus.NewRegistry())
	h := newHost(t, opts)
	for range 3 {
		require.NotNil(t, h.Sprite(0x10, 0, 0, 0))
	}
	assert.Nil(t, h.Sprite(0x10, 0, 0, 0), "a full arena yields nil, never a panic")
	assert.Equal(t, 3, h.S.Stats().Sprites)
}

func TestCreateBullet(t *testing.T) {
	h := newHost(t, testOptions(t))
	h.S.G.BulletCount = 1400

	b := h.Bullet(3, nil, nil)
	require.NotNil(t, b)
	assert.Zero(t, h.S.G.BulletCount)
	assert.Nil(t, h.S.G.FreeBullets.First, "free list is cleared after the call")
	assert.Same(t, b, h.S.G.ActiveBullets.First)
	assert.Equal(t, 1, h.S.Stats().Bullets)

	t.Run("host refuses", func(t *testing.T) {
		got := h.S.CreateBullet(func() *entity.Bullet { return nil })
		assert.Nil(t, got)
		assert.Equal(t, 1, h.S.Stats().Bullets)
	})
	t.Run("host returns another object", func(t *testing.T) {
		other := &entity.Bullet{}
		got := h.S.CreateBullet(func() *entity.Bullet { return other })
		assert.Same(t, other, got)
		assert.Equal(t, 1, h.S.Stats().Bullets)
	})
}

func TestCreateBulletPoolLimit(t *testing.T) {
	opts := testOptions(t)
	opts.Pools.Bullets = 1
	h := newHost(t, opts)
	require.NotNil(t, h.Bullet(1, nil, nil))
	called := false
	got := h.S.CreateBullet(func() *entity.Bullet {
		called = true
		return nil
	})
	assert.Nil(t, got)
	assert.False(t, called, "host is not called without a slot")
}

func TestDeleteBullet(t *testing.T) {
	h := newHost(t, testOptions(t))
	sp := h.Sprite(0x10, 0, 0, 0)
	b := h.Bullet(1, nil, sp)
	require.NotNil(t, b)

	// Still owns a sprite: the host deletes it again later.
	h.RemoveBullet(b)
	assert.Equal(t, 1, h.S.Stats().Bullets)
	assert.Same(t, b, h.S.G.ActiveBullets.First)

	b.Sprite = nil
	h.RemoveBullet(b)
	assert.Zero(t, h.S.Stats().Bullets)
	assert.Nil(t, h.S.G.ActiveBullets.First)
}

func TestLoneSpriteLifecycle(t *testing.T) {
	h := newHost(t, testOptions(t))
	sp := h.Sprite(0x10, 0, 0, 0)
	a := h.LoneSprite(sp, 1)
	b := h.LoneSprite(sp, 2)
	f := h.FowSprite(sp, 3)
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, f)
	assert.Nil(t, h.S.G.FreeLone.First)
	st := h.S.Stats()
	assert.Equal(t, 2, st.Lone)
	assert.Equal(t, 1, st.Fow)

	h.ExpireLone(a)
	h.ExpireFow(f)
	st = h.S.Stats()
	assert.Equal(t, 1, st.Lone)
	assert.Zero(t, st.Fow)
	assert.Nil(t, h.S.G.FreeLone.First)
	assert.Nil(t, h.S.G.FreeFow.First)
	require.NoError(t, h.S.CheckLists())

	// A step that keeps the sprite alive releases nothing.
	h.S.StepLoneSprite(b, func(*entity.LoneSprite) {})
	assert.Equal(t, 1, h.S.Stats().Lone)
}

func TestAllocUnitUntilFull(t *testing.T) {
	opts := testOptions(t)
	opts.Pools.Units = 2
	h := newHost(t, opts)
	a := h.S.AllocUnit()
	b := h.S.AllocUnit()
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Nil(t, h.S.AllocUnit())
	assert.Equal(t, 2, h.S.Stats().ActiveUnits)

	h.S.FreeUnit(a)
	assert.Equal(t, 1, h.S.Stats().ActiveUnits)
	assert.Same(t, a, h.S.AllocUnit())
	require.NoError(t, h.S.CheckLists())
}

func TestPlayerUnitList(t *testing.T) {
	h := newHost(t, testOptions(t))
	a, err := h.Unit(unitSCV, 3, 0, 0, nil)
	require.NoError(t, err)
	b, err := h.Unit(unitSCV, 3, 0, 0, nil)
	require.NoError(t, err)
	assert.Same(t, b, h.S.G.PlayerUnits[3])
	assert.Same(t, a, b.NextPlayerUnit)

	h.S.FreeUnit(b)
	assert.Same(t, a, h.S.G.PlayerUnits[3])
	assert.Nil(t, a.PrevPlayerUnit)

	_, err = h.Unit(unitSCV, entity.Players, 0, 0, nil)
	assert.Error(t, err)
}

func TestEndReleasesEverything(t *testing.T) {
	h := newHost(t, testOptions(t))
	populate(t, h)
	h.S.End()
	st := h.S.Stats()
	assert.Zero(t, st.Sprites)
	assert.Zero(t, st.Images)
	assert.Zero(t, st.Bullets)
	assert.Zero(t, st.Lone)
	assert.Zero(t, st.ActiveUnits)
	assert.Nil(t, h.S.G.CursorMarker)
	assert.Nil(t, h.S.G.ActiveBullets.First)
	assert.Len(t, h.S.G.SpriteLines, testOptions(t).Pools.MapHeight)
	require.NoError(t, h.S.CheckLists())
}

func TestNewRejectsBadPools(t *testing.T) {
	opts := testOptions(t)
	opts.Pools.Units = 0x10000
	_, err := session.New(opts)
	assert.ErrorContains(t, err, "pools.units")
}
