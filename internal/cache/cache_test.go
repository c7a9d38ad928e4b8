package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clanView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestAside_LoadsOnceThenServesFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	ctx := context.Background()

	loads := 0
	load := func(dest *clanView) func() error {
		return func() error {
			loads++
			*dest = clanView{ID: 3, Name: "wolves"}
			return nil
		}
	}

	var first clanView
	require.NoError(t, Aside(ctx, ClanKey(3), &first, ClanTTL, load(&first)))
	var second clanView
	require.NoError(t, Aside(ctx, ClanKey(3), &second, ClanTTL, load(&second)))

	assert.Equal(t, 1, loads)
	assert.Equal(t, "wolves", second.Name)
	assert.True(t, mr.Exists("clan:3"))

	InvalidateClan(ctx, 3)
	assert.False(t, mr.Exists("clan:3"))
}

func TestAside_WithoutClient(t *testing.T) {
	SetClient(nil)
	var v clanView
	calls := 0
	require.NoError(t, Aside(context.Background(), ClanKey(1), &v, ClanTTL, func() error {
		calls++
		v.Name = "direct"
		return nil
	}))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "direct", v.Name)
}

func TestInitRedis_Unreachable(t *testing.T) {
	InitRedis("redis://%zz")
	assert.Nil(t, GetClient())
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	for _, addr := range []string{mr.Addr(), "redis://" + mr.Addr() + "/0"} {
		c, err := Connect(context.Background(), addr)
		require.NoError(t, err, addr)
		assert.Equal(t, mr.Addr(), c.Options().Addr)
		require.NoError(t, c.Close())
	}

	dead, err := miniredis.Run()
	require.NoError(t, err)
	addr := dead.Addr()
	dead.Close()
	_, err = Connect(context.Background(), addr)
	assert.ErrorContains(t, err, "redis ping")
}
