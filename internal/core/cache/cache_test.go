package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"name"`
}

func TestNilCacheLoadsThrough(t *testing.T) {
	var c *Cache
	calls := 0
	load := func(context.Context) (*[]item, error) {
		calls++
		return &[]item{{Name: "jute"}}, nil
	}
	for i := 0; i < 2; i++ {
		v, err := GetOrLoadJSON(c, context.Background(), "k", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, "jute", (*v)[0].Name)
	}
	assert.Equal(t, 2, calls)
	assert.NoError(t, c.Del(context.Background(), "k"))
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}

func TestLoadErrorPropagates(t *testing.T) {
	c := &Cache{}
	boom := errors.New("boom")
	_, err := GetOrLoadJSON(c, context.Background(), "k", time.Minute, func(context.Context) (*item, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

// Redis 不可达时按未命中处理，仍返回回源结果
func TestUnreachableRedisFallsBack(t *testing.T) {
	c := &Cache{
		RDB: redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 50 * time.Millisecond,
			MaxRetries:  -1,
		}),
		Prefix: "test:",
	}
	defer c.Close()

	v, err := GetOrLoadJSON(c, context.Background(), "k", time.Minute, func(context.Context) (*item, error) {
		return &item{Name: "clay"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "clay", v.Name)
	assert.Error(t, c.Ping(context.Background()))
	assert.Equal(t, "test:k", c.key("k"))
}
