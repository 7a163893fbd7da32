package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/cryptopulse/config"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "daily_trading_metrics")
	assert.ErrorIs(t, err, ErrMiss)

	in := []byte(`{"rows":1}`)
	require.NoError(t, m.Set(ctx, "daily_trading_metrics", in))
	in[0] = 'X'

	got, err := m.Get(ctx, "daily_trading_metrics")
	require.NoError(t, err)
	assert.Equal(t, `{"rows":1}`, string(got), "stored values are copies")
	require.NoError(t, m.Close())
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Set(ctx, "k", []byte("v"))
			_, _ = m.Get(ctx, "k")
		}()
	}
	wg.Wait()
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type payload struct {
		Name string `json:"name"`
		Rows int    `json:"rows"`
	}
	require.NoError(t, SetJSON(ctx, m, "p", payload{Name: "cleaned_trades", Rows: 3}))

	var out payload
	require.NoError(t, GetJSON(ctx, m, "p", &out))
	assert.Equal(t, payload{Name: "cleaned_trades", Rows: 3}, out)

	assert.ErrorIs(t, GetJSON(ctx, m, "missing", &out), ErrMiss)
}

func TestNew_Backends(t *testing.T) {
	s, err := New(context.Background(), config.Config{Cache: config.CacheConfig{Backend: "memory"}})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = New(context.Background(), config.Config{Cache: config.CacheConfig{Backend: "memcached"}})
	assert.Error(t, err)
}

func TestNewRedis_Unreachable(t *testing.T) {
	_, err := NewRedis(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
