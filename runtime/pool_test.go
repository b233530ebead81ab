package runtime

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(context.Background(), "test", 2)
	var active, maxActive atomic.Int32

	for i := 0; i < 8; i++ {
		err := pool.Submit(func(ctx context.Context) error {
			n := active.Add(1)
			for {
				cur := maxActive.Load()
				if n <= cur || maxActive.CompareAndSwap(cur, n) {
					break
				}
			}
			active.Add(-1)
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, pool.Wait())
	assert.LessOrEqual(t, int(maxActive.Load()), 2)
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry()
	p := NewPool(context.Background(), "tx", 1)
	reg.Register(p)

	got, ok := reg.Get("tx")
	assert.True(t, ok)
	assert.Equal(t, p, got)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}
