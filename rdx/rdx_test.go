package rdx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	Conn = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { Conn.Close() })
	return mr
}

func TestGetSetDel(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	_, err := RdxGet(ctx, "missing")
	assert.ErrorIs(t, err, ErrMissing)

	require.NoError(t, RdxSet(ctx, "k", "v"))
	v, err := RdxGet(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	n, err := RdxDel(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSetWithExpiry(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetWithExpiry(ctx, "otp:a@b.c", "123456", time.Minute))
	mr.FastForward(2 * time.Minute)
	_, err := RdxGet(ctx, "otp:a@b.c")
	assert.ErrorIs(t, err, ErrMissing)
}

func TestIncrWithExpiry(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := RdxIncrWithExpiry(ctx, "attempts", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}
	assert.Equal(t, time.Minute, mr.TTL("attempts"))
}
