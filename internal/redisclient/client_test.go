package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestNewClientPingFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewClient(addr, "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

func TestSlotRoundTrip(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	slot := client.Slot("marketflow_cart")

	_, ok, err := slot.Read(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, slot.Write(ctx, []byte(`[{"productId":1,"quantity":2}]`)))

	got, ok, err := slot.Read(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"productId":1,"quantity":2}]`, string(got))

	stored, err := mr.Get("marketflow_cart")
	require.NoError(t, err)
	assert.Equal(t, string(got), stored)
}

func TestSlotReadFailure(t *testing.T) {
	mr, client := setupTestRedis(t)
	slot := client.Slot("marketflow_cart")
	mr.Close()

	_, _, err := slot.Read(context.Background())
	assert.Error(t, err)
}

func TestIdempotencyKey(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	_, ok, err := client.GetIdempotencyKey(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.SetIdempotencyKey(ctx, "abc", 42, time.Minute))

	id, ok, err := client.GetIdempotencyKey(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	mr.FastForward(2 * time.Minute)
	_, ok, err = client.GetIdempotencyKey(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotencyKeyCorruptValue(t *testing.T) {
	mr, client := setupTestRedis(t)
	require.NoError(t, mr.Set("idempotency:bad", "not-a-number"))

	_, _, err := client.GetIdempotencyKey(context.Background(), "bad")
	assert.Error(t, err)
}

func TestLock(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	ok, err := client.AcquireLock(ctx, "checkout:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.AcquireLock(ctx, "checkout:abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.ReleaseLock(ctx, "checkout:abc"))

	ok, err = client.AcquireLock(ctx, "checkout:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
