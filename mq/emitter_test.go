package mq

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unihive/models"
)

func TestPublishListen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan models.HiveEvent, 1)
	done := make(chan error, 1)
	go func() {
		done <- Listen(ctx, client, func(evt models.HiveEvent) {
			select {
			case got <- evt:
			default:
			}
		})
	}()

	want := models.HiveEvent{Hive: models.HiveBuzz, Method: "POST", ListingID: "l1", UserID: "u1"}
	// Publish until the subscriber is attached; miniredis drops messages with no subscribers.
	require.Eventually(t, func() bool {
		require.NoError(t, Publish(ctx, client, want))
		select {
		case evt := <-got:
			assert.Equal(t, want, evt)
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestPublish_NilClient(t *testing.T) {
	assert.Error(t, Publish(context.Background(), nil, models.HiveEvent{}))
}
