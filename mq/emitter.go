// Package mq carries hive change events over Redis pub/sub so every API
// instance can push them to its websocket subscribers.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"unihive/models"
	"unihive/rdx"
)

const HiveChannel = "hive-events"

// Publish sends evt to the hive channel.
func Publish(ctx context.Context, client *redis.Client, evt models.HiveEvent) error {
	if client == nil {
		return errors.New("redis client not initialised")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal hive event: %w", err)
	}
	if err := client.Publish(ctx, HiveChannel, data).Err(); err != nil {
		return fmt.Errorf("publish hive event: %w", err)
	}
	return nil
}

// Emit publishes on the shared connection and only logs failures; handlers
// run it in a goroutine after the write has succeeded.
func Emit(ctx context.Context, evt models.HiveEvent) {
	if err := Publish(ctx, rdx.Conn, evt); err != nil {
		log.Printf("[Emit] %s %s/%s: %v", evt.Method, evt.Hive, evt.ListingID, err)
		return
	}
	log.Debug().Str("hive", string(evt.Hive)).Str("method", evt.Method).Str("listing", evt.ListingID).Msg("hive event published")
}

// Listen delivers hive events to handle until ctx is cancelled.
func Listen(ctx context.Context, client *redis.Client, handle func(models.HiveEvent)) error {
	sub := client.Subscribe(ctx, HiveChannel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before reading messages.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", HiveChannel, err)
	}
	log.Printf("[HiveListener] listening on %s", HiveChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt models.HiveEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				log.Printf("[HiveListener] bad payload: %v", err)
				continue
			}
			handle(evt)
		}
	}
}
