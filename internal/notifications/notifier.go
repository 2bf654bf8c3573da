// Package notifications persists in-app notices, relays them to open sockets and
// dispatches push notifications.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"

	"medfeed/internal/observability"

	"github.com/redis/go-redis/v9"
)

const userChannelPrefix = "notifications:user:"

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a notification payload to a doctor's channel.
func (n *Notifier) PublishUser(ctx context.Context, doctorID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if err := n.rdb.Publish(ctx, UserChannel(doctorID), payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", UserChannel(doctorID), err)
	}
	return nil
}

// StartPatternSubscriber subscribes to `notifications:user:*` and calls onMessage
// for each incoming message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	// Wait for the subscription to be confirmed so callers can publish right away.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a doctor.
func UserChannel(doctorID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(doctorID), 10)
}

// parseUserChannel is the inverse of UserChannel.
func parseUserChannel(channel string) (uint, bool) {
	if len(channel) <= len(userChannelPrefix) || channel[:len(userChannelPrefix)] != userChannelPrefix {
		return 0, false
	}
	id, err := strconv.ParseUint(channel[len(userChannelPrefix):], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
