package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PostKeyPrefix     = "post:%d"
	TrendingKeyPrefix = "hashtags:trending:%d"
	TrendingLimitMax  = 50
)

const (
	PostTTL     = 30 * time.Minute
	TrendingTTL = 2 * time.Minute
)

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func TrendingKey(limit int) string {
	return fmt.Sprintf(TrendingKeyPrefix, limit)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

// InvalidateTrending drops every cached trending page. Pages are keyed by limit,
// which is clamped to TrendingLimitMax.
func InvalidateTrending(ctx context.Context) {
	if client == nil {
		return
	}
	keys := make([]string, 0, TrendingLimitMax)
	for limit := 1; limit <= TrendingLimitMax; limit++ {
		keys = append(keys, TrendingKey(limit))
	}
	client.Del(ctx, keys...)
}
