// Package redis caches the most recent feed posts in Redis so the
// first feed page can skip the database.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/globridge/social-engine/api"
	"github.com/redis/go-redis/v9"
)

// Redis provides caching in Redis.
type Redis struct {
	cli *redis.Client
}

// Connect connects to the Redis server and pings the server to ensure the
// connection is working.
func Connect(ctx context.Context, addr string) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		cli: cli,
	}, nil
}

const (
	postPrefix = "posts"
	maxSize    = 20
)

// ListPosts returns the cached posts sorted by creation time in
// descending order.
func (r *Redis) ListPosts(ctx context.Context) ([]api.Post, error) {
	vals, err := r.cli.ZRevRangeByScore(ctx, postPrefix, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", time.Now().UnixNano()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange: %w", err)
	}

	out := make([]api.Post, len(vals))
	for i, key := range vals {
		var p post
		err = r.cli.HGetAll(ctx, key).Scan(&p)
		if err != nil {
			return nil, fmt.Errorf("hgetall: %w", err)
		}
		out[i] = p.APIPost()
	}

	return out, nil
}

// InsertPost adds the post to Redis with posts:POST_ID as the key and adds
// the key to a sorted set scored by creation time.
func (r *Redis) InsertPost(ctx context.Context, ap api.Post) error {
	p := &post{
		ID:             ap.ID,
		UserID:         ap.UserID,
		Content:        ap.Content,
		PostType:       string(ap.Type),
		MediaURL:       ap.MediaURL,
		MediaThumbnail: ap.MediaThumbnail,
		ArticleTitle:   ap.ArticleTitle,
		ArticleSummary: ap.ArticleSummary,
		CreatedAt:      ap.CreatedAt,
	}

	key := fmt.Sprintf("%s:%d", postPrefix, p.ID)
	err := r.cli.Watch(ctx, func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, p)
			pipe.ZAdd(ctx, postPrefix, redis.Z{
				Score:  float64(ap.CreatedAt.UnixNano()),
				Member: key,
			})
			return nil
		})
		return err
	}, key)

	if err != nil {
		return fmt.Errorf("redis insert post: %w", err)
	}

	// Simulate an eviction strategy by removing the oldest key in case the max cache size is exceeded.
	if err := r.evictOldest(ctx); err != nil {
		return fmt.Errorf("evict oldest: %w", err)
	}
	return nil
}

func (r *Redis) evictOldest(ctx context.Context) error {
	vals, err := r.cli.ZRange(ctx, postPrefix, 0, int64(-maxSize-1)).Result()
	if err != nil {
		return fmt.Errorf("zrange: %w", err)
	}

	for _, key := range vals {
		_ = r.cli.ZRem(ctx, postPrefix, key).Err()
		_ = r.cli.Del(ctx, key).Err()
	}

	return nil
}
