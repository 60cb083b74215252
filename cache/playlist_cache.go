package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SpotiFM/logger"

	"github.com/go-redis/redis/v8"
)

const playlistKeyPrefix = "playlist:"

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache miss")

// PlaylistCache 缓存 /playlist/{id} 的查找结果。client 为 nil 时所有操作直接穿透
type PlaylistCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPlaylistCache 创建播放列表缓存
func NewPlaylistCache(client *redis.Client, ttl time.Duration) *PlaylistCache {
	return &PlaylistCache{client: client, ttl: ttl}
}

// GetPlaylistKey 根据播放列表ID生成Redis键
func GetPlaylistKey(id string) string {
	return playlistKeyPrefix + id
}

// Enabled reports whether a redis client is configured.
func (c *PlaylistCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached body for id, or ErrMiss.
func (c *PlaylistCache) Get(ctx context.Context, id string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrMiss
	}
	data, err := c.client.Get(ctx, GetPlaylistKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to get cached playlist: %w", err)
	}
	return data, nil
}

// Set 写入缓存，body 与直接读取文件得到的字节一致
func (c *PlaylistCache) Set(ctx context.Context, id string, body []byte) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.client.Set(ctx, GetPlaylistKey(id), body, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache playlist: %w", err)
	}
	return nil
}

// Flush 删除所有播放列表缓存，playlists.json 变化时调用
func (c *PlaylistCache) Flush(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	var deleted int
	iter := c.client.Scan(ctx, 0, playlistKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan playlist keys: %w", err)
	}
	logger.Debug("playlist cache flushed", logger.Int("keys", deleted))
	return nil
}
