package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"LetHimCook-App/internal/config"
)

// RedisClient ジオコーディングキャッシュ用のRedisクライアント
type RedisClient struct {
	Client *redis.Client
}

// NewRedisClient 新しいRedisクライアントを作成
func NewRedisClient(cfg config.RedisConfig) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &RedisClient{Client: rdb}
}

// HealthCheck Redis接続のヘルスチェック
func (c *RedisClient) HealthCheck(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redisへの接続に失敗: %w", err)
	}
	return nil
}

// Close Redis接続を閉じる
func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
