package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
)

const cacheKeyPrefix = "lethimcook:geocode:"

// CachedGeocoder はジオコーダの結果をRedisにキャッシュする
// Redisの障害時はキャッシュなしで元のジオコーダを呼ぶ
type CachedGeocoder struct {
	inner  repository.Geocoder
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedGeocoder は新しいCachedGeocoderを作成
func NewCachedGeocoder(inner repository.Geocoder, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedGeocoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedGeocoder{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

// ReverseGeocode はキャッシュを確認してから逆ジオコーディングする
func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, point model.LatLng) (*model.AddressRecord, error) {
	key := fmt.Sprintf("%sreverse:%.5f,%.5f", cacheKeyPrefix, point.Lat, point.Lng)

	var cached *model.AddressRecord
	if c.load(ctx, key, &cached) {
		return cached, nil
	}
	rec, err := c.inner.ReverseGeocode(ctx, point)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, rec)
	return rec, nil
}

// Search はキャッシュを確認してから名前検索する
func (c *CachedGeocoder) Search(ctx context.Context, query string, bound orb.Bound) ([]model.AddressRecord, error) {
	key := fmt.Sprintf("%ssearch:%s:%.4f,%.4f,%.4f,%.4f", cacheKeyPrefix,
		strings.ToLower(strings.TrimSpace(query)), bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat())

	var cached []model.AddressRecord
	if c.load(ctx, key, &cached) {
		return cached, nil
	}
	recs, err := c.inner.Search(ctx, query, bound)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, recs)
	return recs, nil
}

func (c *CachedGeocoder) load(ctx context.Context, key string, out any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("⚠️ ジオコーディングキャッシュの読み込みに失敗", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn("⚠️ キャッシュの内容を解釈できません", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CachedGeocoder) store(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("⚠️ ジオコーディングキャッシュの保存に失敗", zap.String("key", key), zap.Error(err))
	}
}
