package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"LetHimCook-App/internal/domain/helper"
	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
)

// ResolvedOrigin は検索中心の決定結果
type ResolvedOrigin struct {
	Point   model.LatLng
	Address string // 住所から解決した場合のジオコーダ上の表示名
}

// OriginResolver はリクエストから検索中心を決める
type OriginResolver interface {
	// Resolve は座標指定があればそれを使い、無ければ住所をジオコーディングする
	// 住所が見つからない場合はConfigurationErrorを返す
	Resolve(ctx context.Context, req *model.VenueSearchRequest, limiter repository.RateLimiter) (*ResolvedOrigin, error)
}

type originResolver struct {
	geocoder repository.Geocoder
	timeout  time.Duration
	retry    helper.RetryPolicy
	logger   *zap.Logger
}

// NewOriginResolver は新しいOriginResolverを作成（geocoderがnilなら住所指定は使えない）
func NewOriginResolver(geocoder repository.Geocoder, timeout time.Duration, retry helper.RetryPolicy, logger *zap.Logger) OriginResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &originResolver{geocoder: geocoder, timeout: timeout, retry: retry, logger: logger}
}

func (r *originResolver) Resolve(ctx context.Context, req *model.VenueSearchRequest, limiter repository.RateLimiter) (*ResolvedOrigin, error) {
	if req.HasOrigin() {
		return &ResolvedOrigin{Point: req.OriginLatLng()}, nil
	}

	address := req.NormalizedAddress()
	if r.geocoder == nil {
		return nil, &model.ConfigurationError{Field: "address", Message: "ジオコーダが設定されていないため住所を検索中心にできません"}
	}

	hits, err := helper.RetryWithBackoff(ctx, r.retry, func(ctx context.Context) ([]model.AddressRecord, error) {
		if err := limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		helper.CountRequest(ctx, model.RequestKindGeocoding)
		return r.geocoder.Search(callCtx, address, orb.Bound{})
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("住所のジオコーディングに失敗: %w", err)
	}

	// ジオコーダの並び順（関連度順）で最初の有効な座標を採用する
	for _, h := range hits {
		if h.Coordinates.Validate() != nil {
			continue
		}
		display := strings.TrimSpace(h.DisplayName)
		if display == "" {
			display = address
		}
		r.logger.Info("📍 住所から検索中心を決定",
			zap.String("address", address),
			zap.String("resolved", display),
			zap.String("origin", h.Coordinates.String()))
		return &ResolvedOrigin{Point: h.Coordinates, Address: display}, nil
	}

	return nil, &model.ConfigurationError{
		Field:   "address",
		Message: fmt.Sprintf("住所から検索中心を特定できません: %s", address),
	}
}
