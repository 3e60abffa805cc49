package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"LetHimCook-App/internal/domain/helper"
	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
)

// DiscoveryConfig はLayer 1の実行設定
type DiscoveryConfig struct {
	Concurrency int               // 同時に実行するクエリ数
	CallTimeout time.Duration     // 1回の呼び出しのタイムアウト
	Retry       helper.RetryPolicy
}

// DefaultDiscoveryConfig は既定のLayer 1設定
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		Concurrency: 4,
		CallTimeout: 15 * time.Second,
		Retry:       helper.DefaultRetryPolicy(),
	}
}

// DiscoveryRequest はLayer 1への入力
type DiscoveryRequest struct {
	Origin       model.LatLng
	RadiusMeters float64
	Cuisine      string
	Plan         *model.GridPlan
}

// DiscoveryResult はLayer 1の出力
type DiscoveryResult struct {
	Venues []*model.Venue // 直線距離の昇順（同距離はID順）
	Stats  model.DiscoveryStats
}

// VenueDiscoveryService はグリッド点ごとに店舗を検索し、重複を除いて半径内の候補を返す
type VenueDiscoveryService interface {
	Discover(ctx context.Context, req DiscoveryRequest, limiter repository.RateLimiter) (*DiscoveryResult, error)
}

type venueDiscoveryService struct {
	providers []repository.VenueSearchProvider
	cfg       DiscoveryConfig
	logger    *zap.Logger
}

// NewVenueDiscoveryService は新しいVenueDiscoveryServiceを作成
func NewVenueDiscoveryService(providers []repository.VenueSearchProvider, cfg DiscoveryConfig, logger *zap.Logger) VenueDiscoveryService {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &venueDiscoveryService{
		providers: providers,
		cfg:       cfg,
		logger:    logger,
	}
}

// discoveryUnit はグリッド点 × 検索ソースの1クエリ
type discoveryUnit struct {
	point    model.GridPoint
	provider repository.VenueSearchProvider
	records  []model.VenueRecord
	failed   bool
}

// Discover はLayer 1を実行する
// 取得は並行で行うが、重複排除はグリッド点の順に逐次行うため結果は実行ごとに一致する
func (s *venueDiscoveryService) Discover(ctx context.Context, req DiscoveryRequest, limiter repository.RateLimiter) (*DiscoveryResult, error) {
	if req.Plan == nil {
		return nil, &model.ConfigurationError{Field: "grid", Message: "グリッド計画が指定されていません"}
	}
	if len(s.providers) == 0 {
		return nil, &model.ConfigurationError{Field: "providers", Message: "店舗検索プロバイダが設定されていません"}
	}

	units := make([]*discoveryUnit, 0, len(req.Plan.Points)*len(s.providers))
	for _, pt := range req.Plan.Points {
		for _, p := range s.providers {
			units = append(units, &discoveryUnit{point: pt, provider: p})
		}
	}

	s.logger.Info("🔍 店舗検索開始",
		zap.Int("grid_points", len(req.Plan.Points)),
		zap.Int("sources", len(s.providers)),
		zap.Int("queries", len(units)),
		zap.Float64("radius_m", req.RadiusMeters))

	var failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for _, u := range units {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			records, err := s.query(ctx, u, req.Cuisine, limiter)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				u.failed = true
				failed.Add(1)
				s.logger.Warn("⚠️ グリッド点の検索に失敗（結果0件として続行）",
					zap.String("source", u.provider.Name()),
					zap.Int("point", u.point.Index),
					zap.Error(err))
				return nil
			}
			u.records = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := s.merge(req, units)
	result.Stats.QueriesFailed = int(failed.Load())

	s.logger.Info("✅ 店舗検索完了",
		zap.Int("raw_records", result.Stats.RawRecords),
		zap.Int("unique", result.Stats.Unique),
		zap.Int("duplicates", result.Stats.Duplicates),
		zap.Int("out_of_radius", result.Stats.OutOfRadius),
		zap.Int("queries_failed", result.Stats.QueriesFailed))
	return result, nil
}

// query は1クエリをレート制限・タイムアウト・再試行付きで実行する
func (s *venueDiscoveryService) query(ctx context.Context, u *discoveryUnit, cuisine string, limiter repository.RateLimiter) ([]model.VenueRecord, error) {
	return helper.RetryWithBackoff(ctx, s.cfg.Retry, func(ctx context.Context) ([]model.VenueRecord, error) {
		if err := limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()

		helper.CountRequest(ctx, model.RequestKindDiscovery)
		records, err := u.provider.Search(callCtx, u.point.Center, u.point.QueryRadiusMeters, cuisine, nil)
		if err != nil {
			return nil, fmt.Errorf("%s 検索失敗 (point %d): %w", u.provider.Name(), u.point.Index, err)
		}
		return records, nil
	})
}

// merge はグリッド点の順にレコードを重複排除し、半径内の候補を直線距離順に並べる
func (s *venueDiscoveryService) merge(req DiscoveryRequest, units []*discoveryUnit) *DiscoveryResult {
	stats := model.DiscoveryStats{
		GridPoints: len(req.Plan.Points),
		Queries:    len(units),
		PerSource:  make(map[string]int),
	}

	failedByPoint := make(map[int]int)
	for _, u := range units {
		if u.failed {
			failedByPoint[u.point.Index]++
		}
	}
	for _, n := range failedByPoint {
		if n == len(s.providers) {
			stats.PointsFailed++
		}
	}

	dedup := helper.NewVenueDedupSet()
	var venues []*model.Venue
	for _, u := range units {
		for _, rec := range u.records {
			stats.RawRecords++
			if rec.Source == "" {
				rec.Source = u.provider.Name()
			}
			stats.PerSource[rec.Source]++

			if rec.Name == "" || rec.Coordinates.Validate() != nil {
				stats.InvalidRecords++
				continue
			}
			id, isNew := dedup.Add(rec)
			if !isNew {
				stats.Duplicates++
				continue
			}
			dist := helper.HaversineMeters(req.Origin, rec.Coordinates)
			if dist > req.RadiusMeters {
				stats.OutOfRadius++
				continue
			}
			venues = append(venues, model.NewVenueFromRecord(id, rec, dist))
		}
	}

	helper.SortByStraightLineDistance(venues)
	stats.Unique = len(venues)
	return &DiscoveryResult{Venues: venues, Stats: stats}
}
