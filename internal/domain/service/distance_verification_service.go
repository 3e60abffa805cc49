package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"LetHimCook-App/internal/domain/helper"
	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
)

// VerificationConfig はLayer 3の実行設定
type VerificationConfig struct {
	MatrixThreshold   int           // 候補数がこれを超える場合に距離行列を使う
	MatrixChunkSize   int           // 距離行列1リクエストあたりの目的地数
	Concurrency       int           // 住所補正・2地点経路の同時実行数
	CallTimeout       time.Duration // 1回の呼び出しのタイムアウト
	Retry             helper.RetryPolicy
	ToleranceMeters   float64  // 経路距離が直線距離をこれ以上下回る場合に注記する
	BiasRadiusMeters  float64  // チェーン店検索の範囲（店舗からの距離）
	ChainNames        []string // 位置を絞った検索を行う店名
	PostalCodePattern string   // 郵便番号の正規表現
}

// DefaultVerificationConfig は既定のLayer 3設定
func DefaultVerificationConfig() VerificationConfig {
	return VerificationConfig{
		MatrixThreshold:   5,
		MatrixChunkSize:   50,
		Concurrency:       4,
		CallTimeout:       15 * time.Second,
		Retry:             helper.DefaultRetryPolicy(),
		ToleranceMeters:   25,
		BiasRadiusMeters:  300,
		ChainNames:        model.DefaultChainNames,
		PostalCodePattern: model.DefaultPostalCodePattern,
	}
}

// VerificationOutcome はLayer 3の出力
type VerificationOutcome struct {
	Accepted []*model.Venue
	Rejected []*model.Venue
	Stats    model.VerificationStats
}

// DistanceVerificationService は経路距離を求めて上限を超える候補を除外する
type DistanceVerificationService interface {
	Verify(ctx context.Context, origin model.LatLng, venues []*model.Venue, maxDistanceMeters float64, limiter repository.RateLimiter) (*VerificationOutcome, error)
}

type distanceVerificationService struct {
	matrix   repository.MatrixRoutingProvider
	route    repository.RouteProvider
	geocoder repository.Geocoder
	postal   *regexp.Regexp
	cfg      VerificationConfig
	logger   *zap.Logger
}

// NewDistanceVerificationService は新しいDistanceVerificationServiceを作成
// matrix・route・geocoderはいずれもnil可（大円距離・合成住所で代替する）
func NewDistanceVerificationService(
	matrix repository.MatrixRoutingProvider,
	route repository.RouteProvider,
	geocoder repository.Geocoder,
	cfg VerificationConfig,
	logger *zap.Logger,
) (DistanceVerificationService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var postal *regexp.Regexp
	if cfg.PostalCodePattern != "" {
		re, err := regexp.Compile(cfg.PostalCodePattern)
		if err != nil {
			return nil, &model.ConfigurationError{Field: "postal_code_pattern", Message: fmt.Sprintf("正規表現が不正です: %v", err)}
		}
		postal = re
	}
	return &distanceVerificationService{
		matrix:   matrix,
		route:    route,
		geocoder: geocoder,
		postal:   postal,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// resolversFor は候補数に応じた解決チェーンを組み立てる
func (s *distanceVerificationService) resolversFor(n int, call callSettings) []distanceResolver {
	var chain []distanceResolver
	if n > s.cfg.MatrixThreshold && s.matrix != nil {
		chain = append(chain, &matrixResolver{provider: s.matrix, chunkSize: s.cfg.MatrixChunkSize, call: call})
	}
	if s.route != nil {
		chain = append(chain, &pairwiseResolver{provider: s.route, concurrency: s.cfg.Concurrency, call: call})
	}
	return append(chain, greatCircleResolver{})
}

// Verify はLayer 3を実行する
func (s *distanceVerificationService) Verify(ctx context.Context, origin model.LatLng, venues []*model.Venue, maxDistanceMeters float64, limiter repository.RateLimiter) (*VerificationOutcome, error) {
	outcome := &VerificationOutcome{
		Stats: model.VerificationStats{Evaluated: len(venues), DistanceSources: make(map[string]int)},
	}
	if len(venues) == 0 {
		return outcome, nil
	}

	call := callSettings{limiter: limiter, timeout: s.cfg.CallTimeout, retry: s.cfg.Retry, logger: s.logger}
	for _, v := range venues {
		v.State = model.StateVerificationPending
	}

	s.logger.Info("📏 経路距離の検証開始", zap.Int("candidates", len(venues)), zap.Float64("max_m", maxDistanceMeters))

	// Step 1: 住所・座標の補正（並行）
	refiner := &locationRefiner{
		geocoder:   s.geocoder,
		chainNames: s.cfg.ChainNames,
		postal:     s.postal,
		biasMeters: s.cfg.BiasRadiusMeters,
		call:       call,
	}
	refined := make([]RefinedLocation, len(venues))
	g := new(errgroup.Group)
	g.SetLimit(max(s.cfg.Concurrency, 1))
	for i, v := range venues {
		g.Go(func() error {
			refined[i] = refiner.refine(ctx, v)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 2: 経路距離（信頼できる補正座標があればそちらを使う）
	targets := make([]model.LatLng, len(venues))
	for i, v := range venues {
		targets[i] = v.Coordinates
		if refined[i].Resolved && refined[i].Confidence >= confidenceMedium {
			targets[i] = refined[i].Coordinates
		}
	}
	distances, sources := resolveDistances(ctx, s.resolversFor(len(venues), call), origin, targets)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 3: 採否の判定
	for i, v := range venues {
		routed := distances[i]
		straight := helper.HaversineMeters(origin, targets[i])

		result := &model.VerificationResult{
			RoutedDistanceMeters:       routed,
			StraightLineDistanceMeters: straight,
			DeltaPercent:               deltaPercent(routed, straight),
			DistanceSource:             sources[i],
			RefinedCoordinates:         refined[i].Coordinates,
			RefinedAddress:             refined[i].Address,
			Confidence:                 refined[i].Confidence,
			Notes:                      append([]string(nil), refined[i].Notes...),
		}
		if !refined[i].Resolved {
			outcome.Stats.RefinementFailures++
		}
		if routed < straight-s.cfg.ToleranceMeters {
			result.Notes = append(result.Notes, fmt.Sprintf("routed distance %.0f m is shorter than straight-line distance %.0f m", routed, straight))
		}

		v.Verification = result
		v.RoutedDistanceMeters = &routed
		outcome.Stats.DistanceSources[sources[i]]++

		if routed <= maxDistanceMeters {
			v.StageFlags.PassedVerification = true
			v.State = model.StateAccepted
			outcome.Accepted = append(outcome.Accepted, v)
			continue
		}
		v.Reject(model.StageVerification, fmt.Sprintf("routed distance %.2f km exceeds limit of %.2f km", routed/1000, maxDistanceMeters/1000))
		outcome.Rejected = append(outcome.Rejected, v)
	}

	outcome.Stats.Accepted = len(outcome.Accepted)
	outcome.Stats.Rejected = len(outcome.Rejected)
	s.logger.Info("✅ 経路距離の検証完了",
		zap.Int("accepted", outcome.Stats.Accepted),
		zap.Int("rejected", outcome.Stats.Rejected),
		zap.Any("sources", outcome.Stats.DistanceSources))
	return outcome, nil
}

// deltaPercent は直線距離に対する経路距離の増減率
func deltaPercent(routed, straight float64) float64 {
	if straight <= 0 {
		return 0
	}
	return (routed - straight) / straight * 100
}
