package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"LetHimCook-App/internal/domain/helper"
	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
)

// distanceResolver は出発地から各目的地への経路距離を求める
// 解決できなかった要素はNaNのまま返し、チェーンの次の解決方法に任せる
type distanceResolver interface {
	name() string
	resolve(ctx context.Context, origin model.LatLng, targets []model.LatLng) []float64
}

// resolveDistances は解決方法を順に適用し、全要素の距離と取得元を返す
func resolveDistances(ctx context.Context, resolvers []distanceResolver, origin model.LatLng, targets []model.LatLng) ([]float64, []string) {
	distances := make([]float64, len(targets))
	sources := make([]string, len(targets))
	pending := make([]int, len(targets))
	for i := range targets {
		distances[i] = math.NaN()
		pending[i] = i
	}

	for _, r := range resolvers {
		if len(pending) == 0 {
			break
		}
		sub := make([]model.LatLng, len(pending))
		for j, idx := range pending {
			sub[j] = targets[idx]
		}
		values := r.resolve(ctx, origin, sub)

		var still []int
		for j, idx := range pending {
			if j < len(values) && validDistance(values[j]) {
				distances[idx] = values[j]
				sources[idx] = r.name()
				continue
			}
			still = append(still, idx)
		}
		pending = still
	}
	return distances, sources
}

func validDistance(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// callSettings は外部呼び出し共通の設定
type callSettings struct {
	limiter repository.RateLimiter
	timeout time.Duration
	retry   helper.RetryPolicy
	logger  *zap.Logger
}

// matrixResolver は距離行列APIで目的地をまとめて解決する
type matrixResolver struct {
	provider  repository.MatrixRoutingProvider
	chunkSize int
	call      callSettings
}

func (r *matrixResolver) name() string { return model.DistanceSourceMatrix }

func (r *matrixResolver) resolve(ctx context.Context, origin model.LatLng, targets []model.LatLng) []float64 {
	out := nanSlice(len(targets))
	chunk := r.chunkSize
	if chunk < 1 {
		chunk = len(targets)
	}

	for start := 0; start < len(targets); start += chunk {
		end := min(start+chunk, len(targets))
		dests := targets[start:end]

		values, err := helper.RetryWithBackoff(ctx, r.call.retry, func(ctx context.Context) ([]float64, error) {
			if err := r.call.limiter.Acquire(ctx); err != nil {
				return nil, err
			}
			callCtx, cancel := context.WithTimeout(ctx, r.call.timeout)
			defer cancel()

			helper.CountRequest(ctx, model.RequestKindRoutingMatrix)
			return r.provider.Matrix(callCtx, origin, dests)
		})
		if err != nil {
			r.call.logger.Warn("⚠️ 距離行列の取得に失敗（次の方法で解決）", zap.Int("destinations", len(dests)), zap.Error(err))
			continue
		}
		if len(values) != len(dests) {
			r.call.logger.Warn("⚠️ 距離行列の要素数が一致しません", zap.Int("expected", len(dests)), zap.Int("got", len(values)))
			continue
		}
		copy(out[start:end], values)
	}
	return out
}

// pairwiseResolver は2地点間の経路APIで1件ずつ解決する
type pairwiseResolver struct {
	provider    repository.RouteProvider
	concurrency int
	call        callSettings
}

func (r *pairwiseResolver) name() string { return model.DistanceSourcePairwise }

func (r *pairwiseResolver) resolve(ctx context.Context, origin model.LatLng, targets []model.LatLng) []float64 {
	out := nanSlice(len(targets))

	g := new(errgroup.Group)
	g.SetLimit(max(r.concurrency, 1))
	for i, target := range targets {
		g.Go(func() error {
			d, err := helper.RetryWithBackoff(ctx, r.call.retry, func(ctx context.Context) (float64, error) {
				if err := r.call.limiter.Acquire(ctx); err != nil {
					return 0, err
				}
				callCtx, cancel := context.WithTimeout(ctx, r.call.timeout)
				defer cancel()

				helper.CountRequest(ctx, model.RequestKindRoutingRoute)
				return r.provider.Route(callCtx, origin, target)
			})
			if err != nil {
				r.call.logger.Debug("経路距離の取得に失敗（次の方法で解決）", zap.Int("index", i), zap.Error(err))
				return nil
			}
			out[i] = d
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// greatCircleResolver は大円距離で必ず解決する
type greatCircleResolver struct{}

func (greatCircleResolver) name() string { return model.DistanceSourceGreatCircle }

func (greatCircleResolver) resolve(ctx context.Context, origin model.LatLng, targets []model.LatLng) []float64 {
	out := make([]float64, len(targets))
	for i, t := range targets {
		out[i] = helper.HaversineMeters(origin, t)
	}
	return out
}
