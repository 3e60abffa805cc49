package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"LetHimCook-App/internal/domain/helper"
	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
)

// LimiterFactory は検索半径に応じた実行単位のレート制限を生成する
type LimiterFactory func(radiusKm float64) repository.RateLimiter

// VenuePipelineService は発見・検証・距離確認の3層を順に実行する
type VenuePipelineService interface {
	// Run はパイプラインを実行してレポートを返す
	// キャンセルされた場合は最後に完了したステージまでのレポートとctx.Err()を返す
	Run(ctx context.Context, req *model.VenueSearchRequest) (*model.PipelineReport, error)
}

type venuePipelineService struct {
	planner      GridSearchPlanner
	origins      OriginResolver
	discovery    VenueDiscoveryService
	validation   VenueValidationService
	verification DistanceVerificationService
	newLimiter   LimiterFactory
	logger       *zap.Logger
}

// NewVenuePipelineService は新しいVenuePipelineServiceを作成
func NewVenuePipelineService(
	planner GridSearchPlanner,
	origins OriginResolver,
	discovery VenueDiscoveryService,
	validation VenueValidationService,
	verification DistanceVerificationService,
	newLimiter LimiterFactory,
	logger *zap.Logger,
) VenuePipelineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &venuePipelineService{
		planner:      planner,
		origins:      origins,
		discovery:    discovery,
		validation:   validation,
		verification: verification,
		newLimiter:   newLimiter,
		logger:       logger,
	}
}

// Run はパイプラインを実行する
func (s *venuePipelineService) Run(ctx context.Context, req *model.VenueSearchRequest) (*model.PipelineReport, error) {
	// 設定エラーはネットワーク呼び出しの前に返す
	if err := req.Validate(); err != nil {
		return nil, err
	}
	strategyName, err := s.validation.ResolveStrategy(req.StrategyName())
	if err != nil {
		return nil, err
	}

	radiusMeters := req.RadiusMeters()
	report := &model.PipelineReport{
		RunID:     uuid.New().String(),
		RadiusKm:  req.RadiusKm,
		Cuisine:   req.NormalizedCuisine(),
		Strategy:  strategyName,
		StartedAt: time.Now().UTC(),
	}

	tally := model.NewRequestTally()
	ctx = helper.WithRequestTally(ctx, tally)
	limiter := s.newLimiter(req.RadiusKm)
	logger := s.logger.With(zap.String("run_id", report.RunID))

	// 住所指定の場合は計画の前に検索中心を解決する
	resolved, err := s.origins.Resolve(ctx, req, limiter)
	if err != nil {
		if ctx.Err() != nil {
			return s.abort(ctx, report, tally, model.StageDiscovery, err, logger)
		}
		return nil, err
	}
	origin := resolved.Point
	report.Origin = origin
	if resolved.Address != "" {
		report.OriginAddress = resolved.Address
		report.AddNote(fmt.Sprintf("origin resolved from address %q", req.NormalizedAddress()))
	}

	logger.Info("🚀 店舗検索パイプライン開始",
		zap.String("origin", origin.String()),
		zap.Float64("radius_km", req.RadiusKm),
		zap.String("cuisine", report.Cuisine),
		zap.String("strategy", strategyName))

	plan, err := s.planner.Plan(origin, radiusMeters)
	if err != nil {
		return nil, err
	}
	report.Grid = plan

	// Layer 1: 発見
	started := time.Now()
	discovered, err := s.discovery.Discover(ctx, DiscoveryRequest{
		Origin:       origin,
		RadiusMeters: radiusMeters,
		Cuisine:      report.Cuisine,
		Plan:         plan,
	}, limiter)
	if err != nil {
		return s.abort(ctx, report, tally, model.StageDiscovery, err, logger)
	}
	report.Stats.Discovery = discovered.Stats
	report.Candidates = make([]*model.Venue, len(discovered.Venues))
	for i, v := range discovered.Venues {
		report.Candidates[i] = v.Snapshot()
	}
	report.MarkStageCompleted(model.StageDiscovery, time.Since(started))
	if err := ctx.Err(); err != nil {
		return s.abort(ctx, report, tally, model.StageValidation, err, logger)
	}

	// Layer 2: 検証
	started = time.Now()
	validated, err := s.validation.Validate(ctx, discovered.Venues, report.Cuisine, strategyName, limiter)
	if err != nil {
		return s.abort(ctx, report, tally, model.StageValidation, err, logger)
	}
	report.Stats.Validation = validated.Stats
	report.Rejected = append(report.Rejected, validated.Rejected...)
	if validated.Stats.FailOpen > 0 {
		report.AddNote(fmt.Sprintf("%d venue(s) accepted without a validation judgment (fail-open policy)", validated.Stats.FailOpen))
	}
	report.MarkStageCompleted(model.StageValidation, time.Since(started))
	if err := ctx.Err(); err != nil {
		return s.abort(ctx, report, tally, model.StageVerification, err, logger)
	}

	// Layer 3: 距離確認
	started = time.Now()
	verified, err := s.verification.Verify(ctx, origin, validated.Accepted, radiusMeters, limiter)
	if err != nil {
		return s.abort(ctx, report, tally, model.StageVerification, err, logger)
	}
	report.Stats.Verification = verified.Stats
	report.Accepted = verified.Accepted
	report.Rejected = append(report.Rejected, verified.Rejected...)
	report.MarkStageCompleted(model.StageVerification, time.Since(started))

	s.finalize(report, tally)
	logger.Info("🎉 店舗検索パイプライン完了",
		zap.Int("candidates", len(report.Candidates)),
		zap.Int("accepted", len(report.Accepted)),
		zap.Int("rejected", len(report.Rejected)),
		zap.Any("requests", report.Stats.Requests))
	return report, nil
}

// abort は途中で止まった実行を処理する
// キャンセルの場合は完了済みステージまでのレポートを返し、それ以外のエラーはそのまま返す
func (s *venuePipelineService) abort(ctx context.Context, report *model.PipelineReport, tally *model.RequestTally, stage model.Stage, err error, logger *zap.Logger) (*model.PipelineReport, error) {
	if ctx.Err() == nil {
		logger.Error("❌ パイプラインの実行に失敗", zap.String("stage", string(stage)), zap.Error(err))
		return nil, fmt.Errorf("%sステージの実行に失敗: %w", stage, err)
	}

	report.Cancelled = true
	report.AddNote(fmt.Sprintf("run cancelled during %s stage; results cover completed stages only", stage))
	s.finalize(report, tally)
	logger.Warn("⚠️ パイプラインがキャンセルされました", zap.String("stage", string(stage)), zap.Strings("completed", stageNames(report.CompletedStages)))
	return report, ctx.Err()
}

func (s *venuePipelineService) finalize(report *model.PipelineReport, tally *model.RequestTally) {
	helper.SortByRoutedDistance(report.Accepted)
	helper.SortByID(report.Rejected)
	report.Stats.Requests = tally.Snapshot()
	report.FinishedAt = time.Now().UTC()
}

func stageNames(stages []model.Stage) []string {
	out := make([]string, len(stages))
	for i, st := range stages {
		out[i] = string(st)
	}
	return out
}
