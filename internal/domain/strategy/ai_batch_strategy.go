package strategy

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"LetHimCook-App/internal/domain/helper"
	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
)

// AIBatchConfig はAIバッチ判定の設定
type AIBatchConfig struct {
	BatchSize   int           // 1リクエストあたりの店舗数
	Concurrency int           // 同時に送信するバッチ数
	CallTimeout time.Duration // 1リクエストのタイムアウト
	Retry       helper.RetryPolicy
}

// DefaultAIBatchConfig は既定のAIバッチ設定
func DefaultAIBatchConfig() AIBatchConfig {
	return AIBatchConfig{
		BatchSize:   10,
		Concurrency: 2,
		CallTimeout: 60 * time.Second,
		Retry:       helper.DefaultRetryPolicy(),
	}
}

// AIBatchStrategy は候補を固定サイズのバッチに分けてAIに判定させる
// レート制限は実行単位で共有されるため、実行ごとに生成する
type AIBatchStrategy struct {
	judge   repository.VenueJudgeProvider
	limiter repository.RateLimiter
	parser  *JudgmentParser
	cfg     AIBatchConfig
	logger  *zap.Logger
}

// NewAIBatchStrategy は新しいAIBatchStrategyを作成
func NewAIBatchStrategy(judge repository.VenueJudgeProvider, limiter repository.RateLimiter, cfg AIBatchConfig, logger *zap.Logger) ValidationStrategy {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIBatchStrategy{
		judge:   judge,
		limiter: limiter,
		parser:  NewJudgmentParser(),
		cfg:     cfg,
		logger:  logger,
	}
}

// Name は戦略名
func (s *AIBatchStrategy) Name() string {
	return model.StrategyAIBatch
}

// Validate はバッチごとにAIへ問い合わせ、判定を元の順序に戻して返す
// 失敗したバッチの要素はnilのまま残る
func (s *AIBatchStrategy) Validate(ctx context.Context, venues []*model.Venue, cuisine string) []*model.ValidationResult {
	results := make([]*model.ValidationResult, len(venues))
	if len(venues) == 0 {
		return results
	}

	batches := (len(venues) + s.cfg.BatchSize - 1) / s.cfg.BatchSize
	s.logger.Info("🤖 AIバッチ判定開始", zap.Int("venues", len(venues)), zap.Int("batches", batches))

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for start := 0; start < len(venues); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(venues))
		g.Go(func() error {
			judged := s.validateBatch(ctx, venues[start:end], cuisine)
			// バッチごとに重ならない範囲へ書き込む
			copy(results[start:end], judged)
			return nil
		})
	}
	_ = g.Wait()

	missing := 0
	for _, r := range results {
		if r == nil {
			missing++
		}
	}
	s.logger.Info("✅ AIバッチ判定完了", zap.Int("judged", len(venues)-missing), zap.Int("missing", missing))
	return results
}

// validateBatch は1バッチ分を問い合わせる。失敗時は全要素nilを返す
func (s *AIBatchStrategy) validateBatch(ctx context.Context, batch []*model.Venue, cuisine string) []*model.ValidationResult {
	empty := make([]*model.ValidationResult, len(batch))
	if ctx.Err() != nil {
		return empty
	}

	summaries := make([]model.VenueSummary, len(batch))
	for i, v := range batch {
		summaries[i] = model.VenueSummary{
			Index:       i + 1,
			Name:        v.Name,
			Categories:  v.Categories,
			Address:     v.Address,
			Coordinates: v.Coordinates,
			Description: v.Description,
		}
	}

	text, err := helper.RetryWithBackoff(ctx, s.cfg.Retry, func(ctx context.Context) (string, error) {
		if err := s.limiter.Acquire(ctx); err != nil {
			return "", err
		}
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()

		helper.CountRequest(ctx, model.RequestKindValidation)
		return s.judge.ValidateBatch(callCtx, summaries, cuisine)
	})
	if err != nil {
		s.logger.Warn("⚠️ AIバッチ判定に失敗（判定なしとして続行）", zap.Int("size", len(batch)), zap.Error(err))
		return empty
	}

	judged := s.parser.Parse(text, len(batch))
	if len(judged) != len(batch) {
		return empty
	}
	return judged
}
