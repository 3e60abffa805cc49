package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
	"LetHimCook-App/internal/domain/strategy"
)

// ValidationOutcome はLayer 2の出力
type ValidationOutcome struct {
	Accepted []*model.Venue
	Rejected []*model.Venue
	Stats    model.ValidationStats
}

// VenueValidationService は選択した戦略で候補を判定し、採否を店舗に記録する
type VenueValidationService interface {
	// ResolveStrategy は要求された戦略名を実際に使う戦略名に解決する
	ResolveStrategy(requested string) (string, error)
	Validate(ctx context.Context, venues []*model.Venue, cuisine, strategyName string, limiter repository.RateLimiter) (*ValidationOutcome, error)
}

type venueValidationService struct {
	judge    repository.VenueJudgeProvider
	keywords []string
	aiCfg    strategy.AIBatchConfig
	logger   *zap.Logger
}

// NewVenueValidationService は新しいVenueValidationServiceを作成
// judgeがnilの場合はAIバッチ判定を使用できない
func NewVenueValidationService(judge repository.VenueJudgeProvider, keywords []string, aiCfg strategy.AIBatchConfig, logger *zap.Logger) VenueValidationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &venueValidationService{
		judge:    judge,
		keywords: keywords,
		aiCfg:    aiCfg,
		logger:   logger,
	}
}

// ResolveStrategy はautoをAIの有無に応じて解決する
func (s *venueValidationService) ResolveStrategy(requested string) (string, error) {
	switch requested {
	case "", model.StrategyAuto:
		if s.judge != nil {
			return model.StrategyAIBatch, nil
		}
		return model.StrategyRuleBased, nil
	case model.StrategyRuleBased:
		return model.StrategyRuleBased, nil
	case model.StrategyAIBatch:
		if s.judge == nil {
			return "", &model.ConfigurationError{Field: "validation_strategy", Message: "AIの認証情報が設定されていないためai_batchは使用できません"}
		}
		return model.StrategyAIBatch, nil
	default:
		return "", &model.ConfigurationError{Field: "validation_strategy", Message: fmt.Sprintf("不明な検証戦略です: %s", requested)}
	}
}

func (s *venueValidationService) strategyFor(name string, limiter repository.RateLimiter) (strategy.ValidationStrategy, error) {
	resolved, err := s.ResolveStrategy(name)
	if err != nil {
		return nil, err
	}
	if resolved == model.StrategyAIBatch {
		return strategy.NewAIBatchStrategy(s.judge, limiter, s.aiCfg, s.logger), nil
	}
	return strategy.NewRuleBasedStrategy(s.keywords), nil
}

// Validate はLayer 2を実行する
func (s *venueValidationService) Validate(ctx context.Context, venues []*model.Venue, cuisine, strategyName string, limiter repository.RateLimiter) (*ValidationOutcome, error) {
	strat, err := s.strategyFor(strategyName, limiter)
	if err != nil {
		return nil, err
	}

	for _, v := range venues {
		v.State = model.StateValidationPending
	}

	results := strat.Validate(ctx, venues, cuisine)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(results) != len(venues) {
		s.logger.Warn("⚠️ 判定結果の件数が候補と一致しません（全件判定なしとして扱う）",
			zap.Int("venues", len(venues)), zap.Int("results", len(results)))
		results = make([]*model.ValidationResult, len(venues))
	}

	outcome := &ValidationOutcome{Stats: model.ValidationStats{Strategy: strat.Name(), Evaluated: len(venues)}}
	for i, v := range venues {
		decision := strategy.Decide(results[i])
		if decision.FailOpen {
			outcome.Stats.FailOpen++
			v.Validation = &model.ValidationResult{
				Status:                model.StatusUnknown,
				OperationalConfidence: model.ScoreNotReported,
				AddressQuality:        model.ScoreNotReported,
				Rationale:             decision.Reason,
				FailOpen:              true,
			}
		} else {
			v.Validation = results[i]
		}

		if decision.Accept {
			v.StageFlags.PassedValidation = true
			v.State = model.StateValidationAccepted
			outcome.Accepted = append(outcome.Accepted, v)
			continue
		}
		v.Reject(model.StageValidation, decision.Reason)
		outcome.Rejected = append(outcome.Rejected, v)
	}

	outcome.Stats.Accepted = len(outcome.Accepted)
	outcome.Stats.Rejected = len(outcome.Rejected)
	s.logger.Info("✅ 候補の検証完了",
		zap.String("strategy", strat.Name()),
		zap.Int("accepted", outcome.Stats.Accepted),
		zap.Int("rejected", outcome.Stats.Rejected),
		zap.Int("fail_open", outcome.Stats.FailOpen))
	return outcome, nil
}
