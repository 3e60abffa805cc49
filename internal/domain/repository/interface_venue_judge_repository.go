package repository

import (
	"context"

	"LetHimCook-App/internal/domain/model"
)

// VenueJudgeProvider は店舗のバッチをAIに判定させ、生のテキスト応答を返す
type VenueJudgeProvider interface {
	ValidateBatch(ctx context.Context, summaries []model.VenueSummary, cuisine string) (string, error)
}
