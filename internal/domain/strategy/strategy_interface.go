package strategy

import (
	"context"

	"LetHimCook-App/internal/domain/model"
)

// ValidationStrategy は候補店舗を判定する戦略のインターフェース
// 実行時にルールベースとAIバッチを切り替える
type ValidationStrategy interface {
	// Name は戦略名（rule_based / ai_batch）
	Name() string

	// Validate は候補ごとの判定を返す
	// 戻り値はvenuesと同じ長さ・同じ順序で、判定が得られなかった要素はnil
	Validate(ctx context.Context, venues []*model.Venue, cuisine string) []*model.ValidationResult
}
