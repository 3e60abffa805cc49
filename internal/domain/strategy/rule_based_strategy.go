package strategy

import (
	"context"
	"fmt"
	"strings"

	"LetHimCook-App/internal/domain/model"
)

// neutralScore はルールベースで通過した店舗に付ける中立的なスコア
const neutralScore = 5

// RuleBasedStrategy はカテゴリのキーワードだけで飲食店かどうかを判定する
// 外部呼び出しを行わないため常に全件の判定を返す
type RuleBasedStrategy struct {
	keywords []string
}

// NewRuleBasedStrategy は新しいRuleBasedStrategyを作成（keywordsが空の場合は既定の語彙）
func NewRuleBasedStrategy(keywords []string) ValidationStrategy {
	if len(keywords) == 0 {
		keywords = model.DefaultFoodKeywords
	}
	return &RuleBasedStrategy{keywords: keywords}
}

// Name は戦略名
func (s *RuleBasedStrategy) Name() string {
	return model.StrategyRuleBased
}

// Validate は各候補をキーワードと料理ジャンルで判定する
func (s *RuleBasedStrategy) Validate(ctx context.Context, venues []*model.Venue, cuisine string) []*model.ValidationResult {
	results := make([]*model.ValidationResult, len(venues))
	cuisine = strings.TrimSpace(cuisine)
	for i, v := range venues {
		results[i] = s.judge(v, cuisine)
	}
	return results
}

func (s *RuleBasedStrategy) judge(v *model.Venue, cuisine string) *model.ValidationResult {
	categories := strings.Join(v.Categories, ", ")

	keyword, ok := s.matchFoodKeyword(v.Categories)
	if !ok {
		return &model.ValidationResult{
			Status:                model.StatusNo,
			OperationalConfidence: model.ScoreNotReported,
			AddressQuality:        model.ScoreNotReported,
			Rationale:             fmt.Sprintf("no food-related category matched (categories: %s)", orNone(categories)),
		}
	}

	if cuisine != "" && !matchesCuisine(v, cuisine) {
		return &model.ValidationResult{
			Status:                model.StatusNo,
			OperationalConfidence: model.ScoreNotReported,
			AddressQuality:        model.ScoreNotReported,
			Rationale:             fmt.Sprintf("cuisine %q not found in categories, name or description", cuisine),
		}
	}

	rationale := fmt.Sprintf("category matched food keyword %q", keyword)
	if cuisine != "" {
		rationale += fmt.Sprintf(" and cuisine %q", cuisine)
	}
	return &model.ValidationResult{
		Status:                model.StatusProbably,
		OperationalConfidence: neutralScore,
		AddressQuality:        neutralScore,
		Rationale:             rationale,
	}
}

// matchFoodKeyword はカテゴリ名に含まれる最初の飲食キーワードを返す
func (s *RuleBasedStrategy) matchFoodKeyword(categories []string) (string, bool) {
	for _, c := range categories {
		for _, kw := range s.keywords {
			if containsPhrase(c, kw) {
				return kw, true
			}
		}
	}
	return "", false
}

// matchesCuisine は料理ジャンルがカテゴリ・店舗名・説明のいずれかに現れるか判定する
func matchesCuisine(v *model.Venue, cuisine string) bool {
	for _, c := range v.Categories {
		if containsPhrase(c, cuisine) {
			return true
		}
	}
	return containsPhrase(v.Name, cuisine) || containsPhrase(v.Description, cuisine)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
