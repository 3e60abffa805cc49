package model

import (
	"fmt"
	"math"
	"strings"
)

// VenueSearchRequest 店舗検索パイプラインの実行条件を保持する
type VenueSearchRequest struct {
	Origin             *Location `json:"origin,omitempty"`              // 検索中心（無い場合はaddressが必須）
	Address            string    `json:"address,omitempty"`             // オプション：originが無い場合にジオコーディングする住所
	RadiusKm           float64   `json:"radius_km"`                     // 必須：検索半径（km）
	Cuisine            string    `json:"cuisine,omitempty"`             // オプション：料理ジャンル
	ValidationStrategy string    `json:"validation_strategy,omitempty"` // オプション：auto / rule_based / ai_batch
}

// OriginLatLng 検索中心をLatLng形式で取得
func (r *VenueSearchRequest) OriginLatLng() LatLng {
	return r.Origin.ToLatLng()
}

// HasOrigin 座標で検索中心が指定されているか
func (r *VenueSearchRequest) HasOrigin() bool {
	return r.Origin != nil
}

// NormalizedAddress 前後の空白を除いた住所
func (r *VenueSearchRequest) NormalizedAddress() string {
	return strings.TrimSpace(r.Address)
}

// RadiusMeters 検索半径をメートルで取得
func (r *VenueSearchRequest) RadiusMeters() float64 {
	return r.RadiusKm * 1000
}

// NormalizedCuisine 前後の空白を除いた料理ジャンル
func (r *VenueSearchRequest) NormalizedCuisine() string {
	return strings.TrimSpace(r.Cuisine)
}

// StrategyName 検証ストラテジー名（未指定はauto）
func (r *VenueSearchRequest) StrategyName() string {
	s := strings.ToLower(strings.TrimSpace(r.ValidationStrategy))
	if s == "" {
		return StrategyAuto
	}
	return s
}

// Validate ネットワーク呼び出し前の入力チェック
func (r *VenueSearchRequest) Validate() error {
	if r.Origin == nil {
		if r.NormalizedAddress() == "" {
			return &ConfigurationError{Field: "origin", Message: "検索中心（originまたはaddress）は必須です"}
		}
	} else if err := r.OriginLatLng().Validate(); err != nil {
		return err
	}
	if math.IsNaN(r.RadiusKm) || r.RadiusKm < MinSearchRadiusKm || r.RadiusKm > MaxSearchRadiusKm {
		return &ConfigurationError{
			Field:   "radius_km",
			Message: fmt.Sprintf("検索半径は%.1fから%.0fkmの範囲で指定してください: %v", MinSearchRadiusKm, MaxSearchRadiusKm, r.RadiusKm),
		}
	}
	switch r.StrategyName() {
	case StrategyAuto, StrategyRuleBased, StrategyAIBatch:
	default:
		return &ConfigurationError{
			Field:   "validation_strategy",
			Message: fmt.Sprintf("validation_strategyは'auto'、'rule_based'、'ai_batch'のいずれかを指定してください: %s", r.ValidationStrategy),
		}
	}
	return nil
}
