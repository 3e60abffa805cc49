package repository

import (
	"context"

	"LetHimCook-App/internal/domain/model"
)

// VenueSearchProvider は指定地点周辺の店舗を検索するプロバイダ
// categoriesが空の場合はプロバイダ既定の飲食カテゴリで絞り込む
type VenueSearchProvider interface {
	// Name は取得元の名前（foursquare, overpass など）
	Name() string
	// Search は中心から半径radiusMeters以内の店舗を返す。queryは料理ジャンルなどの自由語（空可）
	Search(ctx context.Context, center model.LatLng, radiusMeters int, query string, categories []string) ([]model.VenueRecord, error)
}
