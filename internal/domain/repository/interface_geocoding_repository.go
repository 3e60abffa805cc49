package repository

import (
	"context"

	"github.com/paulmach/orb"

	"LetHimCook-App/internal/domain/model"
)

// Geocoder は住所の逆引きと範囲指定の名前検索を行う
type Geocoder interface {
	// ReverseGeocode は座標から住所を取得する（見つからない場合はnil）
	ReverseGeocode(ctx context.Context, point model.LatLng) (*model.AddressRecord, error)
	// Search はboundの範囲内で名前検索を行う（ゼロ値のboundは範囲指定なし）
	Search(ctx context.Context, query string, bound orb.Bound) ([]model.AddressRecord, error)
}
