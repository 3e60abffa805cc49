package repository

import (
	"context"

	"LetHimCook-App/internal/domain/model"
)

// MatrixRoutingProvider は1つの出発地から複数の目的地への経路距離をまとめて取得する
// 戻り値は目的地と同じ順序のメートル値で、解決できなかった要素はNaN
type MatrixRoutingProvider interface {
	Matrix(ctx context.Context, origin model.LatLng, destinations []model.LatLng) ([]float64, error)
}

// RouteProvider は2地点間の経路距離（メートル）を取得する
type RouteProvider interface {
	Route(ctx context.Context, from, to model.LatLng) (float64, error)
}
