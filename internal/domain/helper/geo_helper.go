package helper

import (
	"math"
	"sort"

	"LetHimCook-App/internal/domain/model"
)

const (
	earthRadiusKm = 6371.0
	// metersPerDegreeLat 緯度1度あたりのメートル（平面近似）
	metersPerDegreeLat = 111320.0
)

// HaversineDistance は2地点間の距離を計算する (km)
func HaversineDistance(p1, p2 model.LatLng) float64 {
	lat1 := p1.Lat * math.Pi / 180
	lng1 := p1.Lng * math.Pi / 180
	lat2 := p2.Lat * math.Pi / 180
	lng2 := p2.Lng * math.Pi / 180
	dLat := lat2 - lat1
	dLng := lng2 - lng1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// HaversineMeters は2地点間の距離を計算する (m)
func HaversineMeters(p1, p2 model.LatLng) float64 {
	return HaversineDistance(p1, p2) * 1000
}

// MetersPerDegree は指定緯度での緯度・経度1度あたりのメートルを返す
func MetersPerDegree(lat float64) (latMeters, lngMeters float64) {
	cos := math.Cos(lat * math.Pi / 180)
	// 極付近で経度方向が0にならないよう下限を設ける
	if cos < 1e-6 {
		cos = 1e-6
	}
	return metersPerDegreeLat, metersPerDegreeLat * cos
}

// OffsetMeters は基準点から東西・南北にメートル単位でずらした地点を返す
func OffsetMeters(origin model.LatLng, eastMeters, northMeters float64) model.LatLng {
	latM, lngM := MetersPerDegree(origin.Lat)
	return model.LatLng{
		Lat: origin.Lat + northMeters/latM,
		Lng: origin.Lng + eastMeters/lngM,
	}
}

// DegreesForMeters はメートルを緯度方向の度数に換算する（バウンディングボックスの余白用）
func DegreesForMeters(meters float64) float64 {
	return meters / metersPerDegreeLat
}

// SortByStraightLineDistance は直線距離の昇順（同距離はID順）で店舗スライスをソートする
func SortByStraightLineDistance(venues []*model.Venue) {
	sort.SliceStable(venues, func(i, j int) bool {
		if venues[i].StraightLineDistanceMeters != venues[j].StraightLineDistanceMeters {
			return venues[i].StraightLineDistanceMeters < venues[j].StraightLineDistanceMeters
		}
		return venues[i].ID < venues[j].ID
	})
}

// SortByRoutedDistance は経路距離の昇順（同距離はID順）で店舗スライスをソートする
// 経路距離が未設定の店舗は末尾に回す
func SortByRoutedDistance(venues []*model.Venue) {
	sort.SliceStable(venues, func(i, j int) bool {
		di, okI := venues[i].RoutedDistance()
		dj, okJ := venues[j].RoutedDistance()
		if okI != okJ {
			return okI
		}
		if di != dj {
			return di < dj
		}
		return venues[i].ID < venues[j].ID
	})
}

// SortByID はID順に店舗スライスをソートする
func SortByID(venues []*model.Venue) {
	sort.SliceStable(venues, func(i, j int) bool {
		return venues[i].ID < venues[j].ID
	})
}
