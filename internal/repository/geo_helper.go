package repository

import (
	"encoding/json"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"LetHimCook-App/internal/domain/model"
)

// GeoPoint PostGIS POINT 型 / geo_point の JSON 表現
// GeoJSON形式（coordinates）と lat/lon 形式のどちらも受け付ける
type GeoPoint struct {
	Type        string    `json:"type,omitempty"`
	Coordinates []float64 `json:"coordinates,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
}

// invalidLatLng 位置が読めないレコード用の座標（発見ステージで不正扱いになる）
func invalidLatLng() model.LatLng {
	return model.LatLng{Lat: math.NaN(), Lng: math.NaN()}
}

// ToOrbPoint orb.Point に変換（座標が欠けている場合はfalse）
func (g *GeoPoint) ToOrbPoint() (orb.Point, bool) {
	if g == nil {
		return orb.Point{}, false
	}
	if len(g.Coordinates) >= 2 {
		return orb.Point{g.Coordinates[0], g.Coordinates[1]}, true
	}
	if g.Lat != nil && g.Lon != nil {
		return orb.Point{*g.Lon, *g.Lat}, true
	}
	return orb.Point{}, false
}

// GeoPointToLatLng GeoPoint を model.LatLng に変換（読めない場合はNaN座標）
func GeoPointToLatLng(g *GeoPoint) model.LatLng {
	pt, ok := g.ToOrbPoint()
	if !ok {
		return invalidLatLng()
	}
	return model.LatLngFromOrbPoint(pt)
}

// ParseGeoPointJSON JSON文字列の位置情報を model.LatLng に変換
// typeを持つものはGeoJSONジオメトリ（ST_AsGeoJSONの出力）として読む
func ParseGeoPointJSON(raw []byte) model.LatLng {
	var gp GeoPoint
	if len(raw) == 0 || json.Unmarshal(raw, &gp) != nil {
		return invalidLatLng()
	}
	if gp.Type == "" {
		return GeoPointToLatLng(&gp)
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return invalidLatLng()
	}
	pt, ok := g.Geometry().(orb.Point)
	if !ok {
		return invalidLatLng()
	}
	return model.LatLngFromOrbPoint(pt)
}

// LatLngToGeoPoint model.LatLng を lat/lon 形式の GeoPoint に変換（Elasticsearchのクエリ用）
func LatLngToGeoPoint(p model.LatLng) *GeoPoint {
	lat, lon := p.Lat, p.Lng
	return &GeoPoint{Lat: &lat, Lon: &lon}
}
