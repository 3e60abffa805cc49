package helper

import (
	"fmt"
	"math"
	"strings"

	"LetHimCook-App/internal/domain/model"
)

// NormalizeName は店舗名を比較用に正規化する（小文字化・前後空白除去・連続空白の圧縮）
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// round4 は小数点以下4桁に丸める（約11m単位）
func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// NameCoordinateKey は「正規化名_緯度_経度」形式のキーを返す（座標は小数点以下4桁）
func NameCoordinateKey(name string, p model.LatLng) string {
	return fmt.Sprintf("%s_%.4f_%.4f", NormalizeName(name), round4(p.Lat), round4(p.Lng))
}

// VenueID はレコードの安定した識別子を返す
// プロバイダIDがある場合は「ソース:ID」、無い場合は名前と座標から導出する
func VenueID(rec model.VenueRecord) string {
	if id := strings.TrimSpace(rec.ProviderID); id != "" {
		return rec.Source + ":" + id
	}
	return NameCoordinateKey(rec.Name, rec.Coordinates)
}
