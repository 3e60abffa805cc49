package places

import (
	"math"
	"strings"

	"LetHimCook-App/internal/domain/model"
)

// coordinatesOf は欠損した座標をNaNにする（発見ステージで不正レコードとして数える）
func coordinatesOf(lat, lng *float64) model.LatLng {
	if lat == nil || lng == nil {
		return model.LatLng{Lat: math.NaN(), Lng: math.NaN()}
	}
	return model.LatLng{Lat: *lat, Lng: *lng}
}

// humanizeType は "chinese_restaurant" を "chinese restaurant" に変換する
func humanizeType(t string) string {
	return strings.TrimSpace(strings.ReplaceAll(t, "_", " "))
}

// appendUnique は空文字と重複を除いて追加する
func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dup := false
		for _, existing := range list {
			if strings.EqualFold(existing, v) {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, v)
		}
	}
	return list
}
