package service

import (
	"fmt"
	"math"

	"LetHimCook-App/internal/domain/helper"
	"LetHimCook-App/internal/domain/model"
)

// queryRadiusFactor は各グリッド点での検索半径を行間隔に対して決める係数
// 六角配置では任意の地点から最寄りの点までが間隔の1/√3以内に収まる
const queryRadiusFactor = 0.75

// GridSearchPlanner は広域検索のためのグリッド点を計画する
type GridSearchPlanner interface {
	Plan(center model.LatLng, radiusMeters float64) (*model.GridPlan, error)
}

type gridSearchPlanner struct{}

// NewGridSearchPlanner は新しいGridSearchPlannerを作成
func NewGridSearchPlanner() GridSearchPlanner {
	return &gridSearchPlanner{}
}

// SpacingForRadius は検索半径(km)から基本のグリッド間隔(m)を決める
func SpacingForRadius(radiusKm float64) float64 {
	switch {
	case radiusKm <= 1:
		return 400
	case radiusKm <= 3:
		return 600
	case radiusKm <= 10:
		return 800
	case radiusKm <= 20:
		return 1200
	default:
		return 2000
	}
}

// StepMultiplierForSpan は検索範囲の直径(km)から間引き倍率を決める
func StepMultiplierForSpan(spanKm float64) int {
	switch {
	case spanKm > 30:
		return 4
	case spanKm > 15:
		return 3
	case spanKm > 5:
		return 2
	default:
		return 1
	}
}

// Plan は中心から半径内に収まる六角配置のグリッド点を列・行の昇順で返す
func (p *gridSearchPlanner) Plan(center model.LatLng, radiusMeters float64) (*model.GridPlan, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(radiusMeters) || radiusMeters <= 0 {
		return nil, &model.ConfigurationError{Field: "radius", Message: fmt.Sprintf("検索半径は正の値である必要があります: %v", radiusMeters)}
	}

	radiusKm := radiusMeters / 1000
	base := SpacingForRadius(radiusKm)
	mult := StepMultiplierForSpan(2 * radiusKm)

	rowStep := base * float64(mult)
	colStep := rowStep * math.Sqrt(3) / 2
	queryRadius := int(math.Ceil(queryRadiusFactor * rowStep))

	latM, lngM := helper.MetersPerDegree(center.Lat)
	maxCol := int(math.Ceil(radiusMeters / colStep))
	maxRow := int(math.Ceil(radiusMeters/rowStep)) + 1

	plan := &model.GridPlan{
		Center:                 center,
		RadiusMeters:           radiusMeters,
		BaseSpacingMeters:      base,
		StepMultiplier:         mult,
		EffectiveSpacingMeters: rowStep,
		QueryRadiusMeters:      queryRadius,
	}

	for col := -maxCol; col <= maxCol; col++ {
		x := float64(col) * colStep
		// 奇数列は行間隔の半分だけずらす
		offset := 0.0
		if col%2 != 0 {
			offset = rowStep / 2
		}
		for row := -maxRow; row <= maxRow; row++ {
			y := float64(row)*rowStep + offset
			if math.Hypot(x, y) > radiusMeters {
				continue
			}
			plan.Points = append(plan.Points, model.GridPoint{
				Index:  len(plan.Points),
				Column: col,
				Row:    row,
				Center: model.LatLng{
					Lat: center.Lat + y/latM,
					Lng: center.Lng + x/lngM,
				},
				QueryRadiusMeters: queryRadius,
			})
		}
	}

	return plan, nil
}
