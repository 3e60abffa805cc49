package model

// GridPoint 広域検索の1つの検索中心
type GridPoint struct {
	Index             int    `json:"index" yaml:"index"`                             // 実行順の連番
	Column            int    `json:"column" yaml:"column"`                           // 列（中心を0とする）
	Row               int    `json:"row" yaml:"row"`                                 // 行（中心を0とする）
	Center            LatLng `json:"center" yaml:"center"`                           // 検索中心
	QueryRadiusMeters int    `json:"query_radius_meters" yaml:"query_radius_meters"` // この点での検索半径
}

// GridPlan 検索範囲を覆うグリッドの計画
type GridPlan struct {
	Center                 LatLng      `json:"center" yaml:"center"`
	RadiusMeters           float64     `json:"radius_meters" yaml:"radius_meters"`
	BaseSpacingMeters      float64     `json:"base_spacing_meters" yaml:"base_spacing_meters"`           // 半径から決まる基本間隔
	StepMultiplier         int         `json:"step_multiplier" yaml:"step_multiplier"`                   // 広域検索での間引き倍率
	EffectiveSpacingMeters float64     `json:"effective_spacing_meters" yaml:"effective_spacing_meters"` // 実際の行間隔
	QueryRadiusMeters      int         `json:"query_radius_meters" yaml:"query_radius_meters"`
	Points                 []GridPoint `json:"points" yaml:"points"`
}

// PointCount グリッド点の数
func (g *GridPlan) PointCount() int {
	if g == nil {
		return 0
	}
	return len(g.Points)
}
