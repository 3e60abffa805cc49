package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// LatLng 緯度経度を表す基本的な値型（全レイヤーで共通）
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Validate 緯度経度の範囲チェック
func (p LatLng) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return &ConfigurationError{Field: "latitude", Message: fmt.Sprintf("緯度は-90から90の範囲で指定してください: %v", p.Lat)}
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return &ConfigurationError{Field: "longitude", Message: fmt.Sprintf("経度は-180から180の範囲で指定してください: %v", p.Lng)}
	}
	return nil
}

// ToOrbPoint orb.Point（[lng, lat]の順）に変換
func (p LatLng) ToOrbPoint() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// LatLngFromOrbPoint orb.Point から LatLng を生成
func LatLngFromOrbPoint(pt orb.Point) LatLng {
	return LatLng{Lat: pt.Lat(), Lng: pt.Lon()}
}

// String ログ・レポート用の表記
func (p LatLng) String() string {
	return fmt.Sprintf("%.5f, %.5f", p.Lat, p.Lng)
}

// Location APIリクエストで受け取る位置情報
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ToLatLng Location を LatLng に変換
func (l *Location) ToLatLng() LatLng {
	if l == nil {
		return LatLng{}
	}
	return LatLng{Lat: l.Latitude, Lng: l.Longitude}
}

// VenueRecord 検索プロバイダから返された生の店舗レコード
type VenueRecord struct {
	ProviderID  string   // プロバイダ固有ID（無い場合は空）
	Source      string   // 取得元（foursquare, overpass など）
	Name        string   // 店舗名
	Categories  []string // カテゴリ名
	Coordinates LatLng   // 位置
	Address     string   // 住所（任意）
	Description string   // 説明文（任意）
}

// ValidationStatus AI/ルールによる判定ステータス
type ValidationStatus string

const (
	StatusYes      ValidationStatus = "YES"
	StatusProbably ValidationStatus = "PROBABLY"
	StatusNo       ValidationStatus = "NO"
	StatusUnknown  ValidationStatus = "UNKNOWN"
)

// ParseValidationStatus 文字列をステータスに変換（不明な値はUNKNOWN）
func ParseValidationStatus(s string) ValidationStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES", "Y", "TRUE":
		return StatusYes
	case "PROBABLY", "LIKELY", "MAYBE":
		return StatusProbably
	case "NO", "N", "FALSE":
		return StatusNo
	default:
		return StatusUnknown
	}
}

// ScoreNotReported スコアが報告されなかったことを示す値
const ScoreNotReported = -1

// ValidationResult Layer 2 の判定結果
type ValidationResult struct {
	Status                ValidationStatus `json:"status" yaml:"status"`
	OperationalConfidence int              `json:"operational_confidence" yaml:"operational_confidence"` // 0-10（-1は未報告）
	AddressQuality        int              `json:"address_quality" yaml:"address_quality"`               // 0-10（-1は未報告）
	Rationale             string           `json:"rationale" yaml:"rationale"`
	Coordinates           *LatLng          `json:"coordinates,omitempty" yaml:"coordinates,omitempty"` // AIが返した座標（任意）
	LocationText          string           `json:"location_text,omitempty" yaml:"location_text,omitempty"`
	FailOpen              bool             `json:"fail_open,omitempty" yaml:"fail_open,omitempty"` // 判定欠落で許容された場合true
}

// VerificationResult Layer 3 の距離検証結果
type VerificationResult struct {
	RoutedDistanceMeters       float64  `json:"routed_distance_meters" yaml:"routed_distance_meters"`
	StraightLineDistanceMeters float64  `json:"straight_line_distance_meters" yaml:"straight_line_distance_meters"`
	DeltaPercent               float64  `json:"delta_percent" yaml:"delta_percent"`
	DistanceSource             string   `json:"distance_source" yaml:"distance_source"` // matrix / pairwise / great_circle
	RefinedCoordinates         LatLng   `json:"refined_coordinates" yaml:"refined_coordinates"`
	RefinedAddress             string   `json:"refined_address" yaml:"refined_address"`
	Confidence                 float64  `json:"confidence" yaml:"confidence"`
	Notes                      []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// StageFlags 各レイヤーの通過フラグ
type StageFlags struct {
	PassedDiscovery    bool `json:"passed_discovery" yaml:"passed_discovery"`
	PassedValidation   bool `json:"passed_validation" yaml:"passed_validation"`
	PassedVerification bool `json:"passed_verification" yaml:"passed_verification"`
}

// Rejection 除外理由
type Rejection struct {
	Stage  Stage  `json:"stage" yaml:"stage"`
	Reason string `json:"reason" yaml:"reason"`
}

// Venue パイプライン全体を流れる店舗エンティティ
type Venue struct {
	ID                         string              `json:"id" yaml:"id"`                 // 重複排除キー
	Source                     string              `json:"source" yaml:"source"`         // 取得元
	Name                       string              `json:"name" yaml:"name"`             // 店舗名
	Categories                 []string            `json:"categories" yaml:"categories"` // カテゴリ
	Coordinates                LatLng              `json:"coordinates" yaml:"coordinates"`
	Address                    string              `json:"address,omitempty" yaml:"address,omitempty"`
	Description                string              `json:"description,omitempty" yaml:"description,omitempty"`
	StraightLineDistanceMeters float64             `json:"straight_line_distance_meters" yaml:"straight_line_distance_meters"`
	RoutedDistanceMeters       *float64            `json:"routed_distance_meters,omitempty" yaml:"routed_distance_meters,omitempty"` // Layer 3 まで未設定
	Validation                 *ValidationResult   `json:"validation,omitempty" yaml:"validation,omitempty"`
	Verification               *VerificationResult `json:"verification,omitempty" yaml:"verification,omitempty"`
	StageFlags                 StageFlags          `json:"stage_flags" yaml:"stage_flags"`
	Rejection                  *Rejection          `json:"rejection,omitempty" yaml:"rejection,omitempty"`
	State                      VenueState          `json:"state" yaml:"state"`
}

// NewVenueFromRecord 初回発見時に VenueRecord から Venue を生成
func NewVenueFromRecord(id string, rec VenueRecord, straightLineMeters float64) *Venue {
	categories := make([]string, len(rec.Categories))
	copy(categories, rec.Categories)
	return &Venue{
		ID:                         id,
		Source:                     rec.Source,
		Name:                       rec.Name,
		Categories:                 categories,
		Coordinates:                rec.Coordinates,
		Address:                    rec.Address,
		Description:                rec.Description,
		StraightLineDistanceMeters: straightLineMeters,
		StageFlags:                 StageFlags{PassedDiscovery: true},
		State:                      StateDiscovered,
	}
}

// Reject 指定ステージで除外する
func (v *Venue) Reject(stage Stage, reason string) {
	if strings.TrimSpace(reason) == "" {
		reason = fmt.Sprintf("rejected at %s stage", stage)
	}
	v.Rejection = &Rejection{Stage: stage, Reason: reason}
	switch stage {
	case StageValidation:
		v.StageFlags.PassedValidation = false
		v.State = StateRejectedByValidation
	case StageVerification:
		v.StageFlags.PassedVerification = false
		v.State = StateRejectedByDistance
	}
}

// IsAccepted 全レイヤーを通過したかチェック
func (v *Venue) IsAccepted() bool {
	return v.StageFlags.PassedDiscovery && v.StageFlags.PassedValidation && v.StageFlags.PassedVerification && v.Rejection == nil
}

// RoutedDistance Layer 3 の距離（未設定の場合はfalse）
func (v *Venue) RoutedDistance() (float64, bool) {
	if v.RoutedDistanceMeters == nil {
		return 0, false
	}
	return *v.RoutedDistanceMeters, true
}

// Snapshot Layer 1 時点の候補リスト用にコピーを作成
func (v *Venue) Snapshot() *Venue {
	c := *v
	c.Validation = nil
	c.Verification = nil
	c.Rejection = nil
	c.RoutedDistanceMeters = nil
	return &c
}

// AllText カテゴリ・店舗名・説明を連結したテキスト（検索用）
func (v *Venue) AllText() string {
	parts := append([]string{v.Name, v.Description, v.Address}, v.Categories...)
	return strings.Join(parts, " ")
}
