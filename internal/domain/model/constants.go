package model

// Stage パイプラインのレイヤー
type Stage string

const (
	StageDiscovery    Stage = "discovery"
	StageValidation   Stage = "validation"
	StageVerification Stage = "verification"
)

// PipelineStages パイプラインの実行順
func PipelineStages() []Stage {
	return []Stage{StageDiscovery, StageValidation, StageVerification}
}

// VenueState 店舗ごとの状態遷移
type VenueState string

const (
	StateDiscovered           VenueState = "discovered"
	StateValidationPending    VenueState = "validation_pending"
	StateValidationAccepted   VenueState = "validation_accepted"
	StateVerificationPending  VenueState = "verification_pending"
	StateAccepted             VenueState = "accepted"
	StateRejectedByValidation VenueState = "rejected_by_validation"
	StateRejectedByDistance   VenueState = "rejected_by_distance"
)

// IsTerminal 終端状態かどうか
func (s VenueState) IsTerminal() bool {
	return s == StateAccepted || s == StateRejectedByValidation || s == StateRejectedByDistance
}

// 検証ストラテジー名
const (
	StrategyAuto      = "auto"
	StrategyRuleBased = "rule_based"
	StrategyAIBatch   = "ai_batch"
)

// 距離の取得元
const (
	DistanceSourceMatrix      = "matrix"
	DistanceSourcePairwise    = "pairwise"
	DistanceSourceGreatCircle = "great_circle"
)

// リクエスト種別（カウンタのキー）
const (
	RequestKindDiscovery     = "discovery"
	RequestKindValidation    = "validation_ai"
	RequestKindRoutingMatrix = "routing_matrix"
	RequestKindRoutingRoute  = "routing_route"
	RequestKindGeocoding     = "geocoding"
)

// 検索半径の範囲（km）
const (
	MinSearchRadiusKm = 0.1
	MaxSearchRadiusKm = 50.0
)

// DefaultFoodKeywords ルールベース検証で使う飲食カテゴリのキーワード
var DefaultFoodKeywords = []string{
	"restaurant", "food", "cafe", "café", "coffee", "bakery", "bistro", "wine bar",
	"cocktail", "gastropub", "brewery", "diner", "eatery", "hawker", "noodle",
	"kitchen", "grill", "steakhouse",
	"pizza", "burger", "sushi", "ramen", "dim sum", "dessert", "tea", "juice",
	"bbq", "barbecue", "buffet", "canteen", "food court", "fast food", "deli",
	"brasserie", "patisserie", "ice cream", "seafood", "kopitiam",
}

// DefaultChainNames 位置を絞り込んだ検索が必要なチェーン店
var DefaultChainNames = []string{
	"mcdonald", "kfc", "burger king", "subway", "starbucks", "jollibee",
	"pizza hut", "domino", "ya kun", "toast box", "old chang kee",
	"mos burger", "long john silver", "texas chicken", "din tai fung",
	"saizeriya", "4fingers", "koi", "liho", "gong cha", "coffee bean",
}

// DefaultPostalCodePattern 郵便番号の抽出パターン（シンガポールの6桁）
const DefaultPostalCodePattern = `(?i)\b(?:singapore\s*)?(\d{6})\b`
