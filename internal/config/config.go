package config

import (
	"time"
)

// Config はアプリケーション全体の設定
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Firestore  FirestoreConfig  `mapstructure:"firestore"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Validation ValidationConfig `mapstructure:"validation"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"` // 1回のパイプライン実行の上限
}

// LoggingConfig はログ出力の設定
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console または json
}

// ProvidersConfig は外部APIの設定
type ProvidersConfig struct {
	Timeout    time.Duration    `mapstructure:"timeout"`
	Foursquare FoursquareConfig `mapstructure:"foursquare"`
	Google     GoogleConfig     `mapstructure:"google"`
	Overpass   OverpassConfig   `mapstructure:"overpass"`
	OSRM       OSRMConfig       `mapstructure:"osrm"`
	Nominatim  NominatimConfig  `mapstructure:"nominatim"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
}

// FoursquareConfig はFoursquare Places APIの設定
type FoursquareConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// GoogleConfig はGoogle Places・Directions APIの設定
type GoogleConfig struct {
	APIKey            string `mapstructure:"api_key"`
	PlacesEnabled     bool   `mapstructure:"places_enabled"`
	PlacesBaseURL     string `mapstructure:"places_base_url"`
	DirectionsEnabled bool   `mapstructure:"directions_enabled"`
	DirectionsBaseURL string `mapstructure:"directions_base_url"`
}

// OverpassConfig はOpenStreetMap Overpass APIの設定
type OverpassConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

// OSRMConfig はOSRMの設定
type OSRMConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	Profile string `mapstructure:"profile"`
}

// NominatimConfig はNominatimの設定
type NominatimConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	BaseURL      string `mapstructure:"base_url"`
	UserAgent    string `mapstructure:"user_agent"`
	CountryCodes string `mapstructure:"country_codes"`
}

// GeminiConfig はGemini APIの設定（APIキーがなければAI判定は使わない）
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// DatabaseConfig は店舗データソースとして使うデータベースの設定
type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

// PostgresConfig はPostGISの店舗テーブルの設定
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Table    string `mapstructure:"table"`
}

// ElasticsearchConfig は店舗インデックスの設定
type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// CacheConfig はキャッシュの設定
type CacheConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig はジオコーディング結果のキャッシュ先
type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Address    string        `mapstructure:"address"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	GeocodeTTL time.Duration `mapstructure:"geocode_ttl"`
}

// FirestoreConfig はレポート保存先の設定（未設定ならメモリに保存）
type FirestoreConfig struct {
	ProjectID       string        `mapstructure:"project_id"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	Collection      string        `mapstructure:"collection"`
	ReportTTL       time.Duration `mapstructure:"report_ttl"`
}

// RateLimitConfig は実行単位のレート制限
type RateLimitConfig struct {
	MinInterval             time.Duration `mapstructure:"min_interval"`
	MaxPerWindow            int           `mapstructure:"max_per_window"`
	Window                  time.Duration `mapstructure:"window"`
	LargeSearchRadiusKm     float64       `mapstructure:"large_search_radius_km"`
	LargeSearchMinInterval  time.Duration `mapstructure:"large_search_min_interval"`
	LargeSearchMaxPerWindow int           `mapstructure:"large_search_max_per_window"`
}

// PipelineConfig は発見・距離確認ステージの設定
type PipelineConfig struct {
	DiscoveryConcurrency    int           `mapstructure:"discovery_concurrency"`
	VerificationConcurrency int           `mapstructure:"verification_concurrency"`
	CallTimeout             time.Duration `mapstructure:"call_timeout"`
	RetryAttempts           int           `mapstructure:"retry_attempts"`
	RetryBaseDelay          time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay           time.Duration `mapstructure:"retry_max_delay"`
	MatrixThreshold         int           `mapstructure:"matrix_threshold"`
	MatrixChunkSize         int           `mapstructure:"matrix_chunk_size"`
	ToleranceMeters         float64       `mapstructure:"tolerance_meters"`
	BiasRadiusMeters        float64       `mapstructure:"bias_radius_meters"`
}

// ValidationConfig は検証ステージの設定
type ValidationConfig struct {
	AIBatchSize       int           `mapstructure:"ai_batch_size"`
	AIConcurrency     int           `mapstructure:"ai_concurrency"`
	AICallTimeout     time.Duration `mapstructure:"ai_call_timeout"`
	FoodKeywords      []string      `mapstructure:"food_keywords"`
	ChainNames        []string      `mapstructure:"chain_names"`
	PostalCodePattern string        `mapstructure:"postal_code_pattern"`
}

// HasAI はAI判定が使えるか
func (c *Config) HasAI() bool {
	return c.Providers.Gemini.APIKey != ""
}

// HasFirestore はFirestoreにレポートを保存するか
func (c *Config) HasFirestore() bool {
	return c.Firestore.ProjectID != ""
}
