package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"LetHimCook-App/internal/domain/model"
)

// legacyEnv は従来から使っている環境変数名
var legacyEnv = map[string][]string{
	"server.port":                  {"PORT"},
	"providers.google.api_key":     {"GOOGLE_MAPS_API_KEY", "GOOGLE_API_KEY"},
	"providers.gemini.api_key":     {"GEMINI_API_KEY"},
	"providers.foursquare.api_key": {"FOURSQUARE_API_KEY"},
	"firestore.project_id":         {"FIRESTORE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"},
	"firestore.credentials_file":   {"GOOGLE_APPLICATION_CREDENTIALS"},
	"cache.redis.address":          {"REDIS_ADDR"},
	"database.postgres.dsn":        {"DATABASE_URL"},
}

// Load は.env・設定ファイル・環境変数の順に読み込んで設定を返す
// configFileが空の場合はカレントディレクトリとconfigs/からconfig.yamlを探す
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️ .envファイルが見つかりません。システム環境変数を使用します")
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envs := append([]string{strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("環境変数の設定に失敗 (%s): %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の変換に失敗: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.run_timeout", 3*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("providers.timeout", 15*time.Second)
	v.SetDefault("providers.foursquare.enabled", true)
	v.SetDefault("providers.foursquare.api_key", "")
	v.SetDefault("providers.foursquare.base_url", "")
	v.SetDefault("providers.google.api_key", "")
	v.SetDefault("providers.google.places_enabled", false)
	v.SetDefault("providers.google.places_base_url", "")
	v.SetDefault("providers.google.directions_enabled", false)
	v.SetDefault("providers.google.directions_base_url", "")
	v.SetDefault("providers.overpass.enabled", true)
	v.SetDefault("providers.overpass.base_url", "")
	v.SetDefault("providers.osrm.enabled", true)
	v.SetDefault("providers.osrm.base_url", "")
	v.SetDefault("providers.osrm.profile", "driving")
	v.SetDefault("providers.nominatim.enabled", true)
	v.SetDefault("providers.nominatim.base_url", "")
	v.SetDefault("providers.nominatim.user_agent", "LetHimCook/1.0")
	v.SetDefault("providers.nominatim.country_codes", "")
	v.SetDefault("providers.gemini.api_key", "")
	v.SetDefault("providers.gemini.model", "gemini-2.5-flash")
	v.SetDefault("providers.gemini.base_url", "")

	v.SetDefault("database.postgres.enabled", false)
	v.SetDefault("database.postgres.dsn", "")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "postgres")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.table", "venues")
	v.SetDefault("database.elasticsearch.enabled", false)
	v.SetDefault("database.elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("database.elasticsearch.username", "")
	v.SetDefault("database.elasticsearch.password", "")
	v.SetDefault("database.elasticsearch.index", "venues")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.geocode_ttl", 24*time.Hour)

	v.SetDefault("firestore.project_id", "")
	v.SetDefault("firestore.credentials_file", "")
	v.SetDefault("firestore.collection", "venueReports")
	v.SetDefault("firestore.report_ttl", 24*time.Hour)

	v.SetDefault("ratelimit.min_interval", 100*time.Millisecond)
	v.SetDefault("ratelimit.max_per_window", 8)
	v.SetDefault("ratelimit.window", time.Second)
	v.SetDefault("ratelimit.large_search_radius_km", 10.0)
	v.SetDefault("ratelimit.large_search_min_interval", 150*time.Millisecond)
	v.SetDefault("ratelimit.large_search_max_per_window", 5)

	v.SetDefault("pipeline.discovery_concurrency", 4)
	v.SetDefault("pipeline.verification_concurrency", 4)
	v.SetDefault("pipeline.call_timeout", 15*time.Second)
	v.SetDefault("pipeline.retry_attempts", 3)
	v.SetDefault("pipeline.retry_base_delay", 500*time.Millisecond)
	v.SetDefault("pipeline.retry_max_delay", 4*time.Second)
	v.SetDefault("pipeline.matrix_threshold", 5)
	v.SetDefault("pipeline.matrix_chunk_size", 50)
	v.SetDefault("pipeline.tolerance_meters", 25.0)
	v.SetDefault("pipeline.bias_radius_meters", 300.0)

	v.SetDefault("validation.ai_batch_size", 10)
	v.SetDefault("validation.ai_concurrency", 2)
	v.SetDefault("validation.ai_call_timeout", 60*time.Second)
	v.SetDefault("validation.food_keywords", model.DefaultFoodKeywords)
	v.SetDefault("validation.chain_names", model.DefaultChainNames)
	v.SetDefault("validation.postal_code_pattern", model.DefaultPostalCodePattern)
}

// Validate は起動前の設定チェック
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return &model.ConfigurationError{Field: "server.port", Message: "ポート番号が設定されていません"}
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return &model.ConfigurationError{Field: "logging.format", Message: fmt.Sprintf("consoleまたはjsonを指定してください: %s", c.Logging.Format)}
	}

	if c.Providers.Foursquare.Enabled && c.Providers.Foursquare.APIKey == "" {
		return &model.ConfigurationError{Field: "providers.foursquare.api_key", Message: "Foursquareを使う場合はAPIキーが必要です"}
	}
	if (c.Providers.Google.PlacesEnabled || c.Providers.Google.DirectionsEnabled) && c.Providers.Google.APIKey == "" {
		return &model.ConfigurationError{Field: "providers.google.api_key", Message: "Google APIを使う場合はAPIキーが必要です"}
	}
	if c.VenueSourceCount() == 0 {
		return &model.ConfigurationError{Field: "providers", Message: "店舗検索のデータソースが1つも有効になっていません"}
	}
	if c.Database.Elasticsearch.Enabled && len(c.Database.Elasticsearch.Addresses) == 0 {
		return &model.ConfigurationError{Field: "database.elasticsearch.addresses", Message: "Elasticsearchのアドレスが必要です"}
	}

	r := c.RateLimit
	if r.MinInterval < 0 || r.LargeSearchMinInterval < 0 {
		return &model.ConfigurationError{Field: "ratelimit.min_interval", Message: "最小間隔は0以上を指定してください"}
	}
	if r.MaxPerWindow < 1 || r.LargeSearchMaxPerWindow < 1 || r.Window <= 0 {
		return &model.ConfigurationError{Field: "ratelimit.max_per_window", Message: "ウィンドウあたりの上限とウィンドウ幅は正の値を指定してください"}
	}

	p := c.Pipeline
	if p.DiscoveryConcurrency < 1 || p.VerificationConcurrency < 1 || c.Validation.AIConcurrency < 1 {
		return &model.ConfigurationError{Field: "pipeline.concurrency", Message: "同時実行数は1以上を指定してください"}
	}
	if p.CallTimeout <= 0 || c.Validation.AICallTimeout <= 0 {
		return &model.ConfigurationError{Field: "pipeline.call_timeout", Message: "タイムアウトは正の値を指定してください"}
	}
	if p.MatrixChunkSize < 1 || c.Validation.AIBatchSize < 1 {
		return &model.ConfigurationError{Field: "pipeline.batch_size", Message: "バッチサイズは1以上を指定してください"}
	}
	return nil
}

// VenueSourceCount は有効な店舗検索データソースの数
func (c *Config) VenueSourceCount() int {
	n := 0
	for _, enabled := range []bool{
		c.Providers.Foursquare.Enabled,
		c.Providers.Google.PlacesEnabled,
		c.Providers.Overpass.Enabled,
		c.Database.Postgres.Enabled,
		c.Database.Elasticsearch.Enabled,
	} {
		if enabled {
			n++
		}
	}
	return n
}
