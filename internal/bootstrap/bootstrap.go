package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"LetHimCook-App/internal/config"
	"LetHimCook-App/internal/domain/helper"
	"LetHimCook-App/internal/domain/repository"
	"LetHimCook-App/internal/domain/service"
	"LetHimCook-App/internal/domain/strategy"
	"LetHimCook-App/internal/handler"
	"LetHimCook-App/internal/infrastructure/ai"
	"LetHimCook-App/internal/infrastructure/database"
	"LetHimCook-App/internal/infrastructure/firestore"
	"LetHimCook-App/internal/infrastructure/geocoding"
	"LetHimCook-App/internal/infrastructure/maps"
	"LetHimCook-App/internal/infrastructure/places"
	"LetHimCook-App/internal/infrastructure/ratelimit"
	repoImpl "LetHimCook-App/internal/repository"
	"LetHimCook-App/internal/usecase"
)

// healthCheck 依存先の疎通確認
type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// App 設定から組み立てたアプリケーション一式
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Router  *gin.Engine
	UseCase usecase.VenueSearchUseCase

	sources []string
	health  []healthCheck
	closers []func() error
}

// New は設定に従ってプロバイダ・サービス・ユースケース・ルーターを組み立てる
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{Config: cfg, Logger: logger}

	providers, err := app.venueSources(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	matrix, route := app.routing()
	geocoder := app.geocoder()

	judge, err := app.venueJudge(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	reports, err := app.reportRepository(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	pipeline, err := buildPipeline(cfg, providers, judge, matrix, route, geocoder, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.UseCase = usecase.NewVenueSearchUseCase(pipeline, usecase.NewReportRenderer(), reports, usecase.VenueSearchOptions{
		RunTimeout: cfg.Server.RunTimeout,
		ReportTTL:  cfg.Firestore.ReportTTL,
	}, logger)
	app.Router = app.newRouter()

	logger.Info("✅ アプリケーション初期化完了",
		zap.Strings("venue_sources", app.sources),
		zap.Bool("ai_validation", judge != nil),
		zap.Bool("matrix_routing", matrix != nil),
		zap.Bool("pairwise_routing", route != nil),
		zap.Bool("geocoding", geocoder != nil),
		zap.Bool("firestore_reports", cfg.HasFirestore()))
	return app, nil
}

// LimiterFactory は実行ごとに新しいレート制限を作る関数を返す
func LimiterFactory(cfg config.RateLimitConfig) service.LimiterFactory {
	rlCfg := ratelimit.Config{
		MinInterval:             cfg.MinInterval,
		MaxPerWindow:            cfg.MaxPerWindow,
		Window:                  cfg.Window,
		LargeSearchRadiusKm:     cfg.LargeSearchRadiusKm,
		LargeSearchMinInterval:  cfg.LargeSearchMinInterval,
		LargeSearchMaxPerWindow: cfg.LargeSearchMaxPerWindow,
	}
	return func(radiusKm float64) repository.RateLimiter {
		return ratelimit.NewForRadius(rlCfg, radiusKm)
	}
}

func retryPolicy(cfg config.PipelineConfig) helper.RetryPolicy {
	return helper.RetryPolicy{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
	}
}

// buildPipeline は3層のサービスを組み立てる（nilのプロバイダは使わない）
func buildPipeline(
	cfg *config.Config,
	providers []repository.VenueSearchProvider,
	judge repository.VenueJudgeProvider,
	matrix repository.MatrixRoutingProvider,
	route repository.RouteProvider,
	geocoder repository.Geocoder,
	logger *zap.Logger,
) (service.VenuePipelineService, error) {
	retry := retryPolicy(cfg.Pipeline)

	discovery := service.NewVenueDiscoveryService(providers, service.DiscoveryConfig{
		Concurrency: cfg.Pipeline.DiscoveryConcurrency,
		CallTimeout: cfg.Pipeline.CallTimeout,
		Retry:       retry,
	}, logger)

	validation := service.NewVenueValidationService(judge, cfg.Validation.FoodKeywords, strategy.AIBatchConfig{
		BatchSize:   cfg.Validation.AIBatchSize,
		Concurrency: cfg.Validation.AIConcurrency,
		CallTimeout: cfg.Validation.AICallTimeout,
		Retry:       retry,
	}, logger)

	verification, err := service.NewDistanceVerificationService(matrix, route, geocoder, service.VerificationConfig{
		MatrixThreshold:   cfg.Pipeline.MatrixThreshold,
		MatrixChunkSize:   cfg.Pipeline.MatrixChunkSize,
		Concurrency:       cfg.Pipeline.VerificationConcurrency,
		CallTimeout:       cfg.Pipeline.CallTimeout,
		Retry:             retry,
		ToleranceMeters:   cfg.Pipeline.ToleranceMeters,
		BiasRadiusMeters:  cfg.Pipeline.BiasRadiusMeters,
		ChainNames:        cfg.Validation.ChainNames,
		PostalCodePattern: cfg.Validation.PostalCodePattern,
	}, logger)
	if err != nil {
		return nil, err
	}

	return service.NewVenuePipelineService(
		service.NewGridSearchPlanner(),
		service.NewOriginResolver(geocoder, cfg.Pipeline.CallTimeout, retry, logger),
		discovery,
		validation,
		verification,
		LimiterFactory(cfg.RateLimit),
		logger,
	), nil
}

// venueSources は有効な店舗検索ソースを作成する
func (a *App) venueSources(ctx context.Context) ([]repository.VenueSearchProvider, error) {
	cfg := a.Config
	timeout := cfg.Providers.Timeout
	var providers []repository.VenueSearchProvider

	if p := cfg.Providers.Foursquare; p.Enabled {
		providers = append(providers, places.NewFoursquareProvider(p.APIKey, p.BaseURL, timeout))
	}
	if g := cfg.Providers.Google; g.PlacesEnabled {
		providers = append(providers, places.NewGooglePlacesProvider(g.APIKey, g.PlacesBaseURL, timeout))
	}
	if o := cfg.Providers.Overpass; o.Enabled {
		providers = append(providers, places.NewOverpassProvider(o.BaseURL, cfg.Providers.Nominatim.UserAgent, timeout))
	}

	if pg := cfg.Database.Postgres; pg.Enabled {
		client, err := database.NewPostgreSQLClient(ctx, pg)
		if err != nil {
			return nil, fmt.Errorf("PostgreSQL初期化失敗: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.health = append(a.health, healthCheck{name: "postgres", check: client.HealthCheck})
		providers = append(providers, repoImpl.NewPostgresVenueRepository(client, pg.Table))
	}
	if es := cfg.Database.Elasticsearch; es.Enabled {
		client, err := database.NewElasticsearchClient(es)
		if err != nil {
			return nil, fmt.Errorf("Elasticsearch初期化失敗: %w", err)
		}
		a.health = append(a.health, healthCheck{name: "elasticsearch", check: client.HealthCheck})
		providers = append(providers, repoImpl.NewElasticsearchVenueRepository(client.Client, client.Index))
	}

	for _, p := range providers {
		a.sources = append(a.sources, p.Name())
	}
	return providers, nil
}

// routing は距離行列と2地点経路のプロバイダを選ぶ
// 2地点経路はGoogle Directionsを優先し、なければOSRMを使う
func (a *App) routing() (repository.MatrixRoutingProvider, repository.RouteProvider) {
	cfg := a.Config.Providers
	var matrix repository.MatrixRoutingProvider
	var route repository.RouteProvider

	if cfg.OSRM.Enabled {
		osrm := maps.NewOSRMProvider(cfg.OSRM.BaseURL, cfg.OSRM.Profile, cfg.Timeout)
		matrix = osrm
		route = osrm
	}
	if cfg.Google.DirectionsEnabled {
		route = maps.NewGoogleDirectionsProvider(cfg.Google.APIKey, cfg.Google.DirectionsBaseURL, cfg.Timeout)
	}
	return matrix, route
}

// geocoder は住所補正用のジオコーダを作る（Redisが有効ならキャッシュを挟む）
func (a *App) geocoder() repository.Geocoder {
	cfg := a.Config
	if !cfg.Providers.Nominatim.Enabled {
		return nil
	}
	n := cfg.Providers.Nominatim
	var geocoder repository.Geocoder = geocoding.NewNominatimGeocoder(n.BaseURL, n.UserAgent, n.CountryCodes, cfg.Providers.Timeout)

	if r := cfg.Cache.Redis; r.Enabled {
		client := database.NewRedisClient(r)
		a.closers = append(a.closers, client.Close)
		a.health = append(a.health, healthCheck{name: "redis", check: client.HealthCheck})
		geocoder = geocoding.NewCachedGeocoder(geocoder, client.Client, r.GeocodeTTL, a.Logger)
	}
	return geocoder
}

// venueJudge はAPIキーがある場合のみGeminiの判定プロバイダを作る
func (a *App) venueJudge(ctx context.Context) (repository.VenueJudgeProvider, error) {
	if !a.Config.HasAI() {
		a.Logger.Info("ℹ️ Gemini APIキー未設定: AI判定は無効（autoはルールベースになります）")
		return nil, nil
	}
	g := a.Config.Providers.Gemini
	client, err := ai.NewGeminiClient(ctx, ai.GeminiOptions{APIKey: g.APIKey, Model: g.Model, BaseURL: g.BaseURL})
	if err != nil {
		return nil, fmt.Errorf("Geminiクライアント初期化失敗: %w", err)
	}
	return ai.NewGeminiVenueJudge(client, a.Logger), nil
}

// reportRepository はレポートの保存先を選ぶ
func (a *App) reportRepository(ctx context.Context) (repository.ReportRepository, error) {
	cfg := a.Config.Firestore
	if !a.Config.HasFirestore() {
		a.Logger.Info("ℹ️ Firestore未設定: レポートはメモリに保存します")
		return repoImpl.NewMemoryReportRepository(), nil
	}
	client, err := firestore.NewFirestoreClient(ctx, cfg, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("Firestore初期化失敗: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	return repoImpl.NewFirestoreReportRepository(client.GetClient(), cfg.Collection, a.Logger), nil
}

// newRouter はginのルーターを作る
func (a *App) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(a.Logger))

	r.GET("/health", a.healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.NewVenueSearchHandler(a.UseCase).RegisterRoutes(r)
	return r
}

// healthHandler は依存先の疎通を確認する
// GET /health
func (a *App) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}
	for _, h := range a.health {
		if err := h.check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[h.name] = err.Error()
			continue
		}
		checks[h.name] = "ok"
	}
	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":        state,
		"service":       "LetHimCook-App",
		"venue_sources": a.sources,
		"checks":        checks,
	})
}

// requestLogger はリクエストごとのアクセスログを出す
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Info("📨 リクエスト",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(started)))
	}
}

// Close は開いた接続をすべて閉じる
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
