package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"LetHimCook-App/internal/bootstrap"
	"LetHimCook-App/internal/config"
	"LetHimCook-App/internal/logger"
)

func main() {
	configFile := flag.String("config", "", "設定ファイルのパス（未指定なら ./config.yaml を探す）")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ 設定の読み込みに失敗: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	if cfg.Logging.Format == "json" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("❌ アプリケーションの初期化に失敗", zap.Error(err))
	}
	defer app.Close()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: app.Router,
	}

	go func() {
		log.Info("🚀 LetHimCook-App サーバー起動", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ サーバーの起動に失敗", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("🛑 シャットダウン開始")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("⚠️ シャットダウンがタイムアウトしました", zap.Error(err))
	}
	log.Info("👋 サーバー停止")
}
