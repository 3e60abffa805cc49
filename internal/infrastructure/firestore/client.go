package firestore

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"LetHimCook-App/internal/config"
)

type FirestoreClient struct {
	client *firestore.Client
}

// IsCloudRun Cloud Run上で動作しているか
func IsCloudRun() bool {
	return os.Getenv("K_SERVICE") != ""
}

// clientOptions 認証方法を決める（Cloud Runではデフォルト認証、ローカルでは認証ファイルがあれば使う）
func clientOptions(cfg config.FirestoreConfig, logger *zap.Logger) []option.ClientOption {
	if IsCloudRun() {
		logger.Info("☁️ Cloud Run環境: デフォルト認証を使用")
		return nil
	}
	if cfg.CredentialsFile == "" {
		logger.Info("🔑 認証ファイル未指定: デフォルト認証を使用")
		return nil
	}
	if _, err := os.Stat(cfg.CredentialsFile); err != nil {
		logger.Warn("⚠️ 認証ファイルが見つかりません。デフォルト認証を試します", zap.String("file", cfg.CredentialsFile))
		return nil
	}
	logger.Info("📄 認証ファイルを使用", zap.String("file", cfg.CredentialsFile))
	return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
}

func NewFirestoreClient(ctx context.Context, cfg config.FirestoreConfig, logger *zap.Logger) (*FirestoreClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("FirestoreのプロジェクトIDが設定されていません")
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, clientOptions(cfg, logger)...)
	if err != nil {
		return nil, fmt.Errorf("Firestoreクライアントの作成に失敗: %w", err)
	}
	logger.Info("✅ Firestoreクライアント初期化完了", zap.String("project", cfg.ProjectID))
	return &FirestoreClient{client: client}, nil
}

func (fc *FirestoreClient) Close() error {
	return fc.client.Close()
}

func (fc *FirestoreClient) GetClient() *firestore.Client {
	return fc.client
}
