package repository

import (
	"context"
	"time"

	"LetHimCook-App/internal/domain/model"
)

// ReportRepository は実行レポートを有効期限付きで保存する
type ReportRepository interface {
	// Save はレポートを保存し、発行したレポートIDを設定して返す
	Save(ctx context.Context, report *model.StoredReport, ttl time.Duration) (*model.StoredReport, error)
	// Get は保存済みレポートを取得する。存在しない・期限切れの場合は model.ErrReportNotFound
	Get(ctx context.Context, reportID string) (*model.StoredReport, error)
}
