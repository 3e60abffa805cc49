package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
)

// DefaultReportCollection レポートを保存するコレクション名
const DefaultReportCollection = "venueReports"

// FirestoreReportRepository Firestoreを使用した実行レポートの保存先
type FirestoreReportRepository struct {
	client     *firestore.Client
	collection string
	logger     *zap.Logger
	now        func() time.Time
}

// NewFirestoreReportRepository 新しいFirestoreReportRepositoryインスタンスを作成
func NewFirestoreReportRepository(client *firestore.Client, collection string, logger *zap.Logger) repository.ReportRepository {
	if collection == "" {
		collection = DefaultReportCollection
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FirestoreReportRepository{
		client:     client,
		collection: collection,
		logger:     logger,
		now:        time.Now,
	}
}

// newReportID レポートIDを発行する
func newReportID() string {
	return fmt.Sprintf("rep_%s", uuid.New().String())
}

// Save はレポートをFirestoreに保存し、report_idを発行して返す
// expireAtフィールドにTTLポリシーを設定しておくと期限切れのドキュメントは自動削除される
func (r *FirestoreReportRepository) Save(ctx context.Context, report *model.StoredReport, ttl time.Duration) (*model.StoredReport, error) {
	saved := *report
	saved.ReportID = newReportID()
	saved.CreatedAt = r.now()
	saved.ExpireAt = saved.CreatedAt.Add(ttl)

	if _, err := r.client.Collection(r.collection).Doc(saved.ReportID).Set(ctx, saved.ToFirestoreVenueReport()); err != nil {
		r.logger.Error("❌ レポートの保存に失敗", zap.String("report_id", saved.ReportID), zap.Error(err))
		return nil, fmt.Errorf("レポートの保存に失敗しました: %w", err)
	}

	r.logger.Info("✅ レポート保存完了", zap.String("report_id", saved.ReportID), zap.Duration("ttl", ttl))
	return &saved, nil
}

// Get は指定されたreport_idのレポートをFirestoreから取得する
func (r *FirestoreReportRepository) Get(ctx context.Context, reportID string) (*model.StoredReport, error) {
	doc, err := r.client.Collection(r.collection).Doc(reportID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", model.ErrReportNotFound, reportID)
		}
		return nil, fmt.Errorf("レポートの取得に失敗しました: %w", err)
	}

	var data model.FirestoreVenueReport
	if err := doc.DataTo(&data); err != nil {
		return nil, fmt.Errorf("データの変換に失敗しました: %w", err)
	}

	// TTLによる削除は遅延するため、期限切れは見つからない扱いにする
	if !data.ExpireAt.IsZero() && !r.now().Before(data.ExpireAt) {
		return nil, fmt.Errorf("%w（有効期限切れ）: %s", model.ErrReportNotFound, reportID)
	}
	return data.ToStoredReport(reportID), nil
}

// isNotFound Firestoreのエラーがドキュメント未存在を示すか
func isNotFound(err error) bool {
	status := err.Error()
	return strings.Contains(status, "NotFound") || strings.Contains(status, "not found")
}
