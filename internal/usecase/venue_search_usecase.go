package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
	"LetHimCook-App/internal/domain/service"
	"LetHimCook-App/internal/metrics"
)

// reportSaveTimeout キャンセル後もレポートを保存できるよう、保存は呼び出し元と切り離して行う
const reportSaveTimeout = 10 * time.Second

type VenueSearchUseCase interface {
	// Search はパイプラインを実行し、レポートを保存してレスポンスを返す
	// キャンセル時は途中までのレスポンスとctx.Err()を両方返す
	Search(ctx context.Context, req *model.VenueSearchRequest) (*model.VenueSearchResponse, error)

	// GetReport は保存済みのレポートを取得する
	GetReport(ctx context.Context, reportID string) (*model.StoredReport, error)
}

// VenueSearchOptions ユースケースの実行設定
type VenueSearchOptions struct {
	RunTimeout time.Duration // 0なら上限なし
	ReportTTL  time.Duration
}

type venueSearchUseCaseImpl struct {
	pipeline service.VenuePipelineService
	renderer ReportRenderer
	reports  repository.ReportRepository
	opts     VenueSearchOptions
	logger   *zap.Logger
}

// NewVenueSearchUseCase は新しいVenueSearchUseCaseインスタンスを作成
func NewVenueSearchUseCase(
	pipeline service.VenuePipelineService,
	renderer ReportRenderer,
	reports repository.ReportRepository,
	opts VenueSearchOptions,
	logger *zap.Logger,
) VenueSearchUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ReportTTL <= 0 {
		opts.ReportTTL = 24 * time.Hour
	}
	return &venueSearchUseCaseImpl{
		pipeline: pipeline,
		renderer: renderer,
		reports:  reports,
		opts:     opts,
		logger:   logger,
	}
}

func (u *venueSearchUseCaseImpl) Search(ctx context.Context, req *model.VenueSearchRequest) (*model.VenueSearchResponse, error) {
	if u.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.opts.RunTimeout)
		defer cancel()
	}

	report, runErr := u.pipeline.Run(ctx, req)
	if report == nil {
		metrics.ObserveFailure()
		if runErr == nil {
			runErr = errors.New("パイプラインがレポートを返しませんでした")
		}
		return nil, runErr
	}
	metrics.ObserveReport(report)

	text, err := u.renderer.Render(report)
	if err != nil {
		return nil, fmt.Errorf("レポートの作成に失敗: %w", err)
	}

	resp := &model.VenueSearchResponse{
		RunID:      report.RunID,
		Summary:    report.Summary(),
		Accepted:   report.Accepted,
		Rejected:   report.Rejected,
		Notes:      report.Notes,
		ReportText: string(text),
	}
	if resp.Accepted == nil {
		resp.Accepted = []*model.Venue{}
	}
	if resp.Rejected == nil {
		resp.Rejected = []*model.Venue{}
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportSaveTimeout)
	defer cancel()
	stored, err := u.reports.Save(saveCtx, &model.StoredReport{
		RunID:      report.RunID,
		ReportText: resp.ReportText,
		Accepted:   len(report.Accepted),
		Rejected:   len(report.Rejected),
	}, u.opts.ReportTTL)
	if err != nil {
		// 保存に失敗しても結果自体は返す
		u.logger.Warn("⚠️ レポートの保存に失敗（レスポンスのみ返却）", zap.String("run_id", report.RunID), zap.Error(err))
	} else {
		resp.ReportID = stored.ReportID
	}

	return resp, runErr
}

func (u *venueSearchUseCaseImpl) GetReport(ctx context.Context, reportID string) (*model.StoredReport, error) {
	report, err := u.reports.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	u.logger.Info("✅ レポート取得", zap.String("report_id", reportID))
	return report, nil
}
