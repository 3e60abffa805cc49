package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
)

// MemoryReportRepository Firestoreを使わない環境向けのプロセス内レポート保存先
type MemoryReportRepository struct {
	mu      sync.RWMutex
	reports map[string]model.StoredReport
	now     func() time.Time
}

func NewMemoryReportRepository() repository.ReportRepository {
	return newMemoryReportRepository(time.Now)
}

func newMemoryReportRepository(now func() time.Time) *MemoryReportRepository {
	return &MemoryReportRepository{
		reports: make(map[string]model.StoredReport),
		now:     now,
	}
}

func (r *MemoryReportRepository) Save(ctx context.Context, report *model.StoredReport, ttl time.Duration) (*model.StoredReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	saved := *report
	saved.ReportID = newReportID()
	saved.CreatedAt = r.now()
	saved.ExpireAt = saved.CreatedAt.Add(ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictExpired()
	r.reports[saved.ReportID] = saved
	return &saved, nil
}

func (r *MemoryReportRepository) Get(ctx context.Context, reportID string) (*model.StoredReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	report, ok := r.reports[reportID]
	r.mu.RUnlock()
	if !ok || !r.now().Before(report.ExpireAt) {
		return nil, fmt.Errorf("%w: %s", model.ErrReportNotFound, reportID)
	}
	return &report, nil
}

// evictExpired 期限切れのレポートを削除する（ロック取得済みで呼ぶ）
func (r *MemoryReportRepository) evictExpired() {
	now := r.now()
	for id, report := range r.reports {
		if !now.Before(report.ExpireAt) {
			delete(r.reports, id)
		}
	}
}
