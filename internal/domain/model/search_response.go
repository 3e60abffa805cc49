package model

import "time"

// ReportSummary レスポンス・レポート共通の件数サマリ
type ReportSummary struct {
	Candidates      int            `json:"candidates" yaml:"candidates"`
	Accepted        int            `json:"accepted" yaml:"accepted"`
	Rejected        int            `json:"rejected" yaml:"rejected"`
	RejectedByStage map[string]int `json:"rejected_by_stage" yaml:"rejected_by_stage"`
	Cancelled       bool           `json:"cancelled" yaml:"cancelled"`
}

// Summary レポートから件数サマリを作成
func (r *PipelineReport) Summary() ReportSummary {
	byStage := make(map[string]int)
	for _, group := range r.RejectedByStage() {
		byStage[string(group.Stage)] = len(group.Venues)
	}
	return ReportSummary{
		Candidates:      len(r.Candidates),
		Accepted:        len(r.Accepted),
		Rejected:        len(r.Rejected),
		RejectedByStage: byStage,
		Cancelled:       r.Cancelled,
	}
}

// VenueSearchResponse POST /venues/search のレスポンス
type VenueSearchResponse struct {
	ReportID   string        `json:"report_id,omitempty"` // 保存に失敗した場合は空
	RunID      string        `json:"run_id"`
	Summary    ReportSummary `json:"summary"`
	Accepted   []*Venue      `json:"accepted"`
	Rejected   []*Venue      `json:"rejected"`
	Notes      []string      `json:"notes,omitempty"`
	ReportText string        `json:"report_text"`
}

// StoredReportResponse GET /venues/reports/:id のレスポンス
type StoredReportResponse struct {
	ReportID   string    `json:"report_id"`
	RunID      string    `json:"run_id"`
	ReportText string    `json:"report_text"`
	Accepted   int       `json:"accepted"`
	Rejected   int       `json:"rejected"`
	CreatedAt  time.Time `json:"created_at"`
	ExpireAt   time.Time `json:"expire_at"`
}

// ToResponse 保存済みレポートをレスポンス形式に変換
func (r *StoredReport) ToResponse() *StoredReportResponse {
	return &StoredReportResponse{
		ReportID:   r.ReportID,
		RunID:      r.RunID,
		ReportText: r.ReportText,
		Accepted:   r.Accepted,
		Rejected:   r.Rejected,
		CreatedAt:  r.CreatedAt,
		ExpireAt:   r.ExpireAt,
	}
}
