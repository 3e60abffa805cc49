package model

import (
	"errors"
	"time"
)

// ErrReportNotFound 保存済みレポートが存在しない（期限切れを含む）
var ErrReportNotFound = errors.New("レポートが見つかりません")

// DiscoveryStats Layer 1 の集計
type DiscoveryStats struct {
	GridPoints     int            `json:"grid_points" yaml:"grid_points"`
	Queries        int            `json:"queries" yaml:"queries"` // グリッド点 × 検索ソース
	QueriesFailed  int            `json:"queries_failed" yaml:"queries_failed"`
	PointsFailed   int            `json:"points_failed" yaml:"points_failed"` // 全ソースが失敗したグリッド点
	RawRecords     int            `json:"raw_records" yaml:"raw_records"`
	Duplicates     int            `json:"duplicates" yaml:"duplicates"`
	OutOfRadius    int            `json:"out_of_radius" yaml:"out_of_radius"`
	InvalidRecords int            `json:"invalid_records" yaml:"invalid_records"`
	Unique         int            `json:"unique" yaml:"unique"`
	PerSource      map[string]int `json:"per_source" yaml:"per_source"` // ソースごとの生レコード数
}

// ValidationStats Layer 2 の集計
type ValidationStats struct {
	Strategy  string `json:"strategy" yaml:"strategy"`
	Evaluated int    `json:"evaluated" yaml:"evaluated"`
	Accepted  int    `json:"accepted" yaml:"accepted"`
	Rejected  int    `json:"rejected" yaml:"rejected"`
	FailOpen  int    `json:"fail_open" yaml:"fail_open"`
}

// VerificationStats Layer 3 の集計
type VerificationStats struct {
	Evaluated          int            `json:"evaluated" yaml:"evaluated"`
	Accepted           int            `json:"accepted" yaml:"accepted"`
	Rejected           int            `json:"rejected" yaml:"rejected"`
	DistanceSources    map[string]int `json:"distance_sources" yaml:"distance_sources"`
	RefinementFailures int            `json:"refinement_failures" yaml:"refinement_failures"`
}

// StageDuration ステージごとの所要時間
type StageDuration struct {
	Stage    Stage         `json:"stage" yaml:"stage"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// RunStats 実行全体の統計
type RunStats struct {
	Discovery      DiscoveryStats    `json:"discovery" yaml:"discovery"`
	Validation     ValidationStats   `json:"validation" yaml:"validation"`
	Verification   VerificationStats `json:"verification" yaml:"verification"`
	StageDurations []StageDuration   `json:"stage_durations" yaml:"stage_durations"`
	Requests       map[string]int    `json:"requests" yaml:"requests"` // リクエスト種別ごとの外部呼び出し数
}

// PipelineReport パイプライン1回分の結果（監査用の全情報を含む）
type PipelineReport struct {
	RunID           string     `json:"run_id" yaml:"run_id"`
	Origin          LatLng     `json:"origin" yaml:"origin"`
	OriginAddress   string     `json:"origin_address,omitempty" yaml:"origin_address,omitempty"` // 住所から解決した場合のみ
	RadiusKm        float64    `json:"radius_km" yaml:"radius_km"`
	Cuisine         string     `json:"cuisine,omitempty" yaml:"cuisine,omitempty"`
	Strategy        string     `json:"strategy" yaml:"strategy"`
	Grid            *GridPlan  `json:"grid,omitempty" yaml:"grid,omitempty"`
	StartedAt       time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt      time.Time  `json:"finished_at" yaml:"finished_at"`
	CompletedStages []Stage    `json:"completed_stages" yaml:"completed_stages"`
	Cancelled       bool       `json:"cancelled" yaml:"cancelled"`
	Candidates      []*Venue   `json:"candidates" yaml:"candidates"` // Layer 1 完了時点の候補（スナップショット）
	Accepted        []*Venue   `json:"accepted" yaml:"accepted"`
	Rejected        []*Venue   `json:"rejected" yaml:"rejected"`
	Stats           RunStats   `json:"stats" yaml:"stats"`
	Notes           []string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// AddNote レポートに注記を追加
func (r *PipelineReport) AddNote(note string) {
	r.Notes = append(r.Notes, note)
}

// MarkStageCompleted ステージの完了と所要時間を記録
func (r *PipelineReport) MarkStageCompleted(stage Stage, d time.Duration) {
	r.CompletedStages = append(r.CompletedStages, stage)
	r.Stats.StageDurations = append(r.Stats.StageDurations, StageDuration{Stage: stage, Duration: d})
}

// HasCompleted 指定ステージが完了済みか
func (r *PipelineReport) HasCompleted(stage Stage) bool {
	for _, s := range r.CompletedStages {
		if s == stage {
			return true
		}
	}
	return false
}

// RejectedByStage 除外された店舗をステージごとに分類（パイプライン順）
func (r *PipelineReport) RejectedByStage() []StageRejections {
	var groups []StageRejections
	for _, stage := range PipelineStages() {
		var venues []*Venue
		for _, v := range r.Rejected {
			if v.Rejection != nil && v.Rejection.Stage == stage {
				venues = append(venues, v)
			}
		}
		if len(venues) > 0 {
			groups = append(groups, StageRejections{Stage: stage, Venues: venues})
		}
	}
	return groups
}

// StageRejections あるステージで除外された店舗群
type StageRejections struct {
	Stage  Stage    `json:"stage" yaml:"stage"`
	Venues []*Venue `json:"venues" yaml:"venues"`
}
