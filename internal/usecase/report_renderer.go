package usecase

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"gopkg.in/yaml.v3"

	"LetHimCook-App/internal/domain/model"
)

// ReportRenderer は実行レポートを人が読める構造化テキストに変換する
type ReportRenderer interface {
	Render(report *model.PipelineReport) ([]byte, error)
}

type yamlReportRenderer struct{}

// NewReportRenderer はYAML形式のレンダラーを作成
// 同じレポートからは常に同じ出力になる
func NewReportRenderer() ReportRenderer {
	return &yamlReportRenderer{}
}

type reportDocument struct {
	Run        runSection       `yaml:"run"`
	Summary    summarySection   `yaml:"summary"`
	Accepted   []acceptedEntry  `yaml:"accepted"`
	Rejected   []rejectedGroup  `yaml:"rejected"`
	Candidates []candidateEntry `yaml:"candidates"`
}

type runSection struct {
	RunID           string   `yaml:"run_id"`
	Origin          string   `yaml:"origin"`
	OriginAddress   string   `yaml:"origin_address,omitempty"`
	RadiusKm        float64  `yaml:"radius_km"`
	Cuisine         string   `yaml:"cuisine,omitempty"`
	Strategy        string   `yaml:"strategy"`
	GridPoints      int      `yaml:"grid_points"`
	GridSpacingM    float64  `yaml:"grid_spacing_m,omitempty"`
	StartedAt       string   `yaml:"started_at"`
	FinishedAt      string   `yaml:"finished_at"`
	CompletedStages []string `yaml:"completed_stages"`
	Cancelled       bool     `yaml:"cancelled"`
	Notes           []string `yaml:"notes,omitempty"`
}

type summarySection struct {
	model.ReportSummary `yaml:",inline"`
	Stats               model.RunStats `yaml:"stats"`
}

type validationDetail struct {
	Status                string `yaml:"status"`
	OperationalConfidence int    `yaml:"operational_confidence"`
	AddressQuality        int    `yaml:"address_quality"`
	Rationale             string `yaml:"rationale,omitempty"`
	FailOpen              bool   `yaml:"fail_open,omitempty"`
}

type verificationDetail struct {
	RoutedDistanceM       float64  `yaml:"routed_distance_m"`
	StraightLineDistanceM float64  `yaml:"straight_line_distance_m"`
	DeltaPercent          float64  `yaml:"delta_percent"`
	DistanceSource        string   `yaml:"distance_source"`
	RefinedCoordinates    string   `yaml:"refined_coordinates"`
	RefinedAddress        string   `yaml:"refined_address,omitempty"`
	Confidence            float64  `yaml:"confidence"`
	Notes                 []string `yaml:"notes,omitempty"`
}

type acceptedEntry struct {
	ID           string              `yaml:"id"`
	Name         string              `yaml:"name"`
	Source       string              `yaml:"source"`
	Categories   []string            `yaml:"categories,omitempty"`
	Address      string              `yaml:"address,omitempty"`
	Coordinates  string              `yaml:"coordinates"`
	Validation   *validationDetail   `yaml:"validation,omitempty"`
	Verification *verificationDetail `yaml:"verification,omitempty"`
}

type rejectedEntry struct {
	ID                    string            `yaml:"id"`
	Name                  string            `yaml:"name"`
	Reason                string            `yaml:"reason"`
	StraightLineDistanceM float64           `yaml:"straight_line_distance_m"`
	RoutedDistanceM       *float64          `yaml:"routed_distance_m,omitempty"`
	Validation            *validationDetail `yaml:"validation,omitempty"`
}

type rejectedGroup struct {
	Stage  string          `yaml:"stage"`
	Venues []rejectedEntry `yaml:"venues"`
}

type candidateEntry struct {
	ID                    string  `yaml:"id"`
	Name                  string  `yaml:"name"`
	Source                string  `yaml:"source"`
	Coordinates           string  `yaml:"coordinates"`
	StraightLineDistanceM float64 `yaml:"straight_line_distance_m"`
}

// Render はレポートをYAMLに変換する
func (r *yamlReportRenderer) Render(report *model.PipelineReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("レポートがnilです")
	}
	doc := reportDocument{
		Run:        buildRunSection(report),
		Summary:    summarySection{ReportSummary: report.Summary(), Stats: report.Stats},
		Accepted:   make([]acceptedEntry, 0, len(report.Accepted)),
		Rejected:   make([]rejectedGroup, 0),
		Candidates: make([]candidateEntry, 0, len(report.Candidates)),
	}
	for _, v := range report.Accepted {
		doc.Accepted = append(doc.Accepted, acceptedEntry{
			ID:           v.ID,
			Name:         v.Name,
			Source:       v.Source,
			Categories:   v.Categories,
			Address:      v.Address,
			Coordinates:  v.Coordinates.String(),
			Validation:   toValidationDetail(v.Validation),
			Verification: toVerificationDetail(v.Verification),
		})
	}
	for _, group := range report.RejectedByStage() {
		g := rejectedGroup{Stage: string(group.Stage)}
		for _, v := range group.Venues {
			entry := rejectedEntry{
				ID:                    v.ID,
				Name:                  v.Name,
				Reason:                v.Rejection.Reason,
				StraightLineDistanceM: round1(v.StraightLineDistanceMeters),
				Validation:            toValidationDetail(v.Validation),
			}
			if d, ok := v.RoutedDistance(); ok {
				d = round1(d)
				entry.RoutedDistanceM = &d
			}
			g.Venues = append(g.Venues, entry)
		}
		doc.Rejected = append(doc.Rejected, g)
	}
	for _, v := range report.Candidates {
		doc.Candidates = append(doc.Candidates, candidateEntry{
			ID:                    v.ID,
			Name:                  v.Name,
			Source:                v.Source,
			Coordinates:           v.Coordinates.String(),
			StraightLineDistanceM: round1(v.StraightLineDistanceMeters),
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("レポートのYAML変換に失敗: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("レポートのYAML変換に失敗: %w", err)
	}
	return buf.Bytes(), nil
}

func buildRunSection(report *model.PipelineReport) runSection {
	stages := make([]string, 0, len(report.CompletedStages))
	for _, s := range report.CompletedStages {
		stages = append(stages, string(s))
	}
	run := runSection{
		RunID:           report.RunID,
		Origin:          report.Origin.String(),
		OriginAddress:   report.OriginAddress,
		RadiusKm:        report.RadiusKm,
		Cuisine:         report.Cuisine,
		Strategy:        report.Strategy,
		StartedAt:       formatTime(report.StartedAt),
		FinishedAt:      formatTime(report.FinishedAt),
		CompletedStages: stages,
		Cancelled:       report.Cancelled,
		Notes:           report.Notes,
	}
	if report.Grid != nil {
		run.GridPoints = len(report.Grid.Points)
		run.GridSpacingM = report.Grid.EffectiveSpacingMeters
	}
	return run
}

func toValidationDetail(v *model.ValidationResult) *validationDetail {
	if v == nil {
		return nil
	}
	return &validationDetail{
		Status:                string(v.Status),
		OperationalConfidence: v.OperationalConfidence,
		AddressQuality:        v.AddressQuality,
		Rationale:             v.Rationale,
		FailOpen:              v.FailOpen,
	}
}

func toVerificationDetail(v *model.VerificationResult) *verificationDetail {
	if v == nil {
		return nil
	}
	return &verificationDetail{
		RoutedDistanceM:       round1(v.RoutedDistanceMeters),
		StraightLineDistanceM: round1(v.StraightLineDistanceMeters),
		DeltaPercent:          round1(v.DeltaPercent),
		DistanceSource:        v.DistanceSource,
		RefinedCoordinates:    v.RefinedCoordinates.String(),
		RefinedAddress:        v.RefinedAddress,
		Confidence:            v.Confidence,
		Notes:                 v.Notes,
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
