package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"LetHimCook-App/internal/domain/model"
	repoImpl "LetHimCook-App/internal/repository"
)

func routed(m float64) *float64 { return &m }

func sampleReport() *model.PipelineReport {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	hawker := &model.Venue{
		ID: "foursquare:hk", Source: "foursquare", Name: "Old Airport Hawker",
		Categories:                 []string{"Food Court"},
		Coordinates:                model.LatLng{Lat: 1.3027, Lng: 103.8},
		StraightLineDistanceMeters: 300,
		RoutedDistanceMeters:       routed(420),
		Validation:                 &model.ValidationResult{Status: model.StatusProbably, OperationalConfidence: 5, AddressQuality: 5, Rationale: "rule-based match"},
		Verification: &model.VerificationResult{
			RoutedDistanceMeters: 420, StraightLineDistanceMeters: 300, DeltaPercent: 40,
			DistanceSource: model.DistanceSourcePairwise, RefinedCoordinates: model.LatLng{Lat: 1.3027, Lng: 103.8}, Confidence: 0.9,
		},
		StageFlags: model.StageFlags{PassedDiscovery: true, PassedValidation: true, PassedVerification: true},
		State:      model.StateAccepted,
	}
	barber := &model.Venue{ID: "foursquare:sb", Source: "foursquare", Name: "Snip Barber", StraightLineDistanceMeters: 500,
		StageFlags: model.StageFlags{PassedDiscovery: true}}
	barber.Reject(model.StageValidation, "no food-related category")
	chinese := &model.Venue{ID: "foursquare:cr", Source: "foursquare", Name: "Chinese Restaurant", StraightLineDistanceMeters: 950,
		RoutedDistanceMeters: routed(1180), StageFlags: model.StageFlags{PassedDiscovery: true, PassedValidation: true}}
	chinese.Reject(model.StageVerification, "routed distance 1.18 km exceeds limit of 1.00 km")

	return &model.PipelineReport{
		RunID:           "run-1",
		Origin:          model.LatLng{Lat: 1.3, Lng: 103.8},
		RadiusKm:        1,
		Strategy:        model.StrategyRuleBased,
		StartedAt:       started,
		FinishedAt:      started.Add(2 * time.Second),
		CompletedStages: model.PipelineStages(),
		Candidates:      []*model.Venue{hawker.Snapshot(), barber.Snapshot(), chinese.Snapshot()},
		Accepted:        []*model.Venue{hawker},
		Rejected:        []*model.Venue{chinese, barber},
		Stats: model.RunStats{
			Requests: map[string]int{model.RequestKindDiscovery: 7, model.RequestKindRoutingRoute: 2},
			StageDurations: []model.StageDuration{
				{Stage: model.StageDiscovery, Duration: 1500 * time.Millisecond},
			},
		},
	}
}

func TestReportRenderer_Sections(t *testing.T) {
	out, err := NewReportRenderer().Render(sampleReport())
	require.NoError(t, err)
	text := string(out)

	// セクションの順序
	runIdx := strings.Index(text, "run:")
	summaryIdx := strings.Index(text, "\nsummary:")
	acceptedIdx := strings.Index(text, "\naccepted:")
	rejectedIdx := strings.Index(text, "\nrejected:")
	candidatesIdx := strings.Index(text, "\ncandidates:")
	assert.True(t, runIdx == 0 && runIdx < summaryIdx && summaryIdx < acceptedIdx && acceptedIdx < rejectedIdx && rejectedIdx < candidatesIdx, text)

	var doc reportDocument
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "run-1", doc.Run.RunID)
	assert.Equal(t, []string{"discovery", "validation", "verification"}, doc.Run.CompletedStages)
	assert.Equal(t, "2025-03-01T10:00:00Z", doc.Run.StartedAt)
	assert.Equal(t, 3, doc.Summary.Candidates)
	assert.Equal(t, map[string]int{"validation": 1, "verification": 1}, doc.Summary.RejectedByStage)

	require.Len(t, doc.Accepted, 1)
	assert.Equal(t, "Old Airport Hawker", doc.Accepted[0].Name)
	require.NotNil(t, doc.Accepted[0].Verification)
	assert.Equal(t, 420.0, doc.Accepted[0].Verification.RoutedDistanceM)
	assert.Equal(t, "pairwise", doc.Accepted[0].Verification.DistanceSource)

	// 除外はパイプライン順にグループ化される
	require.Len(t, doc.Rejected, 2)
	assert.Equal(t, "validation", doc.Rejected[0].Stage)
	assert.Equal(t, "Snip Barber", doc.Rejected[0].Venues[0].Name)
	assert.Equal(t, "verification", doc.Rejected[1].Stage)
	assert.Equal(t, "routed distance 1.18 km exceeds limit of 1.00 km", doc.Rejected[1].Venues[0].Reason)
	require.NotNil(t, doc.Rejected[1].Venues[0].RoutedDistanceM)
	assert.Equal(t, 1180.0, *doc.Rejected[1].Venues[0].RoutedDistanceM)

	require.Len(t, doc.Candidates, 3)
	assert.Equal(t, "foursquare:hk", doc.Candidates[0].ID)
}

func TestReportRenderer_Deterministic(t *testing.T) {
	r := NewReportRenderer()
	first, err := r.Render(sampleReport())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Render(sampleReport())
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}

	_, err = r.Render(nil)
	assert.Error(t, err)
}

func TestReportRenderer_EmptyReport(t *testing.T) {
	out, err := NewReportRenderer().Render(&model.PipelineReport{RunID: "empty", Cancelled: true})
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "accepted: []")
	assert.Contains(t, text, "rejected: []")
	assert.Contains(t, text, "candidates: []")
	assert.Contains(t, text, "cancelled: true")
}

type fakePipeline struct {
	report *model.PipelineReport
	err    error
	gotCtx context.Context
}

func (f *fakePipeline) Run(ctx context.Context, req *model.VenueSearchRequest) (*model.PipelineReport, error) {
	f.gotCtx = ctx
	return f.report, f.err
}

type failingReportRepo struct{}

func (failingReportRepo) Save(ctx context.Context, r *model.StoredReport, ttl time.Duration) (*model.StoredReport, error) {
	return nil, errors.New("firestore unavailable")
}

func (failingReportRepo) Get(ctx context.Context, id string) (*model.StoredReport, error) {
	return nil, model.ErrReportNotFound
}

func searchRequest() *model.VenueSearchRequest {
	return &model.VenueSearchRequest{Origin: &model.Location{Latitude: 1.3, Longitude: 103.8}, RadiusKm: 1}
}

func TestVenueSearchUseCase_SearchSavesReport(t *testing.T) {
	reports := repoImpl.NewMemoryReportRepository()
	pipeline := &fakePipeline{report: sampleReport()}
	uc := NewVenueSearchUseCase(pipeline, NewReportRenderer(), reports, VenueSearchOptions{RunTimeout: time.Minute, ReportTTL: time.Hour}, nil)

	resp, err := uc.Search(context.Background(), searchRequest())
	require.NoError(t, err)
	require.NotEmpty(t, resp.ReportID)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, 1, resp.Summary.Accepted)
	assert.Equal(t, 2, resp.Summary.Rejected)
	assert.Contains(t, resp.ReportText, "Old Airport Hawker")

	_, hasDeadline := pipeline.gotCtx.Deadline()
	assert.True(t, hasDeadline)

	stored, err := uc.GetReport(context.Background(), resp.ReportID)
	require.NoError(t, err)
	assert.Equal(t, resp.ReportText, stored.ReportText)
	assert.Equal(t, 1, stored.Accepted)
	assert.Equal(t, 2, stored.Rejected)

	_, err = uc.GetReport(context.Background(), "rep_missing")
	assert.ErrorIs(t, err, model.ErrReportNotFound)
}

func TestVenueSearchUseCase_CancelledStillSaves(t *testing.T) {
	report := sampleReport()
	report.Cancelled = true
	report.Accepted = nil
	reports := repoImpl.NewMemoryReportRepository()
	uc := NewVenueSearchUseCase(&fakePipeline{report: report, err: context.Canceled}, NewReportRenderer(), reports, VenueSearchOptions{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp, err := uc.Search(ctx, searchRequest())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, resp)
	assert.True(t, resp.Summary.Cancelled)
	assert.NotNil(t, resp.Accepted)
	assert.NotEmpty(t, resp.ReportID)
}

func TestVenueSearchUseCase_Failures(t *testing.T) {
	cfgErr := &model.ConfigurationError{Field: "radius_km", Message: "bad"}
	uc := NewVenueSearchUseCase(&fakePipeline{err: cfgErr}, NewReportRenderer(), repoImpl.NewMemoryReportRepository(), VenueSearchOptions{}, nil)
	resp, err := uc.Search(context.Background(), searchRequest())
	assert.Nil(t, resp)
	assert.True(t, model.IsConfiguration(err))

	// 保存に失敗してもレスポンスは返す
	uc = NewVenueSearchUseCase(&fakePipeline{report: sampleReport()}, NewReportRenderer(), failingReportRepo{}, VenueSearchOptions{}, nil)
	resp, err = uc.Search(context.Background(), searchRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.ReportID)
	assert.NotEmpty(t, resp.ReportText)
}
