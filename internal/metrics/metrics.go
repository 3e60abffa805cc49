package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"LetHimCook-App/internal/domain/model"
)

var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lethimcook_pipeline_runs_total",
			Help: "Total number of venue pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lethimcook_pipeline_stage_duration_seconds",
			Help:    "Duration of each completed pipeline stage in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lethimcook_provider_requests_total",
			Help: "Total number of outbound provider requests by kind",
		},
		[]string{"kind"},
	)

	VenueOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lethimcook_venue_outcomes_total",
			Help: "Number of venues by final outcome",
		},
		[]string{"outcome"},
	)

	DistanceSourcesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lethimcook_distance_sources_total",
			Help: "Number of routed distances by resolver source",
		},
		[]string{"source"},
	)
)

// 実行結果の区分
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// ObserveReport はパイプライン1回分のレポートをメトリクスに反映する
func ObserveReport(report *model.PipelineReport) {
	if report == nil {
		return
	}
	outcome := OutcomeCompleted
	if report.Cancelled {
		outcome = OutcomeCancelled
	}
	PipelineRunsTotal.WithLabelValues(outcome).Inc()

	for _, sd := range report.Stats.StageDurations {
		PipelineStageDuration.WithLabelValues(string(sd.Stage)).Observe(sd.Duration.Seconds())
	}
	for kind, n := range report.Stats.Requests {
		ProviderRequestsTotal.WithLabelValues(kind).Add(float64(n))
	}
	for source, n := range report.Stats.Verification.DistanceSources {
		DistanceSourcesTotal.WithLabelValues(source).Add(float64(n))
	}

	VenueOutcomesTotal.WithLabelValues("accepted").Add(float64(len(report.Accepted)))
	for _, group := range report.RejectedByStage() {
		VenueOutcomesTotal.WithLabelValues("rejected_" + string(group.Stage)).Add(float64(len(group.Venues)))
	}
}

// ObserveFailure は設定エラーなどでレポートが作られなかった実行を数える
func ObserveFailure() {
	PipelineRunsTotal.WithLabelValues(OutcomeFailed).Inc()
}
