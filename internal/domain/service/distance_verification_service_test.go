package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"LetHimCook-App/internal/domain/helper"
	"LetHimCook-App/internal/domain/model"
)

func testVerificationConfig() VerificationConfig {
	cfg := DefaultVerificationConfig()
	cfg.CallTimeout = time.Second
	cfg.Retry = helper.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	return cfg
}

func newVerifier(t *testing.T, matrix *fakeMatrixProvider, route *fakeRouteProvider, geocoder *fakeGeocoder) DistanceVerificationService {
	t.Helper()
	// nilのポインタをインターフェースに入れないよう個別に渡す
	var svc DistanceVerificationService
	var err error
	switch {
	case matrix != nil && route != nil && geocoder != nil:
		svc, err = NewDistanceVerificationService(matrix, route, geocoder, testVerificationConfig(), zap.NewNop())
	case matrix != nil && route != nil:
		svc, err = NewDistanceVerificationService(matrix, route, nil, testVerificationConfig(), zap.NewNop())
	case route != nil && geocoder != nil:
		svc, err = NewDistanceVerificationService(nil, route, geocoder, testVerificationConfig(), zap.NewNop())
	case route != nil:
		svc, err = NewDistanceVerificationService(nil, route, nil, testVerificationConfig(), zap.NewNop())
	default:
		svc, err = NewDistanceVerificationService(nil, nil, nil, testVerificationConfig(), zap.NewNop())
	}
	require.NoError(t, err)
	return svc
}

func candidates(n int, stepMeters float64) []*model.Venue {
	venues := make([]*model.Venue, n)
	for i := range venues {
		venues[i] = venueAt(fmt.Sprintf("v%02d", i), fmt.Sprintf("Eatery %d", i), stepMeters*float64(i+1), "Restaurant")
		venues[i].StageFlags.PassedValidation = true
	}
	return venues
}

func TestDistanceVerificationFallbackCompleteness(t *testing.T) {
	transient := model.NewTransientError("routing", 503, errors.New("down"))
	matrix := &fakeMatrixProvider{err: transient}
	route := &fakeRouteProvider{err: transient}
	svc := newVerifier(t, matrix, route, nil)

	venues := candidates(7, 100)
	outcome, err := svc.Verify(context.Background(), singaporeOrigin, venues, 5000, &countingLimiter{})
	require.NoError(t, err)

	require.Len(t, outcome.Accepted, 7)
	for _, v := range venues {
		require.NotNil(t, v.Verification)
		assert.Equal(t, model.DistanceSourceGreatCircle, v.Verification.DistanceSource)
		routed, ok := v.RoutedDistance()
		require.True(t, ok)
		assert.InDelta(t, v.StraightLineDistanceMeters, routed, 1e-6, "大円距離は直線距離と一致")
		assert.NotEmpty(t, v.Verification.RefinedAddress)
	}
	assert.Equal(t, 7, outcome.Stats.DistanceSources[model.DistanceSourceGreatCircle])
	assert.Positive(t, matrix.calls.Load())
	assert.Positive(t, route.calls.Load())
}

func TestDistanceVerificationChainOrder(t *testing.T) {
	t.Run("6件以上は距離行列から解決し残りを2地点経路で補う", func(t *testing.T) {
		venues := candidates(6, 100)
		matrix := &fakeMatrixProvider{distances: map[model.LatLng]float64{}}
		route := &fakeRouteProvider{distances: map[model.LatLng]float64{}}
		for i, v := range venues {
			if i%2 == 0 {
				matrix.distances[v.Coordinates] = 300
			} else {
				route.distances[v.Coordinates] = 400
			}
		}
		svc := newVerifier(t, matrix, route, nil)

		outcome, err := svc.Verify(context.Background(), singaporeOrigin, venues, 5000, &countingLimiter{})
		require.NoError(t, err)
		assert.Equal(t, 3, outcome.Stats.DistanceSources[model.DistanceSourceMatrix])
		assert.Equal(t, 3, outcome.Stats.DistanceSources[model.DistanceSourcePairwise])
		assert.Equal(t, int64(3), route.calls.Load(), "距離行列で解決済みの候補は問い合わせない")
	})

	t.Run("5件以下は距離行列を使わない", func(t *testing.T) {
		venues := candidates(5, 100)
		matrix := &fakeMatrixProvider{distances: map[model.LatLng]float64{}}
		route := &fakeRouteProvider{distances: map[model.LatLng]float64{}}
		for _, v := range venues {
			route.distances[v.Coordinates] = 250
		}
		svc := newVerifier(t, matrix, route, nil)

		outcome, err := svc.Verify(context.Background(), singaporeOrigin, venues, 5000, &countingLimiter{})
		require.NoError(t, err)
		assert.Equal(t, int64(0), matrix.calls.Load())
		assert.Equal(t, 5, outcome.Stats.DistanceSources[model.DistanceSourcePairwise])
	})

	t.Run("距離行列は50件ずつ分割", func(t *testing.T) {
		venues := candidates(120, 10)
		matrix := &fakeMatrixProvider{distances: map[model.LatLng]float64{}}
		for _, v := range venues {
			matrix.distances[v.Coordinates] = v.StraightLineDistanceMeters * 1.2
		}
		svc := newVerifier(t, matrix, &fakeRouteProvider{}, nil)

		outcome, err := svc.Verify(context.Background(), singaporeOrigin, venues, 5000, &countingLimiter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), matrix.calls.Load())
		assert.Equal(t, 50, matrix.maxBatch)
		assert.Equal(t, 120, outcome.Stats.DistanceSources[model.DistanceSourceMatrix])
		assert.InDelta(t, 20.0, venues[0].Verification.DeltaPercent, 1e-6)
	})
}

func TestDistanceVerificationSingaporeScenario(t *testing.T) {
	venue := venueAt("foursquare:cr", "Chinese Restaurant", 950, "Chinese Restaurant")
	venue.StageFlags.PassedValidation = true
	route := &fakeRouteProvider{distances: map[model.LatLng]float64{venue.Coordinates: 1180}}
	svc := newVerifier(t, nil, route, nil)

	outcome, err := svc.Verify(context.Background(), singaporeOrigin, []*model.Venue{venue}, 1000, &countingLimiter{})
	require.NoError(t, err)

	require.Len(t, outcome.Rejected, 1)
	assert.Empty(t, outcome.Accepted)
	require.NotNil(t, venue.Rejection)
	assert.Equal(t, model.StageVerification, venue.Rejection.Stage)
	assert.Equal(t, "routed distance 1.18 km exceeds limit of 1.00 km", venue.Rejection.Reason)
	assert.Equal(t, model.StateRejectedByDistance, venue.State)
	assert.InDelta(t, 24.2, venue.Verification.DeltaPercent, 0.5)
}

func TestDistanceVerificationShorterThanStraightLineNote(t *testing.T) {
	venue := venueAt("x", "Noodle Bar", 800, "Noodle House")
	venue.StageFlags.PassedValidation = true
	route := &fakeRouteProvider{distances: map[model.LatLng]float64{venue.Coordinates: 600}}
	svc := newVerifier(t, nil, route, nil)

	_, err := svc.Verify(context.Background(), singaporeOrigin, []*model.Venue{venue}, 1000, &countingLimiter{})
	require.NoError(t, err)
	assert.True(t, venue.IsAccepted())
	require.NotEmpty(t, venue.Verification.Notes)
	assert.Contains(t, venue.Verification.Notes[len(venue.Verification.Notes)-1], "shorter than straight-line")
}

func TestLocationRefinement(t *testing.T) {
	t.Run("チェーン店は周辺検索で最も近い結果を使う", func(t *testing.T) {
		venue := venueAt("mcd", "McDonald's Serangoon", 500, "Fast Food Restaurant")
		near := helper.OffsetMeters(venue.Coordinates, 10, 0)
		far := helper.OffsetMeters(venue.Coordinates, 200, 0)
		geocoder := &fakeGeocoder{search: []model.AddressRecord{
			{DisplayName: "McDonald's far branch", Coordinates: far},
			{DisplayName: "McDonald's, 1 Serangoon Rd, Singapore 218227", Coordinates: near},
			{DisplayName: "Out of range", Coordinates: helper.OffsetMeters(venue.Coordinates, 5000, 0)},
		}}
		svc := newVerifier(t, nil, &fakeRouteProvider{}, geocoder)

		_, err := svc.Verify(context.Background(), singaporeOrigin, []*model.Venue{venue}, 2000, &countingLimiter{})
		require.NoError(t, err)
		assert.Equal(t, "McDonald's, 1 Serangoon Rd, Singapore 218227", venue.Verification.RefinedAddress)
		assert.Equal(t, confidenceHigh, venue.Verification.Confidence)
		assert.Equal(t, 0, geocoder.reverseCalls, "チェーン店は逆引きしない")
		require.Len(t, geocoder.searchBounds, 1)
		assert.True(t, geocoder.searchBounds[0].Contains(venue.Coordinates.ToOrbPoint()))
	})

	t.Run("それ以外は逆引きしてずれから信頼度を決める", func(t *testing.T) {
		venue := venueAt("local", "Ah Hock Eating House", 400, "Chinese Restaurant")
		geocoder := &fakeGeocoder{reverse: &model.AddressRecord{
			DisplayName: "12 Jalan Besar, Singapore 208790",
			Coordinates: helper.OffsetMeters(venue.Coordinates, 0, 60),
		}}
		svc := newVerifier(t, nil, &fakeRouteProvider{}, geocoder)

		_, err := svc.Verify(context.Background(), singaporeOrigin, []*model.Venue{venue}, 2000, &countingLimiter{})
		require.NoError(t, err)
		assert.Equal(t, "12 Jalan Besar, Singapore 208790", venue.Verification.RefinedAddress)
		assert.Equal(t, confidenceMedium, venue.Verification.Confidence)
	})

	t.Run("ジオコーダが失敗しても住所は空にならない", func(t *testing.T) {
		venue := venueAt("lost", "Hidden Gem", 300, "Restaurant")
		venue.Description = "Tucked away at Singapore 218040"
		geocoder := &fakeGeocoder{err: model.NewTransientError("nominatim", 503, errors.New("down"))}
		svc := newVerifier(t, nil, &fakeRouteProvider{}, geocoder)

		_, err := svc.Verify(context.Background(), singaporeOrigin, []*model.Venue{venue}, 2000, &countingLimiter{})
		require.NoError(t, err)
		want := fmt.Sprintf("Hidden Gem, near %.5f, %.5f, postal code 218040", venue.Coordinates.Lat, venue.Coordinates.Lng)
		assert.Equal(t, want, venue.Verification.RefinedAddress)
		assert.Equal(t, confidenceLow, venue.Verification.Confidence)
	})
}

func TestConfidenceForOffset(t *testing.T) {
	assert.Equal(t, 0.9, ConfidenceForOffset(0))
	assert.Equal(t, 0.9, ConfidenceForOffset(24.9))
	assert.Equal(t, 0.6, ConfidenceForOffset(25))
	assert.Equal(t, 0.6, ConfidenceForOffset(99))
	assert.Equal(t, 0.3, ConfidenceForOffset(100))
	assert.Equal(t, 0.3, ConfidenceForOffset(math.Inf(1)))
}

func TestDistanceVerificationCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := newVerifier(t, nil, &fakeRouteProvider{}, nil)
	_, err := svc.Verify(ctx, singaporeOrigin, candidates(2, 100), 1000, &countingLimiter{})
	assert.ErrorIs(t, err, context.Canceled)
}
