package service

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb"

	"LetHimCook-App/internal/domain/helper"
	"LetHimCook-App/internal/domain/model"
)

// countingLimiter は待機せずに呼び出し回数だけ数える
type countingLimiter struct {
	calls atomic.Int64
}

func (l *countingLimiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.calls.Add(1)
	return nil
}

// fakeSearchProvider はグリッド点に依存しない固定レコードを返す
type fakeSearchProvider struct {
	name    string
	records []model.VenueRecord
	// failures は先頭から何回目までの呼び出しを失敗させるか（-1は常に失敗）
	failures int
	err      error

	mu    sync.Mutex
	calls int
}

func (p *fakeSearchProvider) Name() string { return p.name }

func (p *fakeSearchProvider) Search(ctx context.Context, center model.LatLng, radiusMeters int, query string, categories []string) ([]model.VenueRecord, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	p.mu.Unlock()

	if p.failures < 0 || n <= p.failures {
		return nil, p.err
	}
	out := make([]model.VenueRecord, len(p.records))
	copy(out, p.records)
	return out, nil
}

func (p *fakeSearchProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeMatrixProvider は登録済みの距離表、または失敗を返す
type fakeMatrixProvider struct {
	distances map[model.LatLng]float64
	err       error
	calls     atomic.Int64
	maxBatch  int
}

func (p *fakeMatrixProvider) Matrix(ctx context.Context, origin model.LatLng, destinations []model.LatLng) ([]float64, error) {
	p.calls.Add(1)
	if len(destinations) > p.maxBatch {
		p.maxBatch = len(destinations)
	}
	if p.err != nil {
		return nil, p.err
	}
	out := make([]float64, len(destinations))
	for i, d := range destinations {
		if v, ok := p.distances[d]; ok {
			out[i] = v
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// fakeRouteProvider は登録済みの距離、または失敗を返す
type fakeRouteProvider struct {
	distances map[model.LatLng]float64
	err       error
	calls     atomic.Int64
}

func (p *fakeRouteProvider) Route(ctx context.Context, from, to model.LatLng) (float64, error) {
	p.calls.Add(1)
	if p.err != nil {
		return 0, p.err
	}
	if v, ok := p.distances[to]; ok {
		return v, nil
	}
	return 0, model.NewMalformedError("fake-route", errNoRoute)
}

type fakeError string

func (e fakeError) Error() string { return string(e) }

const errNoRoute = fakeError("no route")

// fakeGeocoder は逆引き・検索の結果を固定で返す
type fakeGeocoder struct {
	reverse *model.AddressRecord
	search  []model.AddressRecord
	err     error

	mu           sync.Mutex
	searchBounds []orb.Bound
	queries      []string
	reverseCalls int
}

func (g *fakeGeocoder) ReverseGeocode(ctx context.Context, point model.LatLng) (*model.AddressRecord, error) {
	g.mu.Lock()
	g.reverseCalls++
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return g.reverse, nil
}

func (g *fakeGeocoder) Search(ctx context.Context, query string, bound orb.Bound) ([]model.AddressRecord, error) {
	g.mu.Lock()
	g.searchBounds = append(g.searchBounds, bound)
	g.queries = append(g.queries, query)
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return g.search, nil
}

// fakeJudge はバッチごとに応答を生成する
type fakeJudge struct {
	respond func(summaries []model.VenueSummary) (string, error)
	calls   atomic.Int64
}

func (j *fakeJudge) ValidateBatch(ctx context.Context, summaries []model.VenueSummary, cuisine string) (string, error) {
	j.calls.Add(1)
	return j.respond(summaries)
}

// singaporeOrigin はテスト共通の検索中心
var singaporeOrigin = model.LatLng{Lat: 1.3200, Lng: 103.8595}

// recordAt は中心から東へeastMeters離れた地点のレコードを作る
func recordAt(source, id, name string, eastMeters float64, categories ...string) model.VenueRecord {
	return model.VenueRecord{
		ProviderID:  id,
		Source:      source,
		Name:        name,
		Categories:  categories,
		Coordinates: helper.OffsetMeters(singaporeOrigin, eastMeters, 0),
	}
}

// venueAt は中心から東へeastMeters離れた候補店舗を作る
func venueAt(id, name string, eastMeters float64, categories ...string) *model.Venue {
	rec := recordAt("test", id, name, eastMeters, categories...)
	return model.NewVenueFromRecord(id, rec, helper.HaversineMeters(singaporeOrigin, rec.Coordinates))
}
