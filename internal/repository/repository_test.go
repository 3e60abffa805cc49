package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/infrastructure/database"
)

var singapore = model.LatLng{Lat: 1.3, Lng: 103.8}

func TestParseGeoPointJSON(t *testing.T) {
	p := ParseGeoPointJSON([]byte(`{"type":"Point","coordinates":[103.85,1.29]}`))
	assert.Equal(t, model.LatLng{Lat: 1.29, Lng: 103.85}, p)

	p = ParseGeoPointJSON([]byte(`{"lat":1.29,"lon":103.85}`))
	assert.Equal(t, model.LatLng{Lat: 1.29, Lng: 103.85}, p)

	for _, raw := range []string{``, `not json`, `{"type":"LineString","coordinates":[[0,0],[1,1]]}`, `{"lat":1.29}`} {
		p := ParseGeoPointJSON([]byte(raw))
		assert.True(t, math.IsNaN(p.Lat), raw)
		assert.Error(t, p.Validate(), raw)
	}

	gp := LatLngToGeoPoint(singapore)
	b, err := json.Marshal(gp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lat":1.3,"lon":103.8}`, string(b))
}

func newPostgresRepo(t *testing.T) (*PostgresVenueRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := NewPostgresVenueRepository(&database.PostgreSQLClient{DB: db}, "").(*PostgresVenueRepository)
	return repo, mock
}

var venueColumns = []string{"id", "name", "location", "categories", "address", "description", "distance_meters"}

func TestPostgresVenueRepository_Search(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	assert.Equal(t, PostGISSourceName, repo.Name())

	rows := sqlmock.NewRows(venueColumns).
		AddRow("v1", "Old Airport Hawker", `{"type":"Point","coordinates":[103.802,1.301]}`, `["food_court","hawker"]`, "51 Old Airport Rd", nil, 250.0).
		AddRow("v2", "Broken Geometry", `{}`, `[]`, nil, "no location", 300.0)
	mock.ExpectQuery(`ST_DWithin`).
		WithArgs(1.3, 103.8, int64(800), `["restaurant"]`, "chinese").
		WillReturnRows(rows)

	records, err := repo.Search(context.Background(), singapore, 800, "chinese", []string{"restaurant"})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "v1", records[0].ProviderID)
	assert.Equal(t, PostGISSourceName, records[0].Source)
	assert.Equal(t, []string{"food_court", "hawker"}, records[0].Categories)
	assert.Equal(t, model.LatLng{Lat: 1.301, Lng: 103.802}, records[0].Coordinates)
	assert.Equal(t, "51 Old Airport Rd", records[0].Address)
	assert.Empty(t, records[0].Description)

	assert.True(t, math.IsNaN(records[1].Coordinates.Lat))
	assert.Equal(t, "no location", records[1].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresVenueRepository_SearchUsesQuotedTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresVenueRepository(&database.PostgreSQLClient{DB: db}, "sg_venues")

	mock.ExpectQuery(`FROM "sg_venues" v`).
		WithArgs(1.3, 103.8, int64(400), `[]`, "").
		WillReturnRows(sqlmock.NewRows(venueColumns))

	records, err := repo.Search(context.Background(), singapore, 400, "", nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresVenueRepository_Errors(t *testing.T) {
	t.Run("クエリ失敗は一時的エラー", func(t *testing.T) {
		repo, mock := newPostgresRepo(t)
		mock.ExpectQuery(`ST_DWithin`).WillReturnError(errors.New("connection reset"))

		_, err := repo.Search(context.Background(), singapore, 800, "", nil)
		require.Error(t, err)
		assert.True(t, model.IsTransient(err))
	})

	t.Run("カテゴリが壊れている行は不正応答", func(t *testing.T) {
		repo, mock := newPostgresRepo(t)
		mock.ExpectQuery(`ST_DWithin`).WillReturnRows(
			sqlmock.NewRows(venueColumns).AddRow("v1", "X", `{"type":"Point","coordinates":[103.8,1.3]}`, `not-json`, nil, nil, 1.0))

		_, err := repo.Search(context.Background(), singapore, 800, "", nil)
		require.Error(t, err)
		assert.True(t, model.IsMalformed(err))
	})
}

func newESRepo(t *testing.T, handler http.HandlerFunc) *ElasticsearchVenueRepository {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{srv.URL},
		DisableRetry: true,
	})
	require.NoError(t, err)
	return NewElasticsearchVenueRepository(client, "sg_venues").(*ElasticsearchVenueRepository)
}

func TestElasticsearchVenueRepository_Search(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	repo := newESRepo(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_id":"es-1","_source":{"name":"Lau Pa Sat","categories":["hawker"],"location":{"lat":1.2806,"lon":103.8504},"address":"18 Raffles Quay"}},
			{"_id":"es-2","_source":{"name":"GeoJSON Cafe","location":{"type":"Point","coordinates":[103.81,1.31]}}},
			{"_id":"es-3","_source":{"name":"Nowhere"}}
		]}}`))
	})
	assert.Equal(t, ElasticsearchSourceName, repo.Name())

	records, err := repo.Search(context.Background(), singapore, 600, "laksa", []string{"hawker"})
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "/sg_venues/_search", gotPath)
	query := gotBody["query"].(map[string]interface{})["bool"].(map[string]interface{})
	filters := query["filter"].([]interface{})
	require.Len(t, filters, 2)
	geo := filters[0].(map[string]interface{})["geo_distance"].(map[string]interface{})
	assert.Equal(t, "600m", geo["distance"])
	assert.Contains(t, query, "must")
	assert.Contains(t, gotBody, "sort")

	assert.Equal(t, "es-1", records[0].ProviderID)
	assert.Equal(t, model.LatLng{Lat: 1.2806, Lng: 103.8504}, records[0].Coordinates)
	assert.Equal(t, "18 Raffles Quay", records[0].Address)
	assert.Equal(t, model.LatLng{Lat: 1.31, Lng: 103.81}, records[1].Coordinates)
	assert.True(t, math.IsNaN(records[2].Coordinates.Lat))
}

func TestBuildSearchBody_WithoutQueryOrCategories(t *testing.T) {
	body := buildSearchBody(singapore, 400, "  ", nil)
	query := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.NotContains(t, query, "must")
	assert.Len(t, query["filter"], 1)
	assert.Equal(t, elasticsearchResultLimit, body["size"])
}

func TestElasticsearchVenueRepository_ErrorClassification(t *testing.T) {
	var status atomic.Int64
	repo := newESRepo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})

	status.Store(http.StatusInternalServerError)
	_, err := repo.Search(context.Background(), singapore, 600, "", nil)
	require.Error(t, err)
	assert.True(t, model.IsTransient(err))

	status.Store(http.StatusBadRequest)
	_, err = repo.Search(context.Background(), singapore, 600, "", nil)
	require.Error(t, err)
	assert.True(t, model.IsMalformed(err))
}

func TestMemoryReportRepository(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryReportRepository(func() time.Time { return now })
	ctx := context.Background()

	saved, err := repo.Save(ctx, &model.StoredReport{RunID: "run-1", ReportText: "run: {}", Accepted: 2}, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ReportID)
	assert.Equal(t, now.Add(time.Hour), saved.ExpireAt)

	got, err := repo.Get(ctx, saved.ReportID)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 2, got.Accepted)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrReportNotFound)

	now = now.Add(time.Hour)
	_, err = repo.Get(ctx, saved.ReportID)
	assert.ErrorIs(t, err, model.ErrReportNotFound)

	// 次の保存時に期限切れのものは掃除される
	_, err = repo.Save(ctx, &model.StoredReport{RunID: "run-2"}, time.Hour)
	require.NoError(t, err)
	assert.Len(t, repo.reports, 1)
}

func TestFirestoreReportHelpers(t *testing.T) {
	assert.True(t, isNotFound(errors.New("rpc error: code = NotFound desc = no document")))
	assert.True(t, isNotFound(errors.New("document not found")))
	assert.False(t, isNotFound(errors.New("permission denied")))

	id := newReportID()
	assert.Regexp(t, `^rep_[0-9a-f-]{36}$`, id)

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	stored := &model.StoredReport{RunID: "run-1", ReportText: "text", Accepted: 1, Rejected: 2, CreatedAt: created, ExpireAt: created.Add(time.Hour)}
	roundTrip := stored.ToFirestoreVenueReport().ToStoredReport("rep_x")
	assert.Equal(t, "rep_x", roundTrip.ReportID)
	assert.Equal(t, stored.ReportText, roundTrip.ReportText)
	assert.Equal(t, stored.ExpireAt, roundTrip.ExpireAt)
}
