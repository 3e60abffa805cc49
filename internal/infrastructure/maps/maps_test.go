package maps

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LetHimCook-App/internal/domain/model"
)

var (
	origin = model.LatLng{Lat: 1.3200, Lng: 103.8595}
	dest1  = model.LatLng{Lat: 1.3210, Lng: 103.8680}
	dest2  = model.LatLng{Lat: 1.3150, Lng: 103.8550}
)

func TestOSRMMatrix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/table/v1/driving/103.859500,1.320000;103.868000,1.321000;103.855000,1.315000", r.URL.Path)
		assert.Equal(t, "0", r.URL.Query().Get("sources"))
		assert.Equal(t, "distance", r.URL.Query().Get("annotations"))
		_, _ = w.Write([]byte(`{"code":"Ok","distances":[[0,1180.5,null]]}`))
	}))
	defer srv.Close()

	got, err := NewOSRMProvider(srv.URL, "", time.Second).Matrix(context.Background(), origin, []model.LatLng{dest1, dest2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1180.5, got[0])
	assert.True(t, math.IsNaN(got[1]), "解決できない要素はNaN")
}

func TestOSRMMatrixBadShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"Ok","distances":[[0]]}`))
	}))
	defer srv.Close()

	_, err := NewOSRMProvider(srv.URL, "", time.Second).Matrix(context.Background(), origin, []model.LatLng{dest1})
	assert.True(t, model.IsMalformed(err))
}

func TestOSRMRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/route/v1/driving/103.859500,1.320000;103.868000,1.321000":
			_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":1180}]}`))
		default:
			_, _ = w.Write([]byte(`{"code":"NoRoute","message":"Impossible route"}`))
		}
	}))
	defer srv.Close()

	p := NewOSRMProvider(srv.URL, "driving", time.Second)
	d, err := p.Route(context.Background(), origin, dest1)
	require.NoError(t, err)
	assert.Equal(t, 1180.0, d)

	_, err = p.Route(context.Background(), origin, dest2)
	assert.True(t, model.IsMalformed(err))
}

func TestGoogleDirectionsRoute(t *testing.T) {
	var status atomic.Value
	status.Store("OK")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1.32,103.8595", q.Get("origin"))
		assert.Equal(t, "1.321,103.868", q.Get("destination"))
		assert.Equal(t, "driving", q.Get("mode"))
		assert.Equal(t, "maps-key", q.Get("key"))
		_, _ = w.Write([]byte(`{"status":"` + status.Load().(string) + `","routes":[{"legs":[{"distance":{"value":700}},{"distance":{"value":480}}]}]}`))
	}))
	defer srv.Close()

	p := NewGoogleDirectionsProvider("maps-key", srv.URL, time.Second)
	d, err := p.Route(context.Background(), origin, dest1)
	require.NoError(t, err)
	assert.Equal(t, 1180.0, d)

	status.Store("OVER_QUERY_LIMIT")
	_, err = p.Route(context.Background(), origin, dest1)
	assert.True(t, model.IsTransient(err))

	status.Store("ZERO_RESULTS")
	_, err = p.Route(context.Background(), origin, dest1)
	assert.True(t, model.IsMalformed(err))
}
