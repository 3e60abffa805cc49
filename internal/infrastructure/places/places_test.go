package places

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LetHimCook-App/internal/domain/model"
)

var origin = model.LatLng{Lat: 1.3200, Lng: 103.8595}

func TestFoursquareProviderSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places/search", r.URL.Path)
		assert.Equal(t, "Bearer fsq-key", r.Header.Get("Authorization"))
		assert.Equal(t, "2025-06-17", r.Header.Get("X-Places-Api-Version"))

		q := r.URL.Query()
		assert.Equal(t, "1.320000,103.859500", q.Get("ll"))
		assert.Equal(t, "450", q.Get("radius"))
		assert.Equal(t, "50", q.Get("limit"))
		assert.Equal(t, "chinese", q.Get("query"))
		assert.Contains(t, q.Get("categories"), "13065")

		_, _ = w.Write([]byte(`{"results":[
			{"fsq_place_id":"abc","name":" Chinese Restaurant ","latitude":1.3201,"longitude":103.8680,
			 "categories":[{"name":"Chinese Restaurant"},{"name":"Dim Sum Restaurant"}],
			 "location":{"formatted_address":"8 Jalan Besar, Singapore 208787"}},
			{"fsq_place_id":"nocoords","name":"Ghost Kitchen"}
		]}`))
	}))
	defer srv.Close()

	p := NewFoursquareProvider(" fsq-key ", srv.URL, time.Second)
	assert.Equal(t, "foursquare", p.Name())

	records, err := p.Search(context.Background(), origin, 450, "chinese", nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	rec := records[0]
	assert.Equal(t, "abc", rec.ProviderID)
	assert.Equal(t, "foursquare", rec.Source)
	assert.Equal(t, "Chinese Restaurant", rec.Name)
	assert.Equal(t, []string{"Chinese Restaurant", "Dim Sum Restaurant"}, rec.Categories)
	assert.Equal(t, model.LatLng{Lat: 1.3201, Lng: 103.8680}, rec.Coordinates)
	assert.Equal(t, "8 Jalan Besar, Singapore 208787", rec.Address)

	assert.Error(t, records[1].Coordinates.Validate(), "座標のないレコードは不正として扱われる")
}

func TestFoursquareProviderRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewFoursquareProvider("k", srv.URL, time.Second).Search(context.Background(), origin, 400, "", nil)
	assert.True(t, model.IsTransient(err))
}

func TestGooglePlacesProvider(t *testing.T) {
	reply := `{"places":[{"id":"g1","displayName":{"text":"Tian Tian"},"formattedAddress":"1 Kadayanallur St",
		"location":{"latitude":1.2805,"longitude":103.8446},"types":["chinese_restaurant","restaurant","point_of_interest"],
		"primaryTypeDisplayName":{"text":"Chinese Restaurant"},"editorialSummary":{"text":"Hainanese chicken rice"}}]}`

	t.Run("料理ジャンルなしは周辺検索", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/places:searchNearby", r.URL.Path)
			assert.Equal(t, "g-key", r.Header.Get("X-Goog-Api-Key"))
			assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.location")

			var body googleNearbySearchRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []string{"restaurant"}, body.IncludedTypes)
			if assert.NotNil(t, body.LocationRestriction) {
				assert.Equal(t, 600.0, body.LocationRestriction.Circle.Radius)
			}
			_, _ = w.Write([]byte(reply))
		}))
		defer srv.Close()

		records, err := NewGooglePlacesProvider("g-key", srv.URL, time.Second).Search(context.Background(), origin, 600, "", nil)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "google_places", records[0].Source)
		assert.Equal(t, "Tian Tian", records[0].Name)
		assert.Equal(t, []string{"Chinese Restaurant", "restaurant"}, records[0].Categories)
		assert.Equal(t, "Hainanese chicken rice", records[0].Description)
	})

	t.Run("料理ジャンルありはテキスト検索", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/places:searchText", r.URL.Path)
			raw, _ := io.ReadAll(r.Body)
			var body googleTextSearchRequest
			assert.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, "chicken rice restaurant", body.TextQuery)
			_, _ = w.Write([]byte(reply))
		}))
		defer srv.Close()

		records, err := NewGooglePlacesProvider("g-key", srv.URL, time.Second).Search(context.Background(), origin, 600, "chicken rice", nil)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestOverpassProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "LetHimCook-Test/1.0", r.Header.Get("User-Agent"))
		assert.NoError(t, r.ParseForm())
		q := r.PostForm.Get("data")
		assert.Contains(t, q, `["amenity"~"^(restaurant|cafe|fast_food|food_court)$"]`)
		assert.Contains(t, q, `["cuisine"~"chinese",i]`)
		assert.Contains(t, q, "(around:800,1.320000,103.859500)")
		assert.Contains(t, q, "out center;")

		_, _ = w.Write([]byte(`{"elements":[
			{"type":"node","id":1,"lat":1.321,"lon":103.86,"tags":{"name":"Wok Hei","amenity":"restaurant","cuisine":"chinese;noodle","addr:street":"Serangoon Road","addr:housenumber":"12","addr:postcode":"218227"}},
			{"type":"way","id":2,"center":{"lat":1.322,"lon":103.861},"tags":{"name":"Kopi Spot","amenity":"cafe"}}
		]}`))
	}))
	defer srv.Close()

	records, err := NewOverpassProvider(srv.URL, "LetHimCook-Test/1.0", time.Second).Search(context.Background(), origin, 800, `chinese"]`, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "node/1", records[0].ProviderID)
	assert.Equal(t, []string{"restaurant", "chinese", "noodle"}, records[0].Categories)
	assert.Equal(t, "12 Serangoon Road, 218227", records[0].Address)

	assert.Equal(t, "way/2", records[1].ProviderID)
	assert.Equal(t, model.LatLng{Lat: 1.322, Lng: 103.861}, records[1].Coordinates)
}

func TestBuildOverpassQueryWithoutCuisine(t *testing.T) {
	q := buildOverpassQuery(origin, 400, "  ", []string{"restaurant"})
	assert.NotContains(t, q, "cuisine")
	assert.Contains(t, q, `node["amenity"~"^(restaurant)$"](around:400,1.320000,103.859500);`)
}
