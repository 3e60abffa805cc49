package places

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/infrastructure/httpclient"
)

const (
	foursquareSource     = "foursquare"
	foursquareBaseURL    = "https://places-api.foursquare.com"
	foursquareAPIVersion = "2025-06-17"
	foursquareMaxRadius  = 100000
	foursquareLimit      = 50
)

// DefaultFoursquareCategories は飲食店のカテゴリID（交通機関などの広いカテゴリは含めない）
var DefaultFoursquareCategories = []string{
	"13065", "13145", "13314", "13236", "13066", "13068", "13070", "13071", "13072", "13073",
	"13076", "13077", "13079", "13080", "13081", "13082", "13083", "13084", "13085", "13086",
	"13087", "13088", "13089", "13090", "13091", "13092", "13093", "13094", "13095", "13096",
	"13097", "13144", "13146", "13147", "13148", "13149", "13150", "13151", "13152", "13153",
	"13154", "13155",
}

// FoursquareProvider はFoursquare Places APIを使用した店舗検索の実装
type FoursquareProvider struct {
	client  *httpclient.Client
	apiKey  string
	baseURL string
}

// NewFoursquareProvider は新しいプロバイダを生成する（baseURLが空の場合は本番のエンドポイント）
func NewFoursquareProvider(apiKey, baseURL string, timeout time.Duration) *FoursquareProvider {
	if baseURL == "" {
		baseURL = foursquareBaseURL
	}
	return &FoursquareProvider{
		client:  httpclient.New(foursquareSource, timeout),
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name は取得元の名前
func (p *FoursquareProvider) Name() string { return foursquareSource }

// Search は中心周辺の飲食店を検索する
func (p *FoursquareProvider) Search(ctx context.Context, center model.LatLng, radiusMeters int, query string, categories []string) ([]model.VenueRecord, error) {
	if len(categories) == 0 {
		categories = DefaultFoursquareCategories
	}
	params := url.Values{}
	params.Set("ll", fmt.Sprintf("%f,%f", center.Lat, center.Lng))
	params.Set("radius", strconv.Itoa(min(radiusMeters, foursquareMaxRadius)))
	params.Set("categories", strings.Join(categories, ","))
	params.Set("limit", strconv.Itoa(foursquareLimit))
	params.Set("sort", "POPULARITY")
	if q := strings.TrimSpace(query); q != "" {
		params.Set("query", q)
	}

	headers := map[string]string{
		"Authorization":        "Bearer " + p.apiKey,
		"X-Places-Api-Version": foursquareAPIVersion,
	}

	var resp foursquareResponse
	if err := p.client.GetJSON(ctx, p.baseURL+"/places/search", params, headers, &resp); err != nil {
		return nil, err
	}

	records := make([]model.VenueRecord, 0, len(resp.Results))
	for _, place := range resp.Results {
		var cats []string
		for _, c := range place.Categories {
			cats = appendUnique(cats, c.Name)
		}
		id := place.ID
		if id == "" {
			id = place.LegacyID
		}
		records = append(records, model.VenueRecord{
			ProviderID:  id,
			Source:      foursquareSource,
			Name:        strings.TrimSpace(place.Name),
			Categories:  cats,
			Coordinates: coordinatesOf(place.Latitude, place.Longitude),
			Address:     place.Location.FormattedAddress,
			Description: place.Description,
		})
	}
	return records, nil
}

// --- Foursquare APIのレスポンスをパースするための構造体 ---

type foursquareResponse struct {
	Results []foursquarePlace `json:"results"`
}

type foursquarePlace struct {
	ID          string               `json:"fsq_place_id"`
	LegacyID    string               `json:"fsq_id"`
	Name        string               `json:"name"`
	Latitude    *float64             `json:"latitude"`
	Longitude   *float64             `json:"longitude"`
	Categories  []foursquareCategory `json:"categories"`
	Location    foursquareLocation   `json:"location"`
	Description string               `json:"description"`
}

type foursquareCategory struct {
	Name string `json:"name"`
}

type foursquareLocation struct {
	FormattedAddress string `json:"formatted_address"`
}
