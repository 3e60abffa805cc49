package places

import (
	"context"
	"strings"
	"time"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/infrastructure/httpclient"
)

const (
	googlePlacesSource    = "google_places"
	googlePlacesBaseURL   = "https://places.googleapis.com/v1"
	googlePlacesMaxRadius = 50000
	googlePlacesMaxResult = 20
	googlePlacesFieldMask = "places.id,places.displayName,places.formattedAddress,places.location,places.types,places.primaryTypeDisplayName,places.editorialSummary"
)

// GooglePlacesProvider はGoogle Places API (New)を使用した店舗検索の実装
// 料理ジャンルの指定があればテキスト検索、なければ周辺検索を使う
type GooglePlacesProvider struct {
	client  *httpclient.Client
	apiKey  string
	baseURL string
}

// NewGooglePlacesProvider は新しいプロバイダを生成する
func NewGooglePlacesProvider(apiKey, baseURL string, timeout time.Duration) *GooglePlacesProvider {
	if baseURL == "" {
		baseURL = googlePlacesBaseURL
	}
	return &GooglePlacesProvider{
		client:  httpclient.New(googlePlacesSource, timeout),
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name は取得元の名前
func (p *GooglePlacesProvider) Name() string { return googlePlacesSource }

// Search は中心周辺の飲食店を検索する
func (p *GooglePlacesProvider) Search(ctx context.Context, center model.LatLng, radiusMeters int, query string, categories []string) ([]model.VenueRecord, error) {
	circle := googleArea{Circle: googleCircle{
		Center: googleLatLng{Latitude: center.Lat, Longitude: center.Lng},
		Radius: float64(min(radiusMeters, googlePlacesMaxRadius)),
	}}
	headers := map[string]string{
		"X-Goog-Api-Key":   p.apiKey,
		"X-Goog-FieldMask": googlePlacesFieldMask,
	}

	var resp googlePlacesResponse
	if q := strings.TrimSpace(query); q != "" {
		body := googleTextSearchRequest{
			TextQuery:      q + " restaurant",
			LocationBias:   &circle,
			MaxResultCount: googlePlacesMaxResult,
		}
		if err := p.client.PostJSON(ctx, p.baseURL+"/places:searchText", body, headers, &resp); err != nil {
			return nil, err
		}
	} else {
		types := categories
		if len(types) == 0 {
			types = []string{"restaurant"}
		}
		body := googleNearbySearchRequest{
			IncludedTypes:       types,
			MaxResultCount:      googlePlacesMaxResult,
			LocationRestriction: &circle,
		}
		if err := p.client.PostJSON(ctx, p.baseURL+"/places:searchNearby", body, headers, &resp); err != nil {
			return nil, err
		}
	}

	records := make([]model.VenueRecord, 0, len(resp.Places))
	for _, place := range resp.Places {
		cats := appendUnique(nil, place.PrimaryTypeDisplayName.Text)
		for _, t := range place.Types {
			if t == "point_of_interest" || t == "establishment" {
				continue
			}
			cats = appendUnique(cats, humanizeType(t))
		}
		var lat, lng *float64
		if place.Location != nil {
			lat, lng = &place.Location.Latitude, &place.Location.Longitude
		}
		records = append(records, model.VenueRecord{
			ProviderID:  place.ID,
			Source:      googlePlacesSource,
			Name:        strings.TrimSpace(place.DisplayName.Text),
			Categories:  cats,
			Coordinates: coordinatesOf(lat, lng),
			Address:     place.FormattedAddress,
			Description: place.EditorialSummary.Text,
		})
	}
	return records, nil
}

// --- Google Places APIのリクエスト・レスポンス構造体 ---

type googleLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type googleCircle struct {
	Center googleLatLng `json:"center"`
	Radius float64      `json:"radius"`
}

type googleArea struct {
	Circle googleCircle `json:"circle"`
}

type googleNearbySearchRequest struct {
	IncludedTypes       []string    `json:"includedTypes"`
	MaxResultCount      int         `json:"maxResultCount"`
	LocationRestriction *googleArea `json:"locationRestriction"`
}

type googleTextSearchRequest struct {
	TextQuery      string      `json:"textQuery"`
	LocationBias   *googleArea `json:"locationBias,omitempty"`
	MaxResultCount int         `json:"maxResultCount"`
}

type googleLocalizedText struct {
	Text string `json:"text"`
}

type googlePlace struct {
	ID                     string              `json:"id"`
	DisplayName            googleLocalizedText `json:"displayName"`
	FormattedAddress       string              `json:"formattedAddress"`
	Location               *googleLatLng       `json:"location"`
	Types                  []string            `json:"types"`
	PrimaryTypeDisplayName googleLocalizedText `json:"primaryTypeDisplayName"`
	EditorialSummary       googleLocalizedText `json:"editorialSummary"`
}

type googlePlacesResponse struct {
	Places []googlePlace `json:"places"`
}
