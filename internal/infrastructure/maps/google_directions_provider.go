package maps

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/infrastructure/httpclient"
)

const (
	googleDirectionsSource  = "google_directions"
	googleDirectionsBaseURL = "https://maps.googleapis.com/maps/api/directions/json"
)

// GoogleDirectionsProvider はGoogle Maps Directions APIを使用した2地点間の経路距離の実装
type GoogleDirectionsProvider struct {
	apiKey  string
	baseURL string
	client  *httpclient.Client
}

// NewGoogleDirectionsProvider は新しいプロバイダを生成する
func NewGoogleDirectionsProvider(apiKey, baseURL string, timeout time.Duration) *GoogleDirectionsProvider {
	if baseURL == "" {
		baseURL = googleDirectionsBaseURL
	}
	return &GoogleDirectionsProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  httpclient.New(googleDirectionsSource, timeout),
	}
}

// Route はGoogle Maps Directions APIを呼び出して車での経路距離（メートル）を取得する
func (g *GoogleDirectionsProvider) Route(ctx context.Context, from, to model.LatLng) (float64, error) {
	var apiResp googleRouteResponse
	if err := g.client.GetJSON(ctx, g.baseURL, g.buildParams(from, to), nil, &apiResp); err != nil {
		return 0, err
	}

	switch apiResp.Status {
	case "OK":
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return 0, model.NewTransientError(googleDirectionsSource, 0, fmt.Errorf("APIステータス %s: %s", apiResp.Status, apiResp.ErrorMessage))
	default:
		return 0, model.NewMalformedError(googleDirectionsSource, fmt.Errorf("APIステータス %s: %s", apiResp.Status, apiResp.ErrorMessage))
	}
	if len(apiResp.Routes) == 0 {
		return 0, model.NewMalformedError(googleDirectionsSource, errors.New("APIから有効なルートが返されませんでした"))
	}

	var total int
	for _, leg := range apiResp.Routes[0].Legs {
		total += leg.Distance.Value
	}
	return float64(total), nil
}

func (g *GoogleDirectionsProvider) buildParams(from, to model.LatLng) url.Values {
	params := url.Values{}
	params.Set("origin", formatLatLng(from))
	params.Set("destination", formatLatLng(to))
	params.Set("mode", "driving")
	params.Set("units", "metric")
	params.Set("key", g.apiKey)
	return params
}

func formatLatLng(p model.LatLng) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// --- Google Maps APIのレスポンスをパースするための構造体 ---

type googleRouteResponse struct {
	Routes       []route `json:"routes"`
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
}
type route struct {
	Legs []leg `json:"legs"`
}
type leg struct {
	Distance distance `json:"distance"`
}
type distance struct {
	Value int `json:"value"` // meters
}
