package maps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/infrastructure/httpclient"
)

const (
	osrmSource  = "osrm"
	osrmBaseURL = "https://router.project-osrm.org"
)

// OSRMProvider はOSRMのtable・routeサービスを使用した経路距離の実装
// 座標は経度,緯度の順で送る
type OSRMProvider struct {
	baseURL string
	profile string
	client  *httpclient.Client
}

// NewOSRMProvider は新しいプロバイダを生成する（profileが空の場合はdriving）
func NewOSRMProvider(baseURL, profile string, timeout time.Duration) *OSRMProvider {
	if baseURL == "" {
		baseURL = osrmBaseURL
	}
	if profile == "" {
		profile = "driving"
	}
	return &OSRMProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: profile,
		client:  httpclient.New(osrmSource, timeout),
	}
}

// Matrix は出発地から各目的地への経路距離をまとめて取得する
func (p *OSRMProvider) Matrix(ctx context.Context, origin model.LatLng, destinations []model.LatLng) ([]float64, error) {
	if len(destinations) == 0 {
		return nil, nil
	}
	points := append([]model.LatLng{origin}, destinations...)
	endpoint := fmt.Sprintf("%s/table/v1/%s/%s", p.baseURL, p.profile, coordinatePath(points))

	params := url.Values{}
	params.Set("sources", "0")
	params.Set("annotations", "distance")

	var resp osrmTableResponse
	if err := p.client.GetJSON(ctx, endpoint, params, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "Ok" {
		return nil, model.NewMalformedError(osrmSource, fmt.Errorf("tableのステータス %s: %s", resp.Code, resp.Message))
	}
	if len(resp.Distances) == 0 || len(resp.Distances[0]) != len(points) {
		return nil, model.NewMalformedError(osrmSource, errors.New("距離行列の大きさが一致しません"))
	}

	row := resp.Distances[0]
	out := make([]float64, len(destinations))
	for i := range destinations {
		if d := row[i+1]; d != nil {
			out[i] = *d
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// Route は2地点間の経路距離を取得する
func (p *OSRMProvider) Route(ctx context.Context, from, to model.LatLng) (float64, error) {
	endpoint := fmt.Sprintf("%s/route/v1/%s/%s", p.baseURL, p.profile, coordinatePath([]model.LatLng{from, to}))

	params := url.Values{}
	params.Set("overview", "false")

	var resp osrmRouteResponse
	if err := p.client.GetJSON(ctx, endpoint, params, nil, &resp); err != nil {
		return 0, err
	}
	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return 0, model.NewMalformedError(osrmSource, fmt.Errorf("routeのステータス %s: %s", resp.Code, resp.Message))
	}
	return resp.Routes[0].Distance, nil
}

// coordinatePath は "lng,lat;lng,lat" 形式のパスを作る
func coordinatePath(points []model.LatLng) string {
	parts := make([]string, len(points))
	for i, pt := range points {
		parts[i] = fmt.Sprintf("%.6f,%.6f", pt.Lng, pt.Lat)
	}
	return strings.Join(parts, ";")
}

// --- OSRMのレスポンスをパースするための構造体 ---

type osrmTableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Distances [][]*float64 `json:"distances"`
}

type osrmRouteResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64 `json:"distance"`
}
