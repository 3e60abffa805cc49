package geocoding

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/infrastructure/httpclient"
)

const (
	nominatimSource      = "nominatim"
	nominatimBaseURL     = "https://nominatim.openstreetmap.org"
	nominatimSearchLimit = 5
	defaultUserAgent     = "LetHimCook/1.0"
)

// NominatimGeocoder はNominatimを使用した逆ジオコーディング・名前検索の実装
// 利用規約によりUser-Agentの送信が必須
type NominatimGeocoder struct {
	baseURL      string
	countryCodes string
	client       *httpclient.Client
}

// NewNominatimGeocoder は新しいジオコーダを生成する
// countryCodesは "sg" や "sg,my" のような検索対象国の指定（空可）
func NewNominatimGeocoder(baseURL, userAgent, countryCodes string, timeout time.Duration) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = nominatimBaseURL
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &NominatimGeocoder{
		baseURL:      strings.TrimRight(baseURL, "/"),
		countryCodes: countryCodes,
		client:       httpclient.New(nominatimSource, timeout).WithHeader("User-Agent", userAgent),
	}
}

// ReverseGeocode は座標に最も近い住所を返す（該当なしはnil）
func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, point model.LatLng) (*model.AddressRecord, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", strconv.FormatFloat(point.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(point.Lng, 'f', -1, 64))
	params.Set("zoom", "18")
	params.Set("addressdetails", "1")

	var place nominatimPlace
	if err := g.client.GetJSON(ctx, g.baseURL+"/reverse", params, nil, &place); err != nil {
		return nil, err
	}
	if place.Error != "" {
		return nil, nil
	}
	rec, ok := place.toAddressRecord()
	if !ok {
		return nil, model.NewMalformedError(nominatimSource, fmt.Errorf("座標を解釈できません: %q, %q", place.Lat, place.Lon))
	}
	return rec, nil
}

// Search はboundの範囲内に限定して名前検索する（boundがゼロ値なら範囲を限定しない）
func (g *NominatimGeocoder) Search(ctx context.Context, query string, bound orb.Bound) ([]model.AddressRecord, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(nominatimSearchLimit))
	params.Set("addressdetails", "1")
	if !bound.IsZero() {
		params.Set("viewbox", viewbox(bound))
		params.Set("bounded", "1")
	}
	if g.countryCodes != "" {
		params.Set("countrycodes", g.countryCodes)
	}

	var places []nominatimPlace
	if err := g.client.GetJSON(ctx, g.baseURL+"/search", params, nil, &places); err != nil {
		return nil, err
	}

	out := make([]model.AddressRecord, 0, len(places))
	for _, p := range places {
		if rec, ok := p.toAddressRecord(); ok {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// viewbox は "左,上,右,下"（経度,緯度）の形式に変換する
func viewbox(b orb.Bound) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	return strings.Join([]string{f(b.Left()), f(b.Top()), f(b.Right()), f(b.Bottom())}, ",")
}

// --- Nominatimのレスポンスをパースするための構造体 ---

type nominatimPlace struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Address     nominatimAddress `json:"address"`
	Error       string           `json:"error"`
}

type nominatimAddress struct {
	Postcode string `json:"postcode"`
}

func (p nominatimPlace) toAddressRecord() (*model.AddressRecord, bool) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, false
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, false
	}
	return &model.AddressRecord{
		DisplayName: p.DisplayName,
		Coordinates: model.LatLng{Lat: lat, Lng: lng},
		PostalCode:  p.Address.Postcode,
	}, true
}
