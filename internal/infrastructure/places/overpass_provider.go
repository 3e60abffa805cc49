package places

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/infrastructure/httpclient"
)

const (
	overpassSource  = "overpass"
	overpassBaseURL = "https://overpass-api.de/api/interpreter"
)

// DefaultOverpassAmenities は飲食店として扱うamenityタグ
var DefaultOverpassAmenities = []string{"restaurant", "cafe", "fast_food", "food_court"}

var overpassUnsafe = regexp.MustCompile(`[^\p{L}\p{N} _-]`)

// OverpassProvider はOpenStreetMap Overpass APIを使用した店舗検索の実装
type OverpassProvider struct {
	client  *httpclient.Client
	baseURL string
}

// NewOverpassProvider は新しいプロバイダを生成する
func NewOverpassProvider(baseURL, userAgent string, timeout time.Duration) *OverpassProvider {
	if baseURL == "" {
		baseURL = overpassBaseURL
	}
	client := httpclient.New(overpassSource, timeout)
	if userAgent != "" {
		client.WithHeader("User-Agent", userAgent)
	}
	return &OverpassProvider{client: client, baseURL: baseURL}
}

// Name は取得元の名前
func (p *OverpassProvider) Name() string { return overpassSource }

// Search は中心周辺のamenityを検索する
func (p *OverpassProvider) Search(ctx context.Context, center model.LatLng, radiusMeters int, query string, categories []string) ([]model.VenueRecord, error) {
	amenities := categories
	if len(amenities) == 0 {
		amenities = DefaultOverpassAmenities
	}
	q := buildOverpassQuery(center, radiusMeters, query, amenities)

	var resp overpassResponse
	if err := p.client.PostForm(ctx, p.baseURL, url.Values{"data": {q}}, nil, &resp); err != nil {
		return nil, err
	}

	records := make([]model.VenueRecord, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		lat, lng := el.Lat, el.Lon
		if el.Center != nil {
			lat, lng = &el.Center.Lat, &el.Center.Lon
		}
		tags := el.Tags

		cats := appendUnique(nil, humanizeType(tags["amenity"]))
		for _, c := range strings.Split(tags["cuisine"], ";") {
			cats = appendUnique(cats, humanizeType(c))
		}

		records = append(records, model.VenueRecord{
			ProviderID:  fmt.Sprintf("%s/%d", el.Type, el.ID),
			Source:      overpassSource,
			Name:        strings.TrimSpace(tags["name"]),
			Categories:  cats,
			Coordinates: coordinatesOf(lat, lng),
			Address:     overpassAddress(tags),
			Description: tags["description"],
		})
	}
	return records, nil
}

// buildOverpassQuery はnode・wayの両方を対象にしたOverpass QLを組み立てる
func buildOverpassQuery(center model.LatLng, radiusMeters int, cuisine string, amenities []string) string {
	filter := fmt.Sprintf(`["amenity"~"^(%s)$"]`, strings.Join(amenities, "|"))
	if c := overpassUnsafe.ReplaceAllString(strings.TrimSpace(cuisine), ""); c != "" {
		filter += fmt.Sprintf(`["cuisine"~"%s",i]`, c)
	}
	around := fmt.Sprintf("(around:%d,%f,%f)", radiusMeters, center.Lat, center.Lng)

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	fmt.Fprintf(&b, "  node%s%s;\n", filter, around)
	fmt.Fprintf(&b, "  way%s%s;\n", filter, around)
	b.WriteString(");\nout center;\n")
	return b.String()
}

// overpassAddress はaddr:*タグから住所を組み立てる
func overpassAddress(tags map[string]string) string {
	street := strings.TrimSpace(tags["addr:housenumber"] + " " + tags["addr:street"])
	parts := appendUnique(nil, street, tags["addr:postcode"])
	return strings.Join(parts, ", ")
}

// --- Overpass APIのレスポンスをパースするための構造体 ---

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *overpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
