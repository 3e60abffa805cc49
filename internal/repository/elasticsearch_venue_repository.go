package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
)

// ElasticsearchSourceName 店舗インデックスを表す取得元名
const ElasticsearchSourceName = "elasticsearch"

const elasticsearchResultLimit = 50

// ElasticsearchVenueRepository geo_pointを持つ店舗インデックスを検索ソースとして使う
type ElasticsearchVenueRepository struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchVenueRepository(client *elasticsearch.Client, index string) repository.VenueSearchProvider {
	if index == "" {
		index = "venues"
	}
	return &ElasticsearchVenueRepository{client: client, index: index}
}

func (r *ElasticsearchVenueRepository) Name() string { return ElasticsearchSourceName }

// esVenueDocument インデックスに格納された店舗ドキュメント
type esVenueDocument struct {
	Name        string          `json:"name"`
	Categories  []string        `json:"categories"`
	Location    json.RawMessage `json:"location"` // {lat, lon} またはGeoJSON Point
	Address     string          `json:"address"`
	Description string          `json:"description"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Source esVenueDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// buildSearchBody geo_distanceで絞り込み、距離順に並べるクエリを組み立てる
func buildSearchBody(center model.LatLng, radiusMeters int, query string, categories []string) map[string]interface{} {
	origin := LatLngToGeoPoint(center)
	filters := []interface{}{
		map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance": fmt.Sprintf("%dm", radiusMeters),
				"location": origin,
			},
		},
	}
	if len(categories) > 0 {
		filters = append(filters, map[string]interface{}{
			"terms": map[string]interface{}{"categories.keyword": categories},
		})
	}

	boolQuery := map[string]interface{}{"filter": filters}
	if q := strings.TrimSpace(query); q != "" {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":  q,
					"fields": []string{"name^2", "categories", "description"},
				},
			},
		}
	}

	return map[string]interface{}{
		"size":  elasticsearchResultLimit,
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			map[string]interface{}{
				"_geo_distance": map[string]interface{}{
					"location": origin,
					"order":    "asc",
					"unit":     "m",
				},
			},
		},
	}
}

// Search 中心から半径内の店舗を距離順に返す
func (r *ElasticsearchVenueRepository) Search(ctx context.Context, center model.LatLng, radiusMeters int, query string, categories []string) ([]model.VenueRecord, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildSearchBody(center, radiusMeters, query, categories)); err != nil {
		return nil, fmt.Errorf("検索クエリのエンコードに失敗: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, model.NewTransientError(ElasticsearchSourceName, 0, fmt.Errorf("店舗インデックスの検索に失敗: %w", err))
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		err := fmt.Errorf("Elasticsearchエラー (status %d): %s", res.StatusCode, strings.TrimSpace(string(body)))
		if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
			return nil, model.NewTransientError(ElasticsearchSourceName, res.StatusCode, err)
		}
		return nil, model.NewMalformedError(ElasticsearchSourceName, err)
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, model.NewMalformedError(ElasticsearchSourceName, fmt.Errorf("検索結果のデコードに失敗: %w", err))
	}

	records := make([]model.VenueRecord, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		doc := hit.Source
		records = append(records, model.VenueRecord{
			ProviderID:  hit.ID,
			Source:      ElasticsearchSourceName,
			Name:        doc.Name,
			Categories:  doc.Categories,
			Coordinates: ParseGeoPointJSON(doc.Location),
			Address:     doc.Address,
			Description: doc.Description,
		})
	}
	return records, nil
}
