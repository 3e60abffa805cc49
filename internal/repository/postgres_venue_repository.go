package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
	"LetHimCook-App/internal/infrastructure/database"
)

// PostGISSourceName PostGISの店舗テーブルを表す取得元名
const PostGISSourceName = "postgis"

// postgisResultLimit 1クエリで返す最大件数
const postgisResultLimit = 50

// PostgresVenueRepository 自前で収集した店舗テーブル（PostGIS）を検索ソースとして使う
type PostgresVenueRepository struct {
	client *database.PostgreSQLClient
	table  string
}

func NewPostgresVenueRepository(client *database.PostgreSQLClient, table string) repository.VenueSearchProvider {
	if table == "" {
		table = "venues"
	}
	return &PostgresVenueRepository{
		client: client,
		table:  table,
	}
}

func (r *PostgresVenueRepository) Name() string { return PostGISSourceName }

// VenueResult PostGISクエリの結果を受け取るための構造体
type VenueResult struct {
	ID             string
	Name           string
	Location       string
	Categories     string
	Address        sql.NullString
	Description    sql.NullString
	DistanceMeters float64
}

// ToVenueRecord VenueResultをmodel.VenueRecordに変換
// 位置が読めない行は座標をNaNにして、発見ステージで不正レコードとして数える
func (vr *VenueResult) ToVenueRecord() (model.VenueRecord, error) {
	var categories []string
	if vr.Categories != "" {
		if err := json.Unmarshal([]byte(vr.Categories), &categories); err != nil {
			return model.VenueRecord{}, fmt.Errorf("categories JSONBパースエラー: %w", err)
		}
	}

	return model.VenueRecord{
		ProviderID:  vr.ID,
		Source:      PostGISSourceName,
		Name:        vr.Name,
		Categories:  categories,
		Coordinates: ParseGeoPointJSON([]byte(vr.Location)),
		Address:     vr.Address.String,
		Description: vr.Description.String,
	}, nil
}

func (r *PostgresVenueRepository) searchQuery() string {
	return fmt.Sprintf(`
		SELECT
			v.id, v.name,
			ST_AsGeoJSON(v.location)::jsonb as location,
			v.categories, v.address, v.description,
			ST_Distance(
				ST_GeogFromText('POINT(' || $2 || ' ' || $1 || ')'),
				v.location::geography
			) as distance_meters
		FROM %s v
		WHERE ST_DWithin(
			ST_GeogFromText('POINT(' || $2 || ' ' || $1 || ')'),
			v.location::geography,
			$3
		)
		AND ($4::jsonb = '[]'::jsonb OR v.categories ?| ARRAY(SELECT jsonb_array_elements_text($4::jsonb)))
		AND ($5 = '' OR v.name ILIKE '%%' || $5 || '%%' OR v.categories::text ILIKE '%%' || $5 || '%%')
		ORDER BY distance_meters
		LIMIT %d
	`, pq.QuoteIdentifier(r.table), postgisResultLimit)
}

// Search 中心から半径内の店舗を距離順に返す
func (r *PostgresVenueRepository) Search(ctx context.Context, center model.LatLng, radiusMeters int, query string, categories []string) ([]model.VenueRecord, error) {
	if categories == nil {
		categories = []string{}
	}
	categoriesJSON, err := json.Marshal(categories)
	if err != nil {
		return nil, fmt.Errorf("カテゴリJSONマーシャルエラー: %w", err)
	}

	rows, err := r.client.DB.QueryContext(ctx, r.searchQuery(),
		center.Lat, center.Lng, radiusMeters, string(categoriesJSON), query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, model.NewTransientError(PostGISSourceName, 0, fmt.Errorf("周辺店舗検索失敗: %w", err))
	}
	defer rows.Close()

	var records []model.VenueRecord
	for rows.Next() {
		var result VenueResult
		if err := rows.Scan(&result.ID, &result.Name, &result.Location, &result.Categories,
			&result.Address, &result.Description, &result.DistanceMeters); err != nil {
			return nil, model.NewMalformedError(PostGISSourceName, fmt.Errorf("店舗データスキャンエラー: %w", err))
		}
		rec, err := result.ToVenueRecord()
		if err != nil {
			return nil, model.NewMalformedError(PostGISSourceName, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewTransientError(PostGISSourceName, 0, fmt.Errorf("周辺店舗検索失敗: %w", err))
	}
	return records, nil
}
