package database

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"LetHimCook-App/internal/config"
)

// ElasticsearchClient 店舗インデックス用のElasticsearchクライアント
type ElasticsearchClient struct {
	Client *elasticsearch.Client
	Index  string
}

// NewElasticsearchClient 新しいElasticsearchクライアントを作成
func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("Elasticsearchクライアントの作成に失敗: %w", err)
	}
	return &ElasticsearchClient{Client: es, Index: cfg.Index}, nil
}

// HealthCheck Elasticsearch接続のヘルスチェック
func (c *ElasticsearchClient) HealthCheck(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("Elasticsearchへの接続に失敗: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("Elasticsearchのpingがエラーを返しました: %s", res.String())
	}
	return nil
}
