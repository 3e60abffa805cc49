package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"LetHimCook-App/internal/domain/model"
)

const (
	geminiSource       = "gemini"
	defaultGeminiModel = "gemini-2.5-flash"
)

// GeminiClient はGemini APIとの通信を担当するクライアント
type GeminiClient struct {
	client *genai.Client
	model  string
}

// GeminiOptions はクライアントの接続設定
type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string // テストや社内プロキシ用（空の場合は既定）
}

// NewGeminiClient は新しいGeminiClientインスタンスを作成
func NewGeminiClient(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, &model.ConfigurationError{Field: "gemini.api_key", Message: "Gemini APIキーが設定されていません"}
	}
	if opts.Model == "" {
		opts.Model = defaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("Geminiクライアントの作成に失敗: %w", err)
	}
	return &GeminiClient{client: client, model: opts.Model}, nil
}

// GenerateContent はGemini APIを使ってコンテンツを生成する
// 呼び出し元のキャンセル以外の失敗は再試行可能な一時的エラーとして返す
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", model.NewTransientError(geminiSource, 0, fmt.Errorf("API呼び出しエラー: %w", err))
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", model.NewMalformedError(geminiSource, errors.New("有効なレスポンスが生成されませんでした"))
	}
	return text, nil
}
