package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"LetHimCook-App/internal/domain/model"
)

// maxErrorBody はエラー時にメッセージへ含めるレスポンス本文の上限
const maxErrorBody = 300

// Client は外部APIとのJSON通信を担当するクライアント
// 429・5xx・通信エラーは一時的エラー、デコード失敗や想定外のステータスは形式エラーとして返す
type Client struct {
	provider   string
	httpClient *http.Client
	headers    http.Header
}

// New は新しいClientを作成
func New(provider string, timeout time.Duration) *Client {
	return &Client{
		provider:   provider,
		httpClient: &http.Client{Timeout: timeout},
		headers:    make(http.Header),
	}
}

// WithHeader は全リクエストに付与するヘッダーを設定する
func (c *Client) WithHeader(key, value string) *Client {
	c.headers.Set(key, value)
	return c
}

// Provider はエラーに記録するプロバイダ名
func (c *Client) Provider() string {
	return c.provider
}

// GetJSON はクエリ付きのGETを実行し、レスポンスをoutにデコードする
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, headers map[string]string, out any) error {
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL = rawURL + sep + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	return c.do(req, headers, out)
}

// PostJSON はJSONボディのPOSTを実行する
func (c *Client) PostJSON(ctx context.Context, rawURL string, body any, headers map[string]string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("リクエストのシリアライズに失敗: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, headers, out)
}

// PostForm はフォームエンコードのPOSTを実行する
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, headers, out)
}

func (c *Client) do(req *http.Request, headers map[string]string, out any) error {
	req.Header.Set("Accept", "application/json")
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewTransientError(c.provider, 0, fmt.Errorf("APIリクエストに失敗: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return model.NewTransientError(c.provider, resp.StatusCode, fmt.Errorf("APIからエラーステータスが返されました: %s", strings.TrimSpace(string(body))))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return model.NewMalformedError(c.provider, fmt.Errorf("想定外のステータス %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.NewMalformedError(c.provider, fmt.Errorf("JSONのパースに失敗: %w", err))
	}
	return nil
}
