package repository

import "context"

// RateLimiter は外部呼び出しの前に取得する実行単位のレート制限
// レート上の理由では失敗せず、呼び出し元のコンテキストが終了した場合のみエラーを返す
type RateLimiter interface {
	Acquire(ctx context.Context) error
}
