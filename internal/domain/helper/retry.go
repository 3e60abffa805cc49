package helper

import (
	"context"
	"time"

	"LetHimCook-App/internal/domain/model"
)

// RetryPolicy は一時的エラーに対する再試行の設定
type RetryPolicy struct {
	MaxAttempts int           // 最大試行回数（初回を含む）
	BaseDelay   time.Duration // 初回の待機時間
	MaxDelay    time.Duration // 待機時間の上限
}

// DefaultRetryPolicy は外部API呼び出しの標準的な再試行設定
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
	}
}

// delay はattempt回目（1始まり）の失敗後に待つ時間
func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay << (attempt - 1)
	if d <= 0 || (p.MaxDelay > 0 && d > p.MaxDelay) {
		return p.MaxDelay
	}
	return d
}

// RetryWithBackoff はfnを実行し、一時的エラーの場合のみ指数バックオフで再試行する
// 一時的でないエラーは即座に返す。試行回数を使い切った場合は最後のエラーを返す
func RetryWithBackoff[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// 呼び出し元のキャンセルは再試行しない
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !model.IsTransient(err) || attempt == attempts {
			break
		}

		timer := time.NewTimer(policy.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}
