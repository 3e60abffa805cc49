package helper

import (
	"context"

	"LetHimCook-App/internal/domain/model"
)

type requestTallyKey struct{}

// WithRequestTally は実行単位のリクエストカウンタをコンテキストに載せる
func WithRequestTally(ctx context.Context, tally *model.RequestTally) context.Context {
	return context.WithValue(ctx, requestTallyKey{}, tally)
}

// RequestTallyFrom はコンテキストからカウンタを取り出す（無い場合はnil）
func RequestTallyFrom(ctx context.Context) *model.RequestTally {
	tally, _ := ctx.Value(requestTallyKey{}).(*model.RequestTally)
	return tally
}

// CountRequest は外部リクエストを1件記録する（カウンタが無ければ何もしない）
func CountRequest(ctx context.Context, kind string) {
	RequestTallyFrom(ctx).Add(kind)
}
