package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config はレート制限の設定
type Config struct {
	MinInterval  time.Duration // 呼び出し間の最小間隔
	MaxPerWindow int           // ウィンドウ内の最大呼び出し数（0以下は無制限）
	Window       time.Duration // スライディングウィンドウの長さ（既定1秒）

	// 広域検索向けの設定（半径がLargeSearchRadiusKmを超える場合に使用）
	LargeSearchRadiusKm     float64
	LargeSearchMinInterval  time.Duration
	LargeSearchMaxPerWindow int
}

// DefaultConfig は公開APIの利用規約に収まる控えめな既定値
func DefaultConfig() Config {
	return Config{
		MinInterval:             100 * time.Millisecond,
		MaxPerWindow:            8,
		Window:                  time.Second,
		LargeSearchRadiusKm:     10,
		LargeSearchMinInterval:  150 * time.Millisecond,
		LargeSearchMaxPerWindow: 5,
	}
}

// Limiter は最小間隔とスライディングウィンドウの両方を満たすまで呼び出しを待たせる
// 1回の実行につき1つ生成し、その実行の全ての外部呼び出しで共有する
type Limiter struct {
	pacer *rate.Limiter

	mu     sync.Mutex
	window time.Duration
	max    int
	stamps []time.Time
}

// New は設定からLimiterを生成する
func New(cfg Config) *Limiter {
	l := &Limiter{
		window: cfg.Window,
		max:    cfg.MaxPerWindow,
	}
	if l.window <= 0 {
		l.window = time.Second
	}
	if cfg.MinInterval > 0 {
		l.pacer = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	return l
}

// NewForRadius は検索半径に応じて広域検索向けの設定を適用したLimiterを生成する
func NewForRadius(cfg Config, radiusKm float64) *Limiter {
	if cfg.LargeSearchRadiusKm > 0 && radiusKm > cfg.LargeSearchRadiusKm {
		if cfg.LargeSearchMinInterval > 0 {
			cfg.MinInterval = cfg.LargeSearchMinInterval
		}
		if cfg.LargeSearchMaxPerWindow > 0 {
			cfg.MaxPerWindow = cfg.LargeSearchMaxPerWindow
		}
	}
	return New(cfg)
}

// Acquire は呼び出し可能になるまで待機する
// レート上の理由では失敗せず、ctxが終了した場合のみctx.Err()を返す
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if l.pacer != nil {
		if err := l.pacer.Wait(ctx); err != nil {
			// 期限内に間隔を確保できない場合もレート上の失敗にはせず、ctxの終了を待つ
			<-ctx.Done()
			return ctx.Err()
		}
	}

	if l.max <= 0 {
		return nil
	}

	for {
		wait, ok := l.tryReserve(time.Now())
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryReserve はウィンドウに空きがあれば枠を確保する。空きが無い場合は待機時間を返す
func (l *Limiter) tryReserve(now time.Time) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for len(l.stamps) > 0 && now.Sub(l.stamps[0]) >= l.window {
		l.stamps = l.stamps[1:]
	}
	if len(l.stamps) < l.max {
		l.stamps = append(l.stamps, now)
		return 0, true
	}
	return l.window - now.Sub(l.stamps[0]), false
}
