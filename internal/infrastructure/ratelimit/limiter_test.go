package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterMinInterval(t *testing.T) {
	l := New(Config{MinInterval: 20 * time.Millisecond})

	start := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}
	// 1回目は即時、残り3回はそれぞれ20ms以上空く
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestLimiterSlidingWindow(t *testing.T) {
	l := New(Config{MaxPerWindow: 2, Window: 100 * time.Millisecond})

	var mu sync.Mutex
	var stamps []time.Time
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Acquire(context.Background()))
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, stamps, 6)
	// どの100msの区間にも2回を超える呼び出しが入らない
	for i := range stamps {
		inWindow := 0
		for j := range stamps {
			d := stamps[j].Sub(stamps[i])
			if d >= 0 && d < 95*time.Millisecond {
				inWindow++
			}
		}
		assert.LessOrEqual(t, inWindow, 2)
	}
}

func TestLimiterCancellation(t *testing.T) {
	t.Run("キャンセル時はctx.Errを返す", func(t *testing.T) {
		l := New(Config{MaxPerWindow: 1, Window: time.Hour})
		require.NoError(t, l.Acquire(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		err := l.Acquire(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("最小間隔が期限を超える場合もctx.Errを返す", func(t *testing.T) {
		l := New(Config{MinInterval: time.Hour})
		require.NoError(t, l.Acquire(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := l.Acquire(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNewForRadius(t *testing.T) {
	cfg := DefaultConfig()

	small := NewForRadius(cfg, 2)
	assert.Equal(t, cfg.MaxPerWindow, small.max)

	large := NewForRadius(cfg, 25)
	assert.Equal(t, cfg.LargeSearchMaxPerWindow, large.max)
	assert.Equal(t, time.Second, large.window)
}
