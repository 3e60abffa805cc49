package model

import "sync"

// RequestTally 1回の実行で発生した外部リクエスト数を種別ごとに数える
// 実行ごとに生成し、ゴルーチン間で共有してよい
type RequestTally struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewRequestTally 空のカウンタを生成
func NewRequestTally() *RequestTally {
	return &RequestTally{counts: make(map[string]int)}
}

// Add 種別kindのリクエスト数を1増やす
func (t *RequestTally) Add(kind string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.counts[kind]++
	t.mu.Unlock()
}

// Count 種別kindのリクエスト数
func (t *RequestTally) Count(kind string) int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[kind]
}

// Snapshot 現時点のカウントのコピー
func (t *RequestTally) Snapshot() map[string]int {
	out := make(map[string]int)
	if t == nil {
		return out
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}
